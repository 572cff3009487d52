package origin

import (
	"context"
	"errors"

	"github.com/objhub/objhub/internal/store"
)

// Fetcher 是上游源存储的只读视角。实现必须区分“确定不存在”
// 与“取不到”（网络错误、非 2xx）：前者返回 ErrNotFound，
// 后者返回包装后的错误，由调用方决定如何降级。
type Fetcher interface {
	Fetch(ctx context.Context, key string) (*store.Object, error)
}

// ErrNotFound 表示上游确定没有该对象。
var ErrNotFound = errors.New("origin object not found")
