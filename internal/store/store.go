package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责本地对象的读写删。读取路径每次命中都直接走这里，
// 未命中时由 resolver 决定是否回源填充。
type Store interface {
	// Get 返回指定 key 的对象视图。对象不存在时返回 ErrNotFound。
	// 返回的 Body 只能消费一次，调用方负责 Close。
	Get(ctx context.Context, key string) (*Object, error)

	// Put 写入对象正文与元数据。实现必须保证原子性：要么完整落盘，
	// 要么报错且不留下可见的半成品。
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*PutResult, error)

	// Delete 删除对象。对象不存在时视为成功。
	Delete(ctx context.Context, key string) error
}

// Object 是一次请求范围内的对象视图，正文为单次消费的流。
type Object struct {
	Key           string
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // 未知时为 -1
	CacheControl  string
	ETag          string
	Metadata      map[string]string
	UploadedAt    time.Time
}

// PutOptions 携带写入时需要持久化的元数据。
type PutOptions struct {
	ContentType  string
	CacheControl string
	Metadata     map[string]string
	UploadedAt   time.Time
}

// PutResult 描述一次成功写入的结果。
type PutResult struct {
	ETag string
}

// ErrNotFound 表示对象不存在。
var ErrNotFound = errors.New("object not found")
