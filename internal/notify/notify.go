package notify

import (
	"context"
	"time"
)

// Action 标识一次对象状态变化的类型。
type Action string

const (
	ActionUploaded   Action = "uploaded"
	ActionDeleted    Action = "deleted"
	ActionLazyLoaded Action = "lazy-loaded"
)

// SyncEvent 描述一次对象状态变化，供下游同步消费方使用。
type SyncEvent struct {
	Key       string    `json:"key"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink 是 fire-and-forget 的事件入队口。约定：调用方对每个事件
// 最多尝试一次 Enqueue，失败只记日志、不重试、不影响响应。
type Sink interface {
	Enqueue(ctx context.Context, event SyncEvent) error
}

// NewEvent 构造带 UTC 时间戳的事件。
func NewEvent(key string, action Action) SyncEvent {
	return SyncEvent{Key: key, Action: action, Timestamp: time.Now().UTC()}
}
