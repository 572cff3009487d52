package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// NewLogSink 返回仅记录日志的 Sink，用于未配置队列的部署。
// 事件不会真正投递，但下游契约（最多一次、不影响响应）保持一致。
func NewLogSink(logger *logrus.Logger) Sink {
	return &logSink{logger: logger}
}

type logSink struct {
	logger *logrus.Logger
}

func (s *logSink) Enqueue(_ context.Context, event SyncEvent) error {
	s.logger.WithFields(logrus.Fields{
		"action":    "sync_event",
		"key":       event.Key,
		"event":     string(event.Action),
		"timestamp": event.Timestamp,
	}).Info("sync_event_logged")
	return nil
}
