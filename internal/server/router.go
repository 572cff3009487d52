package server

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/objhub/objhub/internal/config"
)

// ObjectHandler describes the component that serves object operations once
// the router has derived key/intent. It allows injecting fake handlers
// during tests.
type ObjectHandler interface {
	Handle(c fiber.Ctx, req *ObjectRequest) error
}

// ObjectHandlerFunc adapts a function to the ObjectHandler interface.
type ObjectHandlerFunc func(fiber.Ctx, *ObjectRequest) error

// Handle makes ObjectHandlerFunc satisfy ObjectHandler.
func (f ObjectHandlerFunc) Handle(c fiber.Ctx, req *ObjectRequest) error {
	return f(c, req)
}

// ObjectRequest 汇总路由层解析出的请求上下文，传给对象处理器。
type ObjectRequest struct {
	// Key 是去掉前导 / 的对象键；空串表示请求根路径。
	Key string
	// Intent 由 Host 模式匹配得出。
	Intent Intent
	// RequestID 贯穿日志与错误信封。
	RequestID string
	// Config 是本次请求绑定的配置快照。
	Config *config.Config
}

// ConfigSource 提供当前生效的配置，热重载期间每个请求绑定一份一致的快照。
type ConfigSource interface {
	Current() *config.Config
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Config     ConfigSource
	Objects    ObjectHandler
	ListenPort int
}

const (
	contextKeyRequestID = "_objhub_request_id"
	contextKeyIntent    = "_objhub_intent"
)

// NewApp builds a Fiber application with request-ID/intent middleware and
// an error handler that normalizes every uncaught failure to the XML
// InternalError envelope.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Config == nil {
		return nil, errors.New("config source is required")
	}
	if opts.Objects == nil {
		return nil, errors.New("object handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  normalizeError(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		req := &ObjectRequest{
			Key:       objectKeyFromPath(string(c.Request().URI().Path())),
			Intent:    getIntentFromContext(c),
			RequestID: RequestID(c),
			Config:    opts.Config.Current(),
		}
		return opts.Objects.Handle(c, req)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并基于 Host 模式判定读写意图。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}

		rawHost := strings.TrimSpace(getHostHeader(c))
		intent := ClassifyHost(rawHost, opts.Config.Current())
		c.Locals(contextKeyIntent, intent)
		return c.Next()
	}
}

// normalizeError 保证所有未捕获错误以 XML InternalError 返回，
// 不向客户端泄露内部诊断信息。
func normalizeError(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		requestID := RequestID(c)
		logger.WithError(err).WithFields(logrus.Fields{
			"action":     "request_failed",
			"request_id": requestID,
		}).Error("unhandled request error")
		return writeAPIError(c, ErrInternal, requestID)
	}
}

// objectKeyFromPath 把请求路径翻译为对象键；空串留给处理器按方法分类拒绝。
func objectKeyFromPath(raw string) string {
	if raw == "" {
		return ""
	}
	clean := path.Clean("/" + raw)
	return strings.TrimPrefix(clean, "/")
}

func getHostHeader(c fiber.Ctx) string {
	if raw := c.Request().Header.Peek(fiber.HeaderHost); len(raw) > 0 {
		return string(raw)
	}
	return c.Hostname()
}

func getIntentFromContext(c fiber.Ctx) Intent {
	if value := c.Locals(contextKeyIntent); value != nil {
		if intent, ok := value.(Intent); ok {
			return intent
		}
	}
	return IntentReadOnly
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
