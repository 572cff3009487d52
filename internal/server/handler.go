package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/objhub/objhub/internal/logging"
	"github.com/objhub/objhub/internal/notify"
	"github.com/objhub/objhub/internal/resolver"
	"github.com/objhub/objhub/internal/store"
)

// ObjectResolver 是读路径的解析入口，由 resolver.Resolver 实现。
type ObjectResolver interface {
	Resolve(ctx context.Context, key string) (*store.Object, error)
}

// Handler 按方法分派对象操作：读走 resolver，写/删过 Guard 后直达本地存储，
// 每次成功写/删各尝试一次事件入队。
type Handler struct {
	resolver ObjectResolver
	store    store.Store
	sink     notify.Sink
	guard    *Guard
	logger   *logrus.Logger
}

// NewHandler constructs an object handler with shared resolver/store/sink.
func NewHandler(res ObjectResolver, st store.Store, sink notify.Sink, guard *Guard, logger *logrus.Logger) *Handler {
	return &Handler{
		resolver: res,
		store:    st,
		sink:     sink,
		guard:    guard,
		logger:   logger,
	}
}

// Handle 实现 ObjectHandler。
func (h *Handler) Handle(c fiber.Ctx, req *ObjectRequest) error {
	switch c.Method() {
	case http.MethodGet, http.MethodHead:
		return h.handleRead(c, req)
	case http.MethodPut:
		return h.handlePut(c, req)
	case http.MethodDelete:
		return h.handleDelete(c, req)
	case http.MethodOptions:
		return h.handleOptions(c, req)
	default:
		return writeAPIError(c, ErrMethodNotAllowed, req.RequestID)
	}
}

func (h *Handler) handleRead(c fiber.Ctx, req *ObjectRequest) error {
	started := time.Now()

	// 空键是“列桶”而不是未命中，明确以 501 拒绝。
	if req.Key == "" {
		return writeAPIError(c, ErrNotImplemented, req.RequestID)
	}

	obj, err := h.resolver.Resolve(c.Context(), req.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return writeAPIError(c, ErrNoSuchKey, req.RequestID)
		}
		h.logRequest(c, req, "resolve_failed", started, err)
		return writeAPIError(c, ErrInternal, req.RequestID)
	}

	writeObjectHeaders(c, obj, req.Config.Global.DefaultCacheControl)
	c.Status(fiber.StatusOK)

	if c.Method() == http.MethodHead {
		obj.Body.Close()
		h.logResolve(c, req, obj, started, nil)
		return nil
	}

	_, copyErr := io.Copy(c.Response().BodyWriter(), obj.Body)
	obj.Body.Close()
	h.logResolve(c, req, obj, started, copyErr)
	if copyErr != nil {
		return fiber.NewError(fiber.StatusBadGateway, "object stream failed")
	}
	return nil
}

func (h *Handler) handlePut(c fiber.Ctx, req *ObjectRequest) error {
	started := time.Now()

	if req.Key == "" {
		return writeAPIError(c, ErrInvalidKey, req.RequestID)
	}
	if apiErr := h.guard.Authorize(req.Intent, c.Get(fiber.HeaderAuthorization)); apiErr != nil {
		h.logRequest(c, req, "write_denied", started, apiErr)
		return writeAPIError(c, apiErr, req.RequestID)
	}

	opts := putOptionsFromRequest(c)
	result, err := h.store.Put(c.Context(), req.Key, bytes.NewReader(c.Body()), opts)
	if err != nil {
		h.logRequest(c, req, "put_failed", started, err)
		return writeAPIError(c, ErrInternal, req.RequestID)
	}

	h.enqueue(c.Context(), req, notify.ActionUploaded)

	if result.ETag != "" {
		c.Set(fiber.HeaderETag, quoteETag(result.ETag))
	}
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	h.logRequest(c, req, "put_complete", started, nil)
	return c.SendStatus(fiber.StatusOK)
}

func (h *Handler) handleDelete(c fiber.Ctx, req *ObjectRequest) error {
	started := time.Now()

	if req.Key == "" {
		return writeAPIError(c, ErrInvalidKey, req.RequestID)
	}
	if apiErr := h.guard.Authorize(req.Intent, c.Get(fiber.HeaderAuthorization)); apiErr != nil {
		h.logRequest(c, req, "write_denied", started, apiErr)
		return writeAPIError(c, apiErr, req.RequestID)
	}

	if err := h.store.Delete(c.Context(), req.Key); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logRequest(c, req, "delete_failed", started, err)
		return writeAPIError(c, ErrInternal, req.RequestID)
	}

	h.enqueue(c.Context(), req, notify.ActionDeleted)

	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	h.logRequest(c, req, "delete_complete", started, nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleOptions 返回静态 CORS 能力描述，不触碰任何存储。
func (h *Handler) handleOptions(c fiber.Ctx, req *ObjectRequest) error {
	writeCORSHeaders(c)
	if req.RequestID != "" {
		c.Set("X-Request-ID", req.RequestID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// enqueue 是唯一一次入队尝试；失败只记日志。
func (h *Handler) enqueue(ctx context.Context, req *ObjectRequest, action notify.Action) {
	if err := h.sink.Enqueue(ctx, notify.NewEvent(req.Key, action)); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"action":     "sync_enqueue_failed",
			"key":        req.Key,
			"event":      string(action),
			"request_id": req.RequestID,
		}).Warn("sync event lost")
	}
}

func (h *Handler) logResolve(c fiber.Ctx, req *ObjectRequest, obj *store.Object, started time.Time, err error) {
	fields := logging.RequestFields(c.Method(), req.Key, getHostHeader(c), string(req.Intent), req.RequestID)
	fields["action"] = "resolve_complete"
	fields["source"] = obj.Metadata[resolver.MetadataSourceKey]
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("resolve_stream_failed")
		return
	}
	h.logger.WithFields(fields).Info("resolve_complete")
}

func (h *Handler) logRequest(c fiber.Ctx, req *ObjectRequest, action string, started time.Time, err error) {
	fields := logging.RequestFields(c.Method(), req.Key, getHostHeader(c), string(req.Intent), req.RequestID)
	fields["action"] = action
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Warn(action)
		return
	}
	h.logger.WithFields(fields).Info(action)
}
