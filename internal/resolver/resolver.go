package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/objhub/objhub/internal/notify"
	"github.com/objhub/objhub/internal/origin"
	"github.com/objhub/objhub/internal/store"
)

// MetadataSourceKey 是 resolver 写入对象自定义元数据的来源标记字段。
// 仅用于观测，不参与任何正确性判断。
const MetadataSourceKey = "source"

// 来源标记取值。
const (
	SourceLocal      = "local"
	SourceLazyLoaded = "lazy-loaded"
)

// Resolver orchestrate “本地命中 → 回源 → 写回 → 通知” 的读取全流程。
// 回源失败、写回失败、通知失败都只降级为日志，绝不影响读取语义：
// 客户端要么拿到对象，要么得到干净的 NotFound。
type Resolver struct {
	local     store.Store
	origin    origin.Fetcher // 为 nil 时表示未配置上游
	sink      notify.Sink
	logger    *logrus.Logger
	maxBuffer int64
}

// New 构建 Resolver。origin 可以为 nil；sink/logger 必须有效。
func New(local store.Store, fetcher origin.Fetcher, sink notify.Sink, logger *logrus.Logger, maxBuffer int64) *Resolver {
	return &Resolver{
		local:     local,
		origin:    fetcher,
		sink:      sink,
		logger:    logger,
		maxBuffer: maxBuffer,
	}
}

// Resolve 返回 key 对应的对象视图，本地与上游皆未命中时返回 store.ErrNotFound。
// 不做 single-flight：同一 key 的并发未命中允许重复回源与写回，
// 收敛性由存储层“同 key 最后一次写入生效”保证。
func (r *Resolver) Resolve(ctx context.Context, key string) (*store.Object, error) {
	obj, err := r.local.Get(ctx, key)
	if err == nil {
		stampSource(obj, SourceLocal)
		return obj, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		// 本地存储故障按未命中降级，读路径的可用性优先于快路径。
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action": "local_get_failed",
			"key":    key,
		}).Warn("local store unavailable, falling back to origin")
	}

	if r.origin == nil {
		return nil, store.ErrNotFound
	}

	fetched, err := r.origin.Fetch(ctx, key)
	if err != nil {
		if !errors.Is(err, origin.ErrNotFound) {
			// 回源失败等价于未命中：配置错误或上游抖动不能打爆本应 404 的请求。
			r.logger.WithError(err).WithFields(logrus.Fields{
				"action": "origin_fetch_failed",
				"key":    key,
			}).Warn("origin fetch failed, treating as miss")
		}
		return nil, store.ErrNotFound
	}

	stampSource(fetched, SourceLazyLoaded)
	result := r.populate(ctx, key, fetched)

	if err := r.sink.Enqueue(ctx, notify.NewEvent(key, notify.ActionLazyLoaded)); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action": "sync_enqueue_failed",
			"key":    key,
			"event":  string(notify.ActionLazyLoaded),
		}).Warn("sync event lost")
	}

	return result, nil
}

// populate 把回源对象写回本地存储，并返回可供客户端消费的对象视图。
// 正文是单次消费的流，这里用有界内存缓冲喂两个消费方；超限对象
// 跳过写回直接透传。
func (r *Resolver) populate(ctx context.Context, key string, fetched *store.Object) *store.Object {
	buf, rest, oversize, err := bufferBody(fetched.Body, r.maxBuffer)
	if err != nil {
		// 缓冲途中读挂了，把已读部分加残余流原样交给客户端，不写回。
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action": "origin_body_read_failed",
			"key":    key,
		}).Warn("streaming origin body without population")
		fetched.Body = concatBody(buf, rest)
		return fetched
	}

	if oversize {
		r.logger.WithFields(logrus.Fields{
			"action":     "cache_skip_oversize",
			"key":        key,
			"max_buffer": r.maxBuffer,
		}).Info("object exceeds buffer bound, skipping write-back")
		fetched.Body = concatBody(buf, rest)
		return fetched
	}

	rest.Close()

	opts := store.PutOptions{
		ContentType:  fetched.ContentType,
		CacheControl: fetched.CacheControl,
		Metadata:     metadataWithoutSource(fetched.Metadata),
		UploadedAt:   fetched.UploadedAt,
	}
	if _, err := r.local.Put(ctx, key, bytes.NewReader(buf), opts); err != nil {
		// 写回失败不影响本次读取，只是缓存填充的副作用丢失。
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action": "cache_populate_failed",
			"key":    key,
		}).Warn("write-back failed, serving origin copy")
	}

	fetched.Body = io.NopCloser(bytes.NewReader(buf))
	fetched.ContentLength = int64(len(buf))
	return fetched
}

// bufferBody 最多读取 max 字节。返回的 oversize 表示正文超限，
// 此时 rest 仍持有未消费的残余流。
func bufferBody(body io.ReadCloser, max int64) ([]byte, io.ReadCloser, bool, error) {
	buf, err := io.ReadAll(io.LimitReader(body, max))
	if err != nil {
		return buf, body, false, err
	}
	if int64(len(buf)) < max {
		return buf, body, false, nil
	}
	// 恰好读满：探一个字节判断是否真的超限。
	probe := make([]byte, 1)
	n, err := body.Read(probe)
	if n > 0 {
		buf = append(buf, probe[:n]...)
		return buf, body, true, nil
	}
	if err == io.EOF {
		return buf, body, false, nil
	}
	if err != nil {
		return buf, body, false, err
	}
	// n == 0 且无错误：无法断言流已结束，按超限透传处理。
	return buf, body, true, nil
}

func concatBody(buffered []byte, rest io.ReadCloser) io.ReadCloser {
	return &joinedBody{
		reader: io.MultiReader(bytes.NewReader(buffered), rest),
		closer: rest,
	}
}

type joinedBody struct {
	reader io.Reader
	closer io.Closer
}

func (j *joinedBody) Read(p []byte) (int, error) { return j.reader.Read(p) }
func (j *joinedBody) Close() error               { return j.closer.Close() }

func stampSource(obj *store.Object, source string) {
	if obj.Metadata == nil {
		obj.Metadata = map[string]string{}
	}
	obj.Metadata[MetadataSourceKey] = source
}

func metadataWithoutSource(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	result := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == MetadataSourceKey {
			continue
		}
		result[k] = v
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
