package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/objhub/objhub/internal/store"
)

// metadataHeaderPrefix 是自定义元数据在 wire 层的保留头命名空间。
const metadataHeaderPrefix = "x-amz-meta-"

// writeObjectHeaders 把对象元数据翻译成响应头。Cache-Control 缺省时
// 应用配置的默认值，Last-Modified 缺省时取当前时间。
func writeObjectHeaders(c fiber.Ctx, obj *store.Object, defaultCacheControl string) {
	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}
	if obj.ContentLength >= 0 {
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(obj.ContentLength, 10))
	}
	if obj.ETag != "" {
		c.Set(fiber.HeaderETag, quoteETag(obj.ETag))
	}

	cacheControl := obj.CacheControl
	if cacheControl == "" {
		cacheControl = defaultCacheControl
	}
	c.Set(fiber.HeaderCacheControl, cacheControl)

	lastModified := obj.UploadedAt
	if lastModified.IsZero() {
		lastModified = time.Now().UTC()
	}
	c.Set(fiber.HeaderLastModified, lastModified.UTC().Format(http.TimeFormat))

	for key, value := range obj.Metadata {
		c.Set(metadataHeaderPrefix+key, value)
	}

	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
}

// putOptionsFromRequest 把请求头翻译为写入元数据，x-amz-meta-* 双向映射。
func putOptionsFromRequest(c fiber.Ctx) store.PutOptions {
	opts := store.PutOptions{
		ContentType:  string(c.Request().Header.ContentType()),
		CacheControl: c.Get(fiber.HeaderCacheControl),
	}

	metadata := map[string]string{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		name := strings.ToLower(string(key))
		if strings.HasPrefix(name, metadataHeaderPrefix) {
			metadata[strings.TrimPrefix(name, metadataHeaderPrefix)] = string(value)
		}
	})
	if len(metadata) > 0 {
		opts.Metadata = metadata
	}
	return opts
}

// writeCORSHeaders 输出 OPTIONS 预检所需的静态能力描述。
func writeCORSHeaders(c fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, HEAD, PUT, DELETE, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "*")
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, "\"") {
		return etag
	}
	return "\"" + etag + "\""
}
