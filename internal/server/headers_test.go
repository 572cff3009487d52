package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/objhub/objhub/internal/store"
)

func TestQuoteETag(t *testing.T) {
	if got := quoteETag("abc"); got != `"abc"` {
		t.Fatalf("unexpected quoted etag: %s", got)
	}
	if got := quoteETag(`"abc"`); got != `"abc"` {
		t.Fatalf("already-quoted etag must pass through, got %s", got)
	}
}

func TestWriteObjectHeadersAppliesDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/h", func(c fiber.Ctx) error {
		obj := &store.Object{
			Key:           "k",
			Body:          io.NopCloser(nil),
			ContentLength: -1,
		}
		writeObjectHeaders(c, obj, "public, max-age=86400")
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/h", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("unexpected content type: %s", got)
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=86400" {
		t.Fatalf("unexpected cache control: %s", got)
	}
	if resp.Header.Get("ETag") != "" {
		t.Fatal("etag must be omitted when unknown")
	}
	// 缺省 Last-Modified 取当前时间，只要求可被 HTTP 日期格式解析。
	if _, err := time.Parse(http.TimeFormat, resp.Header.Get("Last-Modified")); err != nil {
		t.Fatalf("invalid last modified header: %v", err)
	}
}

func TestPutOptionsFromRequestExtractsMetadata(t *testing.T) {
	app := fiber.New()
	var captured store.PutOptions
	app.Put("/p", func(c fiber.Ctx) error {
		captured = putOptionsFromRequest(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/p", nil)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Cache-Control", "max-age=30")
	req.Header.Set("X-Amz-Meta-Owner", "docs-team")
	req.Header.Set("x-amz-meta-Origin-Region", "eu-west-1")
	req.Header.Set("X-Custom", "ignored")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if captured.ContentType != "text/plain" {
		t.Fatalf("unexpected content type: %s", captured.ContentType)
	}
	if captured.CacheControl != "max-age=30" {
		t.Fatalf("unexpected cache control: %s", captured.CacheControl)
	}
	if captured.Metadata["owner"] != "docs-team" {
		t.Fatalf("unexpected metadata: %v", captured.Metadata)
	}
	if captured.Metadata["origin-region"] != "eu-west-1" {
		t.Fatalf("metadata keys must be lowercased: %v", captured.Metadata)
	}
	if _, ok := captured.Metadata["x-custom"]; ok {
		t.Fatal("non-metadata headers must be ignored")
	}
}
