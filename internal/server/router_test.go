package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

func TestObjectKeyFromPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"/images/logo.png", "images/logo.png"},
		{"//images//logo.png", "images/logo.png"},
		{"/a/./b", "a/b"},
		{"/a/../b", "b"},
		{"/../../etc/passwd", "etc/passwd"},
	}

	for _, tc := range cases {
		if got := objectKeyFromPath(tc.raw); got != tc.want {
			t.Fatalf("objectKeyFromPath(%q) = %q, expected %q", tc.raw, got, tc.want)
		}
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := loadTestConfig(t, "")
	noop := ObjectHandlerFunc(func(c fiber.Ctx, _ *ObjectRequest) error {
		return c.SendStatus(fiber.StatusOK)
	})

	if _, err := NewApp(AppOptions{Config: staticConfig{cfg: cfg}, Objects: noop, ListenPort: 5000}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewApp(AppOptions{Logger: logger, Objects: noop, ListenPort: 5000}); err == nil {
		t.Fatal("expected error for missing config source")
	}
	if _, err := NewApp(AppOptions{Logger: logger, Config: staticConfig{cfg: cfg}, ListenPort: 5000}); err == nil {
		t.Fatal("expected error for missing object handler")
	}
	if _, err := NewApp(AppOptions{Logger: logger, Config: staticConfig{cfg: cfg}, Objects: noop, ListenPort: 0}); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestRouterDerivesRequestContext(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := loadTestConfig(t, `^upload\.`)

	var captured *ObjectRequest
	handler := ObjectHandlerFunc(func(c fiber.Ctx, req *ObjectRequest) error {
		captured = req
		return c.SendStatus(fiber.StatusOK)
	})

	app, err := NewApp(AppOptions{
		Logger:     logger,
		Config:     staticConfig{cfg: cfg},
		Objects:    handler,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		t.Fatalf("build app: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://upload.example.com/images/logo.png", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if captured == nil {
		t.Fatal("object handler not invoked")
	}
	if captured.Key != "images/logo.png" {
		t.Fatalf("unexpected key: %s", captured.Key)
	}
	if captured.Intent != IntentReadWrite {
		t.Fatalf("unexpected intent: %s", captured.Intent)
	}
	if captured.RequestID == "" {
		t.Fatal("request id not populated")
	}
	if captured.Config == nil {
		t.Fatal("config snapshot not bound")
	}
	if got := resp.Header.Get("X-Request-ID"); got != captured.RequestID {
		t.Fatalf("request id header %q does not match context %q", got, captured.RequestID)
	}
}

func TestDiagnosticsPathBypassesObjectHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := loadTestConfig(t, "")

	invoked := false
	handler := ObjectHandlerFunc(func(c fiber.Ctx, _ *ObjectRequest) error {
		invoked = true
		return c.SendStatus(fiber.StatusOK)
	})

	app, err := NewApp(AppOptions{
		Logger:     logger,
		Config:     staticConfig{cfg: cfg},
		Objects:    handler,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	app.Get("/-/ping", func(c fiber.Ctx) error {
		return c.SendString("pong")
	})

	req := httptest.NewRequest(http.MethodGet, "http://read.example.com/-/ping", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if invoked {
		t.Fatal("diagnostics request must not reach the object handler")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Fatalf("unexpected body: %q", body)
	}
}
