package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/objhub/objhub/internal/server"
)

// StatusOptions 描述 /-/status 输出所需的运行时信息。
type StatusOptions struct {
	Config  server.ConfigSource
	Version string
}

// RegisterStatusRoutes 暴露 /-/status 诊断接口，供运维确认生效配置。
// `/-/` 前缀是诊断保留命名空间，对象键不会落在这里。
func RegisterStatusRoutes(app *fiber.App, opts StatusOptions) {
	if app == nil || opts.Config == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		cfg := opts.Config.Current()
		return c.JSON(fiber.Map{
			"version":            opts.Version,
			"store_backend":      cfg.Global.StoreBackend,
			"origin_configured":  cfg.Origin.Configured(),
			"queue_configured":   cfg.Queue.Configured(),
			"read_host_pattern":  cfg.ReadHostRegexp().String(),
			"write_host_pattern": cfg.WriteHostRegexp().String(),
		})
	})
}
