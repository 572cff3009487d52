package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/objhub/objhub/internal/config"
	"github.com/objhub/objhub/internal/logging"
	"github.com/objhub/objhub/internal/notify"
	"github.com/objhub/objhub/internal/origin"
	"github.com/objhub/objhub/internal/resolver"
	"github.com/objhub/objhub/internal/server"
	"github.com/objhub/objhub/internal/server/routes"
	"github.com/objhub/objhub/internal/store"
	"github.com/objhub/objhub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	snapshot, err := config.NewSnapshot(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}
	cfg := snapshot.Current()

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	for _, warning := range cfg.Warnings() {
		logger.WithFields(logrus.Fields{
			"action": "config_fallback",
			"detail": warning,
		}).Warn("配置字段回退为默认值")
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["store_backend"] = cfg.Global.StoreBackend
		fields["origin_configured"] = cfg.Origin.Configured()
		fields["queue_configured"] = cfg.Queue.Configured()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	local, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化本地存储失败: %v\n", err)
		return 1
	}

	fetcher, err := buildOrigin(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化上游源失败: %v\n", err)
		return 1
	}

	sink, err := buildSink(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化同步队列失败: %v\n", err)
		return 1
	}

	// 启动顺序固定：配置 → 本地存储 → 上游源 → 队列 → 解析器 → Fiber server，
	// 所有请求共享同一套解析器与存储实例。
	res := resolver.New(local, fetcher, sink, logger, cfg.Global.MaxObjectBufferBytes)
	guard := server.NewGuard()
	handler := server.NewHandler(res, local, sink, guard, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["store_backend"] = cfg.Global.StoreBackend
	fields["origin_configured"] = cfg.Origin.Configured()
	fields["queue_configured"] = cfg.Queue.Configured()
	fields["auth_mode"] = guard.AuthMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	watchReload(snapshot, logger)

	if err := startHTTPServer(snapshot, handler, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("objhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 OBJHUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("OBJHUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// buildStore 按配置选择本地存储后端。
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Global.StoreBackend {
	case "s3":
		return store.NewS3Store(store.S3Options{
			Endpoint:  cfg.LocalS3.Endpoint,
			Region:    cfg.LocalS3.Region,
			AccessKey: cfg.LocalS3.AccessKey,
			SecretKey: cfg.LocalS3.SecretKey,
			Bucket:    cfg.LocalS3.Bucket,
			PathStyle: cfg.LocalS3.PathStyle,
		})
	default:
		return store.NewFSStore(cfg.Global.StoragePath)
	}
}

// buildOrigin 在配置了上游桶时构建懒加载读取器，未配置时返回 nil，
// 此时未命中直接视为 NoSuchKey。
func buildOrigin(cfg *config.Config) (origin.Fetcher, error) {
	if !cfg.Origin.Configured() {
		return nil, nil
	}
	return origin.NewS3Fetcher(origin.Options{
		Endpoint:  cfg.Origin.Endpoint,
		Region:    cfg.Origin.Region,
		AccessKey: cfg.Origin.AccessKey,
		SecretKey: cfg.Origin.SecretKey,
		Bucket:    cfg.Origin.Bucket,
		PathStyle: cfg.Origin.PathStyle,
		Timeout:   cfg.Global.UpstreamTimeout.DurationValue(),
	})
}

// buildSink 优先使用 SQS 队列，未配置时退化为日志 sink，事件不会丢失记录。
func buildSink(cfg *config.Config, logger *logrus.Logger) (notify.Sink, error) {
	if !cfg.Queue.Configured() {
		return notify.NewLogSink(logger), nil
	}
	return notify.NewSQSSink(notify.SQSOptions{
		QueueURL:  cfg.Queue.URL,
		Region:    cfg.Queue.Region,
		Endpoint:  cfg.Queue.Endpoint,
		AccessKey: cfg.Queue.AccessKey,
		SecretKey: cfg.Queue.SecretKey,
	})
}

// watchReload 监听 SIGHUP 并热重载配置。重载只影响每请求绑定的部分
// （域名模式、默认 Cache-Control 等），后端连接变更需要重启进程。
func watchReload(snapshot *config.Snapshot, logger *logrus.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)

	go func() {
		for range ch {
			cfg, err := snapshot.Reload()
			if err != nil {
				logger.WithError(err).WithField("action", "config_reload_failed").
					Warn("配置重载失败，继续使用旧配置")
				continue
			}
			fields := logrus.Fields{
				"action":             "config_reloaded",
				"read_host_pattern":  cfg.ReadHostRegexp().String(),
				"write_host_pattern": cfg.WriteHostRegexp().String(),
			}
			logger.WithFields(fields).Info("配置重载完成")
			for _, warning := range cfg.Warnings() {
				logger.WithFields(logrus.Fields{
					"action": "config_fallback",
					"detail": warning,
				}).Warn("配置字段回退为默认值")
			}
		}
	}()
}

func startHTTPServer(snapshot *config.Snapshot, handler server.ObjectHandler, logger *logrus.Logger) error {
	port := snapshot.Current().Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Config:     snapshot,
		Objects:    handler,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterStatusRoutes(app, routes.StatusOptions{
		Config:  snapshot,
		Version: version.Full(),
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
