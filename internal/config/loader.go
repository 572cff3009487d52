package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 内置默认值：读模式放行所有 Host，写模式默认不匹配任何 Host。
const (
	DefaultReadHostPattern   = ".*"
	DefaultWriteHostPattern  = "^$"
	DefaultCacheControlValue = "public, max-age=86400"
	DefaultMaxObjectBuffer   = 256 * 1024 * 1024
	defaultStoreBackend      = "fs"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	compileHostPatterns(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.StoreBackend == "fs" {
		absStorage, err := filepath.Abs(cfg.Global.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("无法解析存储目录: %w", err)
		}
		cfg.Global.StoragePath = absStorage
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoreBackend", defaultStoreBackend)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("DefaultCacheControl", DefaultCacheControlValue)
	v.SetDefault("MaxObjectBufferBytes", DefaultMaxObjectBuffer)
	v.SetDefault("ReadHostPattern", DefaultReadHostPattern)
	v.SetDefault("WriteHostPattern", DefaultWriteHostPattern)
	v.SetDefault("UpstreamTimeout", "30s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.StoreBackend) == "" {
		g.StoreBackend = defaultStoreBackend
	}
	g.StoreBackend = strings.ToLower(strings.TrimSpace(g.StoreBackend))
	if strings.TrimSpace(g.DefaultCacheControl) == "" {
		g.DefaultCacheControl = DefaultCacheControlValue
	}
	if g.MaxObjectBufferBytes == 0 {
		g.MaxObjectBufferBytes = DefaultMaxObjectBuffer
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
}

// compileHostPatterns 编译读/写域名正则。非法模式不应让启动失败：
// 记录降级提示并回退到内置默认值。
func compileHostPatterns(cfg *Config) {
	cfg.readHost = compileOrFallback(cfg, "ReadHostPattern", cfg.Global.ReadHostPattern, DefaultReadHostPattern)
	cfg.writeHost = compileOrFallback(cfg, "WriteHostPattern", cfg.Global.WriteHostPattern, DefaultWriteHostPattern)
}

func compileOrFallback(cfg *Config, field, pattern, fallback string) *regexp.Regexp {
	if strings.TrimSpace(pattern) == "" {
		pattern = fallback
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		cfg.warnings = append(cfg.warnings, fmt.Sprintf("%s 非法（%v），回退为 %q", field, err, fallback))
		return regexp.MustCompile(fallback)
	}
	return compiled
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
