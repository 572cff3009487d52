package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级运行时行为。
type GlobalConfig struct {
	ListenPort           int      `mapstructure:"ListenPort"`
	LogLevel             string   `mapstructure:"LogLevel"`
	LogFilePath          string   `mapstructure:"LogFilePath"`
	LogMaxSize           int      `mapstructure:"LogMaxSize"`
	LogMaxBackups        int      `mapstructure:"LogMaxBackups"`
	LogCompress          bool     `mapstructure:"LogCompress"`
	StoreBackend         string   `mapstructure:"StoreBackend"`
	StoragePath          string   `mapstructure:"StoragePath"`
	DefaultCacheControl  string   `mapstructure:"DefaultCacheControl"`
	MaxObjectBufferBytes int64    `mapstructure:"MaxObjectBufferBytes"`
	ReadHostPattern      string   `mapstructure:"ReadHostPattern"`
	WriteHostPattern     string   `mapstructure:"WriteHostPattern"`
	UpstreamTimeout      Duration `mapstructure:"UpstreamTimeout"`
}

// S3Config 描述一个 S3 兼容端点（本地存储与上游源存储共用同一形状）。
type S3Config struct {
	Endpoint  string `mapstructure:"Endpoint"`
	Region    string `mapstructure:"Region"`
	AccessKey string `mapstructure:"AccessKey"`
	SecretKey string `mapstructure:"SecretKey"`
	Bucket    string `mapstructure:"Bucket"`
	PathStyle bool   `mapstructure:"PathStyle"`
}

// Configured 表示该端点是否启用；Bucket 为空视为未配置。
func (s S3Config) Configured() bool {
	return s.Bucket != ""
}

// QueueConfig 描述同步事件队列的连接参数。URL 为空视为未配置。
type QueueConfig struct {
	URL       string `mapstructure:"URL"`
	Region    string `mapstructure:"Region"`
	Endpoint  string `mapstructure:"Endpoint"`
	AccessKey string `mapstructure:"AccessKey"`
	SecretKey string `mapstructure:"SecretKey"`
}

// Configured 表示队列是否启用。
func (q QueueConfig) Configured() bool {
	return q.URL != ""
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig `mapstructure:",squash"`
	LocalS3 S3Config     `mapstructure:"LocalS3"`
	Origin  S3Config     `mapstructure:"Origin"`
	Queue   QueueConfig  `mapstructure:"Queue"`

	readHost  *regexp.Regexp
	writeHost *regexp.Regexp
	warnings  []string
}

// ReadHostRegexp 返回编译后的读域名模式；编译失败已在加载阶段回退为默认值。
func (c *Config) ReadHostRegexp() *regexp.Regexp {
	return c.readHost
}

// WriteHostRegexp 返回编译后的写域名模式。
func (c *Config) WriteHostRegexp() *regexp.Regexp {
	return c.writeHost
}

// Warnings 返回加载阶段发生回退的字段提示，供启动日志输出。
func (c *Config) Warnings() []string {
	return c.warnings
}
