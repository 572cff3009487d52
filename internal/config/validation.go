package config

import (
	"errors"
	"fmt"
	"net/url"
)

var supportedBackends = map[string]struct{}{
	"fs": {},
	"s3": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
// 注意：可回退的字段（域名模式、Cache-Control）不在这里拦截，
// 只有结构性错误才会让启动失败。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if _, ok := supportedBackends[g.StoreBackend]; !ok {
		return newFieldError("StoreBackend", "仅支持 fs|s3")
	}
	if g.StoreBackend == "fs" && g.StoragePath == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	if g.StoreBackend == "s3" && !c.LocalS3.Configured() {
		return newFieldError("LocalS3.Bucket", "StoreBackend=s3 时不能为空")
	}
	if g.MaxObjectBufferBytes <= 0 {
		return newFieldError("MaxObjectBufferBytes", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "必须大于 0")
	}

	if c.LocalS3.Configured() {
		if err := validateEndpoint(c.LocalS3.Endpoint); err != nil {
			return fmt.Errorf("LocalS3.Endpoint: %w", err)
		}
	}
	if c.Origin.Configured() {
		if err := validateEndpoint(c.Origin.Endpoint); err != nil {
			return fmt.Errorf("Origin.Endpoint: %w", err)
		}
		if (c.Origin.AccessKey == "") != (c.Origin.SecretKey == "") {
			return newFieldError("Origin.AccessKey/SecretKey", "必须同时提供或同时留空")
		}
	}
	if c.Queue.Configured() {
		if _, err := url.Parse(c.Queue.URL); err != nil {
			return fmt.Errorf("Queue.URL: %w", err)
		}
	}

	return nil
}

// validateEndpoint 允许留空（走 SDK 默认端点），非空时必须是 http/https URL。
func validateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，端点: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("端点缺少 Host: %s", raw)
	}
	return nil
}
