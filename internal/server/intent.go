package server

import (
	"net"
	"strconv"
	"strings"

	"github.com/objhub/objhub/internal/config"
)

// Intent 表示请求方通过 Host 声明的读写意图。读永远是结构性允许的，
// 意图只决定写/删是否放行。
type Intent string

const (
	IntentReadOnly  Intent = "read-only"
	IntentReadWrite Intent = "read-write"
)

// AllowsWrite 表示该意图是否放行写路径。
func (i Intent) AllowsWrite() bool {
	return i == IntentReadWrite
}

// ClassifyHost 用配置中的域名模式判定意图。命中写模式 → read-write；
// 其余一律 read-only：模式配置错误时读路径必须照常工作。
func ClassifyHost(host string, cfg *config.Config) Intent {
	normalized, _ := normalizeHost(host)
	if normalized == "" {
		return IntentReadOnly
	}
	if cfg.WriteHostRegexp().MatchString(normalized) {
		return IntentReadWrite
	}
	return IntentReadOnly
}

// normalizeHost 去掉端口与末尾点号并统一小写，便于模式匹配。
func normalizeHost(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	host := raw
	port := 0

	if strings.Contains(raw, ":") {
		if h, p, err := net.SplitHostPort(raw); err == nil {
			host = h
			if parsedPort, err := strconv.Atoi(p); err == nil {
				port = parsedPort
			}
		} else if idx := strings.LastIndex(raw, ":"); idx > -1 && strings.Count(raw[idx+1:], ":") == 0 {
			if parsedPort, err := strconv.Atoi(raw[idx+1:]); err == nil {
				host = raw[:idx]
				port = parsedPort
			}
		}
	}

	host = strings.TrimSuffix(host, ".")
	host = strings.ToLower(host)
	return host, port
}
