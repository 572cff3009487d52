package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供对象请求的公共字段，供 HTTP 层日志复用。
func RequestFields(method, key, host, intent, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"method": method,
		"key":    key,
		"host":   host,
		"intent": intent,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
