package server

import (
	"encoding/xml"

	"github.com/gofiber/fiber/v3"
)

// APIError 是封闭的错误分类：状态码 + S3 风格错误码 + 面向客户端的消息。
// 内部诊断细节永远不进入 wire 响应，只进日志。
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// 错误分类全集。写路径的两类 AccessDenied 通过状态码区分：
// 403 表示 Host 不具备写意图，401 表示缺少凭证。
var (
	ErrInvalidKey = &APIError{
		Status:  fiber.StatusBadRequest,
		Code:    "InvalidKey",
		Message: "The object key is empty or invalid.",
	}
	ErrWriteNotAllowed = &APIError{
		Status:  fiber.StatusForbidden,
		Code:    "AccessDenied",
		Message: "Write operations are not allowed on this host.",
	}
	ErrMissingCredential = &APIError{
		Status:  fiber.StatusUnauthorized,
		Code:    "AccessDenied",
		Message: "Missing or invalid authorization credential.",
	}
	ErrNoSuchKey = &APIError{
		Status:  fiber.StatusNotFound,
		Code:    "NoSuchKey",
		Message: "The specified key does not exist.",
	}
	ErrMethodNotAllowed = &APIError{
		Status:  fiber.StatusMethodNotAllowed,
		Code:    "MethodNotAllowed",
		Message: "The specified method is not allowed against this resource.",
	}
	ErrNotImplemented = &APIError{
		Status:  fiber.StatusNotImplemented,
		Code:    "NotImplemented",
		Message: "Bucket listing is not implemented.",
	}
	ErrInternal = &APIError{
		Status:  fiber.StatusInternalServerError,
		Code:    "InternalError",
		Message: "We encountered an internal error. Please try again.",
	}
)

// errorEnvelope 是最小化的 S3 风格 XML 错误文档。
type errorEnvelope struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestID string   `xml:"RequestId"`
}

// writeAPIError 渲染 XML 错误信封并带上请求关联 ID。
func writeAPIError(c fiber.Ctx, apiErr *APIError, requestID string) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	body, err := xml.Marshal(errorEnvelope{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: requestID,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("")
	}
	return c.Status(apiErr.Status).Send(body)
}
