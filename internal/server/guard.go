package server

import "strings"

// Guard 把守写/删路径。基线策略：Host 必须具备写意图，且请求必须携带
// Authorization 头。VerifyCredential 是凭证校验的扩展点，默认实现只检查
// 非空（presence implies valid）——这是上线前必须收紧的安全缺口，
// 启动日志会以 auth_mode=presence-only 显式标记。
type Guard struct {
	// VerifyCredential 返回凭证是否有效。为 nil 时使用默认的非空检查。
	VerifyCredential func(credential string) bool
}

// NewGuard 返回使用默认凭证策略的 Guard。
func NewGuard() *Guard {
	return &Guard{}
}

// AuthMode 输出当前凭证校验模式，供启动日志使用。
func (g *Guard) AuthMode() string {
	if g.VerifyCredential != nil {
		return "custom"
	}
	return "presence-only"
}

// Authorize 校验一次写意图操作。顺序固定：先判意图（403），再判凭证（401）。
func (g *Guard) Authorize(intent Intent, credential string) *APIError {
	if !intent.AllowsWrite() {
		return ErrWriteNotAllowed
	}
	if !g.verify(credential) {
		return ErrMissingCredential
	}
	return nil
}

func (g *Guard) verify(credential string) bool {
	if g.VerifyCredential != nil {
		return g.VerifyCredential(credential)
	}
	return strings.TrimSpace(credential) != ""
}
