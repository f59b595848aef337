package public

import "github.com/fastship-next/internal/provider"

// Handler 公开接口处理器入口
// 说明：注册、登录、邮箱验证、公开追踪、评价提交与健康检查，不需要登录。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
