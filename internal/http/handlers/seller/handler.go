package seller

import (
	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 卖家接口处理器
type Handler struct {
	*provider.Container
}

// New 创建卖家处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// Me 当前卖家资料
func (h *Handler) Me(c *gin.Context) {
	sellerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	account, err := h.AuthService.Me(constants.RoleSeller, sellerID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, account)
}

// Logout 注销当前令牌
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := shared.AccessClaims(c)
	if !ok {
		return
	}
	if err := h.AuthService.Logout(c.Request.Context(), claims); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "logged out", nil)
}
