package partner

import (
	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/provider"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler 配送员接口处理器
type Handler struct {
	*provider.Container
}

// New 创建配送员处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// UpdateProfileRequest 配送员资料更新请求
// serviceable_zip_codes 提交时整体替换可配送邮编
type UpdateProfileRequest struct {
	Name                *string `json:"name"`
	MaxHandlingCapacity *int    `json:"max_handling_capacity"`
	ServiceableZipCodes []uint  `json:"serviceable_zip_codes"`
}

// Me 当前配送员资料与剩余承接量
func (h *Handler) Me(c *gin.Context) {
	partnerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	profile, err := h.PartnerService.Profile(partnerID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, profile)
}

// UpdateMe 更新配送员资料
func (h *Handler) UpdateMe(c *gin.Context) {
	partnerID, ok := shared.AccountID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	profile, err := h.PartnerService.Update(partnerID, service.UpdatePartnerInput{
		Name:                req.Name,
		MaxHandlingCapacity: req.MaxHandlingCapacity,
		ZipCodes:            req.ServiceableZipCodes,
		ReplaceZipCodes:     req.ServiceableZipCodes != nil,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, profile)
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
