package public

import (
	"strings"

	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SellerSignupRequest 卖家注册请求
type SellerSignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Address  string `json:"address"`
	ZipCode  uint   `json:"zip_code"`
}

// PartnerSignupRequest 配送员注册请求
type PartnerSignupRequest struct {
	Name                string `json:"name" binding:"required"`
	Email               string `json:"email" binding:"required"`
	Password            string `json:"password" binding:"required"`
	MaxHandlingCapacity int    `json:"max_handling_capacity"`
	ServiceableZipCodes []uint `json:"serviceable_zip_codes"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SellerSignup 卖家注册
func (h *Handler) SellerSignup(c *gin.Context) {
	var req SellerSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	seller, err := h.AuthService.SignupSeller(c.Request.Context(), service.SellerSignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
		ZipCode:  req.ZipCode,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Created(c, seller)
}

// PartnerSignup 配送员注册
func (h *Handler) PartnerSignup(c *gin.Context) {
	var req PartnerSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	partner, err := h.AuthService.SignupPartner(c.Request.Context(), service.PartnerSignupInput{
		Name:                req.Name,
		Email:               req.Email,
		Password:            req.Password,
		MaxHandlingCapacity: req.MaxHandlingCapacity,
		ZipCodes:            req.ServiceableZipCodes,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Created(c, partner)
}

// SellerLogin 卖家登录
func (h *Handler) SellerLogin(c *gin.Context) {
	h.login(c, constants.RoleSeller)
}

// PartnerLogin 配送员登录
func (h *Handler) PartnerLogin(c *gin.Context) {
	h.login(c, constants.RolePartner)
}

func (h *Handler) login(c *gin.Context, role string) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	result, err := h.AuthService.Login(role, req.Email, req.Password)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	shared.RequestLog(c).Infow("account_logged_in", "role", role, "account_id", result.Account.AccountID())
	response.Success(c, result)
}

// SellerVerify 卖家邮箱验证
func (h *Handler) SellerVerify(c *gin.Context) {
	h.verify(c, constants.RoleSeller)
}

// PartnerVerify 配送员邮箱验证
func (h *Handler) PartnerVerify(c *gin.Context) {
	h.verify(c, constants.RolePartner)
}

func (h *Handler) verify(c *gin.Context, role string) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		shared.RespondServiceError(c, service.ErrInvalidVerifyToken)
		return
	}
	if err := h.AuthService.VerifyEmail(role, token); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "email verified", gin.H{"verified": true})
}
