package shared

import (
	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AccountID 读取鉴权中间件写入的账号 ID，缺失时直接返回 401
func AccountID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeyAccountID)
	if !exists {
		response.Unauthorized(c, "unauthorized")
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		RespondErrorWithMsg(c, response.CodeInternal, "invalid account context", nil)
		return "", false
	}
	return id, true
}

// AccessClaims 读取当前访问令牌声明
func AccessClaims(c *gin.Context) (*service.AccessClaims, bool) {
	value, exists := c.Get(constants.ContextKeyClaims)
	if !exists {
		response.Unauthorized(c, "unauthorized")
		return nil, false
	}
	claims, ok := value.(*service.AccessClaims)
	if !ok || claims == nil {
		RespondErrorWithMsg(c, response.CodeInternal, "invalid account context", nil)
		return nil, false
	}
	return claims, true
}
