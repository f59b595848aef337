package shared

import (
	"fmt"
	"net/http"

	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// kindStatus 业务错误分类到 HTTP 状态码的映射
var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:         http.StatusBadRequest,
	service.KindNotFound:           http.StatusNotFound,
	service.KindNotAuthorized:      http.StatusForbidden,
	service.KindPartnerUnavailable: http.StatusNotAcceptable,
	service.KindInvalidToken:       http.StatusUnauthorized,
	service.KindAlreadyExists:      http.StatusConflict,
	service.KindUnauthenticated:    http.StatusUnauthorized,
}

// ValidateErrorMapping 启动时校验每个业务错误分类都有对应状态码
func ValidateErrorMapping() error {
	for _, kind := range service.ErrorKinds() {
		if _, ok := kindStatus[kind]; !ok {
			return fmt.Errorf("error kind %s has no http status mapping", kind)
		}
	}
	return nil
}

// StatusForError 业务错误对应的 HTTP 状态码，非业务错误为 500
func StatusForError(err error) int {
	if status, ok := kindStatus[service.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.S().With("request_id", id)
		}
	}
	return logger.S()
}

// RespondServiceError 按错误分类返回响应；内部错误只记录日志不透出细节
func RespondServiceError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		RespondErrorWithMsg(c, status, "internal server error", err)
		return
	}
	response.ErrorWithData(c, status, err.Error(), gin.H{"error": service.KindOf(err).String()})
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondBindError 请求体或参数解析失败
func RespondBindError(c *gin.Context, err error) {
	RequestLog(c).Debugw("handler_bind_failed", "error", err)
	response.ErrorWithData(c, response.CodeBadRequest, "invalid request", gin.H{"error": service.KindValidation.String(), "detail": err.Error()})
}
