package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finplan/backend/internal/ledger/domain"
)

// ErrorResp 统一错误响应
type ErrorResp struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Field  string `json:"field,omitempty"`
}

// statusOf 领域错误类型 -> HTTP 状态码
func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvariant:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(statusOf(de.Kind), ErrorResp{Error: de.Message, Reason: string(de.Reason), Field: de.Field})
		return
	}
	// 非领域错误不暴露细节，交给日志中间件记录
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResp{Error: "internal error"})
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResp{Error: "Invalid request: " + err.Error(), Reason: string(domain.ReasonInvalid)})
}
