package response

import (
	"net/http"

	"gin-oracle-auth/internal/core/apperr"
)

// 错误种类到 HTTP 状态（未列出的一律 500）
var KindStatusMap = map[apperr.Kind]int{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindConflict:       http.StatusConflict,
	apperr.KindAuthentication: http.StatusUnauthorized,
}

const (
	MsgUnauthorized   = "Unauthorized"
	MsgInternalServer = "Internal server error"
	MsgInvalidBody    = "invalid request body"
	MsgBodyTooLarge   = "request body too large"
	MsgTooMany        = "too many requests"
	MsgBusy           = "server busy"
	MsgTimeout        = "request timeout"
	MsgNotFound       = "not found"
)

// StatusOf 只有可由调用方纠正的错误才把原始消息带出去
func StatusOf(err error) (int, string) {
	kind := apperr.KindOf(err)
	status, ok := KindStatusMap[kind]
	if !ok {
		return http.StatusInternalServerError, MsgInternalServer
	}
	msg := apperr.MessageOf(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return status, msg
}
