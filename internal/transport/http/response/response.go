package response

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody 所有失败响应的统一形状
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody 只带提示语的成功响应
type MessageBody struct {
	Message string `json:"message"`
}

func Error(msg string) ErrorBody { return ErrorBody{Error: msg} }

func Message(msg string) MessageBody { return MessageBody{Message: msg} }

func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Error(msg))
}

// Fail 5xx 记录完整错误，客户端只看到安全消息
func Fail(c *gin.Context, l *zap.Logger, err error) {
	status, msg := StatusOf(err)
	if status >= 500 {
		l.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	Abort(c, status, msg)
}
