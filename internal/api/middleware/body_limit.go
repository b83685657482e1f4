package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/pkg/response"
)

// BodyLimit 请求体大小限制。
// 声明的 Content-Length 超限时直接拒绝；分块上传在读取时截断，
// handler 绑定失败后在此统一改写为 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, ge := range c.Errors {
			if errors.As(ge.Err, &tooLarge) {
				response.TooLarge(c)
				return
			}
		}
	}
}
