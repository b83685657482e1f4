package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/pkg/metrics"
	"mentor-hub/backend/pkg/response"
)

// RateLimiter 滑动窗口计数（由 pkg/redis 实现）
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按路由与调用方限流。
// 已认证请求以 user_id 计数，否则以客户端 IP 计数。
// limiter 为 nil 或出错时降级放行。
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		key := "rate_limit:" + route + ":" + rateLimitSubject(c)
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimited.WithLabelValues(route).Inc()
			c.Header("Retry-After", retryAfter)
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitSubject(c *gin.Context) string {
	if uid := c.GetString("user_id"); uid != "" {
		return "u:" + uid
	}
	return "ip:" + c.ClientIP()
}
