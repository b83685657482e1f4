package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/pkg/jwt"
	"mentor-hub/backend/pkg/response"
)

// Blacklist Token 黑名单查询（由 pkg/redis 实现）
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token。
// blacklist 为 nil 或查询出错时降级放行。
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已失效")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("external_id", claims.ExternalID)
		c.Set("department_id", claims.DepartmentID)
		c.Set("token_jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_exp", claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// RequireCapability 能力校验中间件
// 当前角色不具备指定能力之一时返回 403
func RequireCapability(caps ...permission.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := permission.ParseRole(c.GetString("role"))
		if err != nil {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, cp := range caps {
			if permission.Can(role, cp) {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权访问")
		c.Abort()
	}
}
