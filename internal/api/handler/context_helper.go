package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/permission"
	pkgerrors "mentor-hub/backend/pkg/errors"
	"mentor-hub/backend/pkg/response"
	"mentor-hub/backend/pkg/validate"
)

// 上下文键，由 JWTAuth 中间件写入
const (
	CtxUserID       = "user_id"
	CtxRole         = "role"
	CtxExternalID   = "external_id"
	CtxDepartmentID = "department_id"
	CtxTokenJTI     = "token_jti"
	CtxTokenExp     = "token_exp"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 从上下文构造本次请求的执行者。
// 角色不在允许集合内时按未认证处理。
func MustGetActor(c *gin.Context) (permission.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return permission.Actor{}, false
	}
	actor, err := permission.NewActor(userID, c.GetString(CtxExternalID), c.GetString(CtxRole))
	if err != nil {
		response.Unauthorized(c, 10002, "未认证")
		return permission.Actor{}, false
	}
	return actor, true
}

// tokenMeta 取出当前 Access Token 的 JTI 与过期时间
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString(CtxTokenJTI)
	exp, _ := c.Get(CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// bindFailed 参数校验失败统一响应；请求体被 BodyLimit 截断时返回 413
func bindFailed(c *gin.Context, err error) {
	if bodyTooLarge(c, err) {
		return
	}
	response.ErrorWithDetails(c, 400, 10001, "参数校验失败", validate.FormatErrors(err))
}

func bodyTooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	response.TooLarge(c)
	return true
}

// handleCommonError 处理跨模块通用错误，已处理返回 true
func handleCommonError(c *gin.Context, err error) bool {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.Unprocessable(c, 10006, ve.Message)
		return true
	}
	switch {
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10007, "数据已被其他操作修改，请刷新后重试")
	default:
		return false
	}
	return true
}
