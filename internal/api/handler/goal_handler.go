package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// GoalHandler SMART 目标模块 HTTP 处理器
type GoalHandler struct {
	goalSvc service.GoalService
}

// NewGoalHandler 创建 GoalHandler
func NewGoalHandler(goalSvc service.GoalService) *GoalHandler {
	return &GoalHandler{goalSvc: goalSvc}
}

// CreateGoal 为会话中的学生创建目标
// POST /api/v1/sessions/:id/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req dto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	g, err := h.goalSvc.Create(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.Created(c, g)
}

// ListSessionGoals 会话下的目标
// GET /api/v1/sessions/:id/goals
func (h *GoalHandler) ListSessionGoals(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.goalSvc.ListBySession(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListStudentGoals 某学生的全部目标
// GET /api/v1/students/:external_id/goals
func (h *GoalHandler) ListStudentGoals(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.goalSvc.ListByStudent(c.Request.Context(), actor, c.Param("external_id"))
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// UpdateGoal 修改目标内容，携带 version 时做乐观锁校验
// PUT /api/v1/goals/:id
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	var req dto.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	g, err := h.goalSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, g)
}

// UpdateGoalStatus 修改目标状态
// PUT /api/v1/goals/:id/status
func (h *GoalHandler) UpdateGoalStatus(c *gin.Context) {
	var req dto.UpdateGoalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	g, err := h.goalSvc.UpdateStatus(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, g)
}

// GoalHistory 目标版本历史
// GET /api/v1/goals/:id/history
func (h *GoalHandler) GoalHistory(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.goalSvc.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleGoalError 统一处理目标模块业务错误
func (h *GoalHandler) handleGoalError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrGoalNotFound):
		response.NotFound(c, 19001, "目标不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 19002, "会话不存在")
	case errors.Is(err, service.ErrGoalTimeBound):
		response.BadRequest(c, 19003, "目标截止日期格式错误")
	case errors.Is(err, service.ErrGoalStudentMissing):
		response.BadRequest(c, 19004, "目标学生必须是会话参与者")
	default:
		response.InternalError(c, err)
	}
}
