package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// CycleHandler 分配周期模块 HTTP 处理器
type CycleHandler struct {
	cycleSvc service.CycleService
}

// NewCycleHandler 创建 CycleHandler
func NewCycleHandler(cycleSvc service.CycleService) *CycleHandler {
	return &CycleHandler{cycleSvc: cycleSvc}
}

// ListCycles 获取周期列表
// GET /api/v1/cycles
func (h *CycleHandler) ListCycles(c *gin.Context) {
	cycles, err := h.cycleSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{"list": cycles})
}

// GetCycle 获取周期详情
// GET /api/v1/cycles/:id
func (h *CycleHandler) GetCycle(c *gin.Context) {
	cycle, err := h.cycleSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// GetActiveCycle 获取当前生效周期
// GET /api/v1/cycles/active
func (h *CycleHandler) GetActiveCycle(c *gin.Context) {
	cycle, err := h.cycleSvc.GetActive(c.Request.Context())
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// CreateCycle 创建周期
// POST /api/v1/cycles
func (h *CycleHandler) CreateCycle(c *gin.Context) {
	var req dto.CreateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.Created(c, cycle)
}

// UpdateCycle 更新周期
// PUT /api/v1/cycles/:id
func (h *CycleHandler) UpdateCycle(c *gin.Context) {
	var req dto.UpdateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// ActivateCycle 激活周期，原生效周期自动关闭
// PUT /api/v1/cycles/:id/activate
func (h *CycleHandler) ActivateCycle(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.Activate(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// LockCycle 锁定周期，锁定后不能新建分配
// PUT /api/v1/cycles/:id/lock
func (h *CycleHandler) LockCycle(c *gin.Context) {
	h.setLocked(c, true)
}

// UnlockCycle 解除锁定
// PUT /api/v1/cycles/:id/unlock
func (h *CycleHandler) UnlockCycle(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *CycleHandler) setLocked(c *gin.Context, locked bool) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cycle, err := h.cycleSvc.SetLocked(c.Request.Context(), c.Param("id"), locked, callerID)
	if err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, cycle)
}

// DeleteCycle 删除周期
// DELETE /api/v1/cycles/:id
func (h *CycleHandler) DeleteCycle(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.cycleSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleCycleError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleCycleError 统一处理周期模块业务错误
func (h *CycleHandler) handleCycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		response.NotFound(c, 14001, "分配周期不存在")
	case errors.Is(err, service.ErrNoActiveCycle):
		response.NotFound(c, 14002, "当前没有开放的分配周期")
	case errors.Is(err, service.ErrCycleDateInvalid):
		response.BadRequest(c, 14003, "周期结束日期必须晚于开始日期")
	case errors.Is(err, service.ErrCycleActiveDelete):
		response.BadRequest(c, 14004, "不能删除当前生效的周期")
	case errors.Is(err, service.ErrCycleClosed):
		response.BadRequest(c, 14005, "周期已关闭，不能重新激活")
	default:
		response.InternalError(c, err)
	}
}
