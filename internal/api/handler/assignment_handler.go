package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// AssignmentHandler 导师分配模块 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// ValidateAssignment 预校验导师与学生能否建立分配，不写入数据
// POST /api/v1/assignments/validate
func (h *AssignmentHandler) ValidateAssignment(c *gin.Context) {
	var req dto.ValidateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	verdict, err := h.assignmentSvc.Validate(c.Request.Context(), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, verdict)
}

// CreateAssignment 创建分配
// POST /api/v1/assignments
//
// 校验不通过时返回 422，message 为校验结论原文，data 中 success=false
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, http.StatusUnprocessableEntity, 15002, result.Error, result)
			return
		}
		h.handleAssignmentError(c, err)
		return
	}
	if !result.Success {
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 15001, result.Error, result)
		return
	}

	response.Created(c, result)
}

// ListAssignments 分配列表
// GET /api/v1/assignments
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	var req dto.AssignmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	// 导师只能看到自己名下的分配
	if actor.IsMentor() {
		req.MentorExternalID = actor.ExternalID
	}

	list, total, err := h.assignmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetAssignment 分配详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	a, err := h.assignmentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}
	if actor.IsMentor() && a.MentorExternalID != actor.ExternalID {
		response.Forbidden(c, 10003, "无权执行该操作")
		return
	}

	response.OK(c, a)
}

// UpdateAssignment 部分更新分配
// PUT /api/v1/assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// EndAssignment 结束分配
// POST /api/v1/assignments/:id/end
func (h *AssignmentHandler) EndAssignment(c *gin.Context) {
	var req dto.EndAssignmentRequest
	// 请求体可省略
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.End(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// Stats 分配统计
// GET /api/v1/assignments/stats?cycle_id=xxx
func (h *AssignmentHandler) Stats(c *gin.Context) {
	stats, err := h.assignmentSvc.Stats(c.Request.Context(), c.Query("cycle_id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, stats)
}

// ListByMentor 某导师名下的分配
// GET /api/v1/mentors/:external_id/assignments
func (h *AssignmentHandler) ListByMentor(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	mentorID := c.Param("external_id")
	if actor.IsMentor() && mentorID != actor.ExternalID {
		response.Forbidden(c, 10003, "无权执行该操作")
		return
	}

	list, err := h.assignmentSvc.ListByMentor(c.Request.Context(), mentorID, c.Query("cycle_id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListByStudent 某学生的导师分配；学生本人也可查询，导师只返回自己的配对
// GET /api/v1/students/:external_id/assignments
func (h *AssignmentHandler) ListByStudent(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	studentID := c.Param("external_id")
	self := actor.IsMentee() && studentID == actor.ExternalID
	if !self && !actor.Can(permission.AssignmentRead) {
		response.Forbidden(c, 10003, "无权执行该操作")
		return
	}

	list, err := h.assignmentSvc.ListByStudent(c.Request.Context(), studentID, c.Query("cycle_id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}
	// 导师只能看到自己与该学生的配对
	if actor.IsMentor() {
		list = pairedWith(list, actor.ExternalID)
	}

	response.OK(c, gin.H{"list": list})
}

func pairedWith(list []dto.AssignmentResponse, mentorExternalID string) []dto.AssignmentResponse {
	out := make([]dto.AssignmentResponse, 0, len(list))
	for _, a := range list {
		if a.MentorExternalID == mentorExternalID {
			out = append(out, a)
		}
	}
	return out
}

// handleAssignmentError 统一处理分配模块业务错误
func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 15003, "分配记录不存在")
	case errors.Is(err, service.ErrNoActiveCycle):
		response.Unprocessable(c, 15002, "当前没有开放的分配周期")
	case errors.Is(err, service.ErrAssignmentTransition):
		response.BadRequest(c, 15004, "已结束的分配不能恢复，请新建分配")
	case errors.Is(err, service.ErrAssignmentEnded):
		response.BadRequest(c, 15005, "分配已结束")
	case errors.Is(err, service.ErrAssignmentEffectiveTo):
		response.BadRequest(c, 15006, "结束时间不能早于生效时间")
	default:
		response.InternalError(c, err)
	}
}
