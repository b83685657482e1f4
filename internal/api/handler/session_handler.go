package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// SessionHandler 辅导会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateSession 创建会话并邀请学生
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, sess)
}

// ListSessions 会话列表（按角色限定范围）
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.sessionSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSession 会话详情（含参与者、会谈记录、目标、导师反馈）
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// UpdateSession 修改会话；传入 student_ids 时按差集增删参与者
// PUT /api/v1/sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// CompleteSession 完成会话；导师尚未提交反馈时进入待反馈状态
// POST /api/v1/sessions/:id/complete
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// SubmitMentorFeedback 提交导师反馈
// PUT /api/v1/sessions/:id/mentor-feedback
func (h *SessionHandler) SubmitMentorFeedback(c *gin.Context) {
	var req dto.MentorFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.SubmitMentorFeedback(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// CancelSession 取消会话
// POST /api/v1/sessions/:id/cancel
func (h *SessionHandler) CancelSession(c *gin.Context) {
	var req dto.CancelSessionRequest
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

	sess, err := h.sessionSvc.Cancel(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// ReopenSession 重新打开已完成或待反馈的会话
// POST /api/v1/sessions/:id/reopen
func (h *SessionHandler) ReopenSession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.Reopen(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// AddParticipants 追加参与学生
// POST /api/v1/sessions/:id/participants
func (h *SessionHandler) AddParticipants(c *gin.Context) {
	var req dto.AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.AddParticipants(c.Request.Context(), actor, c.Param("id"), req.StudentIDs)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// RemoveParticipant 移除参与学生
// DELETE /api/v1/sessions/:id/participants/:student_id
func (h *SessionHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.RemoveParticipant(c.Request.Context(), actor, c.Param("id"), c.Param("student_id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, sess)
}

// UpdateParticipant 更新参与状态；学生只能确认自己的参与
// PUT /api/v1/sessions/:id/participants/:student_id
func (h *SessionHandler) UpdateParticipant(c *gin.Context) {
	var req dto.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	p, err := h.sessionSvc.UpdateParticipant(c.Request.Context(), actor, c.Param("id"), c.Param("student_id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, p)
}

// AddMeetingLog 填写会谈记录
// POST /api/v1/sessions/:id/meeting-logs
func (h *SessionHandler) AddMeetingLog(c *gin.Context) {
	var req dto.CreateMeetingLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	log, err := h.sessionSvc.AddMeetingLog(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, log)
}

// ListMeetingLogs 会谈记录列表
// GET /api/v1/sessions/:id/meeting-logs
func (h *SessionHandler) ListMeetingLogs(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	logs, err := h.sessionSvc.ListMeetingLogs(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// AuditLogs 会话审计记录
// GET /api/v1/sessions/:id/audit-logs
func (h *SessionHandler) AuditLogs(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	logs, err := h.sessionSvc.AuditLogs(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// Calendar 导出本人相关会话的 iCalendar 订阅
// GET /api/v1/sessions/calendar.ics
func (h *SessionHandler) Calendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	data, err := h.sessionSvc.Calendar(c.Request.Context(), actor)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=sessions.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// handleSessionError 统一处理会话模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 18001, "会话不存在")
	case errors.Is(err, service.ErrSessionCancelled):
		response.Conflict(c, 18002, "会话已取消，不能修改")
	case errors.Is(err, service.ErrSessionTransition):
		response.Conflict(c, 18003, "当前会话状态不允许该操作")
	case errors.Is(err, service.ErrSessionMentorRequired):
		response.BadRequest(c, 18004, "请指定会话导师")
	case errors.Is(err, service.ErrSessionDateInvalid):
		response.BadRequest(c, 18005, "会话日期格式错误")
	case errors.Is(err, service.ErrSessionTimeInvalid):
		response.BadRequest(c, 18006, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrSessionNoParticipants):
		response.BadRequest(c, 18007, "会话至少需要一名学生")
	case errors.Is(err, service.ErrMeetingLogIncomplete):
		response.Unprocessable(c, 18008, "请先填写会谈记录再完成会话")
	case errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, 18009, "该学生不是会话参与者")
	case errors.Is(err, service.ErrParticipantStatusLimit):
		response.Forbidden(c, 18010, "学生只能确认自己的参与")
	default:
		response.InternalError(c, err)
	}
}
