package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// FeedbackHandler 学生会话反馈 HTTP 处理器
type FeedbackHandler struct {
	feedbackSvc service.SessionFeedbackService
}

// NewFeedbackHandler 创建 FeedbackHandler
func NewFeedbackHandler(feedbackSvc service.SessionFeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackSvc: feedbackSvc}
}

// SubmitFeedback 学生提交会话反馈，每人每会话一次
// POST /api/v1/sessions/:id/feedback
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var req dto.SubmitSessionFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fb, err := h.feedbackSvc.Submit(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleFeedbackError(c, err)
		return
	}

	response.Created(c, fb)
}

// ListFeedback 会话反馈列表；学生只看到自己的
// GET /api/v1/sessions/:id/feedback
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.feedbackSvc.ListBySession(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleFeedbackError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *FeedbackHandler) handleFeedbackError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21001, "会话不存在")
	case errors.Is(err, service.ErrFeedbackExists):
		response.Conflict(c, 21002, "已提交过该会话的反馈")
	case errors.Is(err, service.ErrFeedbackNotAttendee):
		response.Forbidden(c, 21003, "只有会话参与者可以提交反馈")
	case errors.Is(err, service.ErrFeedbackSessionState):
		response.Conflict(c, 21004, "会话已取消，不能提交反馈")
	default:
		response.InternalError(c, err)
	}
}
