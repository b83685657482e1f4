package service

import (
	"errors"
	"fmt"

	"mentor-hub/backend/internal/model"
)

// ErrSessionTransition 当前状态不允许该操作
var ErrSessionTransition = errors.New("当前会话状态不允许该操作")

// sessionAction 会话操作，同时作为审计日志的 action
type sessionAction string

const (
	actionCreate            sessionAction = "create"
	actionUpdate            sessionAction = "update"
	actionComplete          sessionAction = "complete"
	actionDeferComplete     sessionAction = "defer_complete"
	actionFeedbackComplete  sessionAction = "feedback_complete"
	actionCancel            sessionAction = "cancel"
	actionReopen            sessionAction = "reopen"
	actionAddParticipant    sessionAction = "add_participant"
	actionRemoveParticipant sessionAction = "remove_participant"
)

// 状态机：
//
//	pending          --complete-------------> completed
//	pending          --defer_complete-------> pending_feedback   (导师尚未提交反馈)
//	pending_feedback --complete-------------> completed          (管理员或已有反馈)
//	pending_feedback --feedback_complete----> completed          (与反馈写入同一事务)
//	pending|pending_feedback --cancel-------> cancelled
//	completed|cancelled|pending_feedback --reopen--> pending
var sessionTransitions = map[sessionAction]struct {
	from []model.SessionStatus
	to   model.SessionStatus
}{
	actionComplete: {
		from: []model.SessionStatus{model.SessionPending, model.SessionPendingFeedback},
		to:   model.SessionCompleted,
	},
	actionDeferComplete: {
		from: []model.SessionStatus{model.SessionPending},
		to:   model.SessionPendingFeedback,
	},
	actionFeedbackComplete: {
		from: []model.SessionStatus{model.SessionPendingFeedback},
		to:   model.SessionCompleted,
	},
	actionCancel: {
		from: []model.SessionStatus{model.SessionPending, model.SessionPendingFeedback},
		to:   model.SessionCancelled,
	},
	actionReopen: {
		from: []model.SessionStatus{model.SessionCompleted, model.SessionCancelled, model.SessionPendingFeedback},
		to:   model.SessionPending,
	},
}

// nextSessionStatus 返回操作后的目标状态
func nextSessionStatus(action sessionAction, from model.SessionStatus) (model.SessionStatus, error) {
	t, ok := sessionTransitions[action]
	if !ok {
		return "", fmt.Errorf("未知的会话操作 %q", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", ErrSessionTransition
}
