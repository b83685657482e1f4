package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/repository"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

// ── 学生反馈业务错误 ──

var (
	ErrFeedbackExists       = errors.New("已提交过该会话的反馈")
	ErrFeedbackNotAttendee  = errors.New("只有会话参与者可以提交反馈")
	ErrFeedbackSessionState = errors.New("会话已取消，不能提交反馈")
)

// SessionFeedbackService 学生会话反馈业务接口
type SessionFeedbackService interface {
	Submit(ctx context.Context, actor permission.Actor, sessionID string, req *dto.SubmitSessionFeedbackRequest) (*dto.SessionFeedbackResponse, error)
	ListBySession(ctx context.Context, actor permission.Actor, sessionID string) ([]dto.SessionFeedbackResponse, error)
}

type sessionFeedbackService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSessionFeedbackService 创建 SessionFeedbackService 实例
func NewSessionFeedbackService(repo *repository.Repository, logger *zap.Logger) SessionFeedbackService {
	return &sessionFeedbackService{repo: repo, logger: logger}
}

// Submit 学生对参与过的会话提交一次反馈
func (s *sessionFeedbackService) Submit(ctx context.Context, actor permission.Actor, sessionID string, req *dto.SubmitSessionFeedbackRequest) (*dto.SessionFeedbackResponse, error) {
	if !actor.Can(permission.SessionFeedback) {
		return nil, pkgerrors.ErrPermissionDenied
	}

	sess, err := s.repo.Session.GetDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询会话失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}
	if !hasParticipant(sess, actor.ExternalID) {
		return nil, ErrFeedbackNotAttendee
	}
	if sess.Status == model.SessionCancelled {
		return nil, ErrFeedbackSessionState
	}

	exists, err := s.repo.SessionFeedback.Exists(ctx, sessionID, actor.ExternalID)
	if err != nil {
		s.logger.Error("查询学生反馈失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrFeedbackExists
	}

	fb := &model.SessionFeedback{
		SessionID:         sessionID,
		StudentExternalID: actor.ExternalID,
		Rating:            req.Rating,
		Comments:          strings.TrimSpace(req.Comments),
	}
	fb.CreatedBy = &actor.UserID
	fb.UpdatedBy = &actor.UserID

	if err := s.repo.SessionFeedback.Create(ctx, fb); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrFeedbackExists
		}
		s.logger.Error("提交学生反馈失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	resp := toSessionFeedbackResponse(fb)
	return &resp, nil
}

// ListBySession 管理员与会话导师查看全部反馈，学生只看到自己的
func (s *sessionFeedbackService) ListBySession(ctx context.Context, actor permission.Actor, sessionID string) ([]dto.SessionFeedbackResponse, error) {
	sess, err := s.repo.Session.GetDetail(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if err := canView(actor, sess); err != nil {
		return nil, err
	}

	list, err := s.repo.SessionFeedback.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询学生反馈失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionFeedbackResponse, 0, len(list))
	for i := range list {
		if actor.IsMentee() && list[i].StudentExternalID != actor.ExternalID {
			continue
		}
		result = append(result, toSessionFeedbackResponse(&list[i]))
	}
	return result, nil
}

func toSessionFeedbackResponse(fb *model.SessionFeedback) dto.SessionFeedbackResponse {
	return dto.SessionFeedbackResponse{
		ID:                fb.FeedbackID,
		SessionID:         fb.SessionID,
		StudentExternalID: fb.StudentExternalID,
		Rating:            fb.Rating,
		Comments:          fb.Comments,
		CreatedAt:         fb.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
