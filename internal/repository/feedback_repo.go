package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentor-hub/backend/internal/model"
)

// MentorFeedbackRepository 导师反馈数据访问接口
type MentorFeedbackRepository interface {
	// Upsert 按 (session_id, mentor_external_id) 插入或覆盖
	Upsert(ctx context.Context, fb *model.MentorFeedback) error
	Get(ctx context.Context, sessionID, mentorExternalID string) (*model.MentorFeedback, error)
	Exists(ctx context.Context, sessionID, mentorExternalID string) (bool, error)
}

type mentorFeedbackRepo struct {
	db *gorm.DB
}

// NewMentorFeedbackRepo 创建 MentorFeedbackRepository 实例
func NewMentorFeedbackRepo(db *gorm.DB) MentorFeedbackRepository {
	return &mentorFeedbackRepo{db: db}
}

func (r *mentorFeedbackRepo) Upsert(ctx context.Context, fb *model.MentorFeedback) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "mentor_external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"engagement_rating", "preparedness_rating", "progress_rating", "overall_rating",
				"reflections", "concerns", "recommendations", "updated_at", "updated_by",
			}),
		}).
		Create(fb).Error
}

func (r *mentorFeedbackRepo) Get(ctx context.Context, sessionID, mentorExternalID string) (*model.MentorFeedback, error) {
	var fb model.MentorFeedback
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND mentor_external_id = ?", sessionID, mentorExternalID).
		First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *mentorFeedbackRepo) Exists(ctx context.Context, sessionID, mentorExternalID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.MentorFeedback{}).
		Where("session_id = ? AND mentor_external_id = ?", sessionID, mentorExternalID).
		Count(&n).Error
	return n > 0, err
}

// SessionFeedbackRepository 学生会话反馈数据访问接口
type SessionFeedbackRepository interface {
	Create(ctx context.Context, fb *model.SessionFeedback) error
	Exists(ctx context.Context, sessionID, studentExternalID string) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.SessionFeedback, error)
}

type sessionFeedbackRepo struct {
	db *gorm.DB
}

// NewSessionFeedbackRepo 创建 SessionFeedbackRepository 实例
func NewSessionFeedbackRepo(db *gorm.DB) SessionFeedbackRepository {
	return &sessionFeedbackRepo{db: db}
}

func (r *sessionFeedbackRepo) Create(ctx context.Context, fb *model.SessionFeedback) error {
	return r.db.WithContext(ctx).Create(fb).Error
}

func (r *sessionFeedbackRepo) Exists(ctx context.Context, sessionID, studentExternalID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SessionFeedback{}).
		Where("session_id = ? AND student_external_id = ?", sessionID, studentExternalID).
		Count(&n).Error
	return n > 0, err
}

func (r *sessionFeedbackRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SessionFeedback, error) {
	var list []model.SessionFeedback
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
