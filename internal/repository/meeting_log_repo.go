package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
)

// MeetingLogRepository 会谈记录数据访问接口
type MeetingLogRepository interface {
	Create(ctx context.Context, log *model.MeetingLog) error
	ListBySession(ctx context.Context, sessionID string) ([]model.MeetingLog, error)
	// CountWithFocus 统计 focus 非空的会谈记录数
	CountWithFocus(ctx context.Context, sessionID string) (int64, error)
}

type meetingLogRepo struct {
	db *gorm.DB
}

// NewMeetingLogRepo 创建 MeetingLogRepository 实例
func NewMeetingLogRepo(db *gorm.DB) MeetingLogRepository {
	return &meetingLogRepo{db: db}
}

func (r *meetingLogRepo) Create(ctx context.Context, log *model.MeetingLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *meetingLogRepo) ListBySession(ctx context.Context, sessionID string) ([]model.MeetingLog, error) {
	var list []model.MeetingLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *meetingLogRepo) CountWithFocus(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.MeetingLog{}).
		Where("session_id = ? AND TRIM(focus) <> ''", sessionID).
		Count(&n).Error
	return n, err
}
