package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
)

// AuditLogRepository 会话审计日志数据访问接口（只追加）
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.SessionAuditLog) error
	ListBySession(ctx context.Context, sessionID string) ([]model.SessionAuditLog, error)
}

type auditLogRepo struct {
	db *gorm.DB
}

// NewAuditLogRepo 创建 AuditLogRepository 实例
func NewAuditLogRepo(db *gorm.DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, log *model.SessionAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *auditLogRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SessionAuditLog, error) {
	var list []model.SessionAuditLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
