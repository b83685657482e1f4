package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentor-hub/backend/internal/model"
)

// OutboxRepository 发件箱数据访问接口
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending 取出到期的待投递事件；在事务中调用时以 SKIP LOCKED 锁定，多实例互不阻塞
	ClaimPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, attempts int, lastErr string, availableAt time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
}

type outboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo 创建 OutboxRepository 实例
func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *outboxRepo) ClaimPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var list []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND available_at <= NOW()", model.OutboxPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *outboxRepo) MarkDispatched(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.OutboxDispatched,
			"dispatched_at": gorm.Expr("NOW()"),
			"last_error":    "",
		}).Error
}

func (r *outboxRepo) MarkRetry(ctx context.Context, id string, attempts int, lastErr string, availableAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", id).
		Updates(map[string]interface{}{
			"attempts":     attempts,
			"last_error":   lastErr,
			"available_at": availableAt,
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("event_id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxFailed,
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
}
