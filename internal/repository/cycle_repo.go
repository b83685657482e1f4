package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
)

// CycleRepository 分配周期数据访问接口
type CycleRepository interface {
	Create(ctx context.Context, cycle *model.AssignmentCycle) error
	GetByID(ctx context.Context, id string) (*model.AssignmentCycle, error)
	GetActive(ctx context.Context) (*model.AssignmentCycle, error)
	List(ctx context.Context) ([]model.AssignmentCycle, error)
	Update(ctx context.Context, cycle *model.AssignmentCycle) error
	Delete(ctx context.Context, id string, deletedBy string) error
	ClearActive(ctx context.Context) error
}

type cycleRepo struct {
	db *gorm.DB
}

// NewCycleRepo 创建 CycleRepository 实例
func NewCycleRepo(db *gorm.DB) CycleRepository {
	return &cycleRepo{db: db}
}

func (r *cycleRepo) Create(ctx context.Context, cycle *model.AssignmentCycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *cycleRepo) GetByID(ctx context.Context, id string) (*model.AssignmentCycle, error) {
	var cycle model.AssignmentCycle
	err := r.db.WithContext(ctx).
		Where("cycle_id = ?", id).
		First(&cycle).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// GetActive 当前生效的周期（无论是否锁定）
func (r *cycleRepo) GetActive(ctx context.Context) (*model.AssignmentCycle, error) {
	var cycle model.AssignmentCycle
	err := r.db.WithContext(ctx).
		Where("status = ?", model.CycleActive).
		Order("start_date DESC").
		First(&cycle).Error
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *cycleRepo) List(ctx context.Context) ([]model.AssignmentCycle, error) {
	var cycles []model.AssignmentCycle
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&cycles).Error
	return cycles, err
}

func (r *cycleRepo) Update(ctx context.Context, cycle *model.AssignmentCycle) error {
	return r.db.WithContext(ctx).Save(cycle).Error
}

func (r *cycleRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.AssignmentCycle{}).
		Where("cycle_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// ClearActive 将所有 active 周期置为 closed
func (r *cycleRepo) ClearActive(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.AssignmentCycle{}).
		Where("status = ?", model.CycleActive).
		Update("status", model.CycleClosed).Error
}
