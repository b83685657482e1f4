package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

// GoalRepository SMART 目标数据访问接口
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	GetByID(ctx context.Context, id string) (*model.Goal, error)
	// Update 乐观锁更新，成功后 goal.Version 自增
	Update(ctx context.Context, goal *model.Goal) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Goal, error)
	// ListByStudent mentorExternalID 非空时只返回该导师会话下的目标
	ListByStudent(ctx context.Context, studentExternalID, mentorExternalID string) ([]model.Goal, error)
	AppendVersion(ctx context.Context, v *model.GoalVersion) error
	ListVersions(ctx context.Context, goalID string) ([]model.GoalVersion, error)
}

type goalRepo struct {
	db *gorm.DB
}

// NewGoalRepo 创建 GoalRepository 实例
func NewGoalRepo(db *gorm.DB) GoalRepository {
	return &goalRepo{db: db}
}

func (r *goalRepo) Create(ctx context.Context, goal *model.Goal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *goalRepo) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	var goal model.Goal
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", id).
		First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) Update(ctx context.Context, goal *model.Goal) error {
	oldVersion := goal.Version
	result := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("goal_id = ? AND version = ?", goal.GoalID, oldVersion).
		Updates(map[string]interface{}{
			"title":      goal.Title,
			"specific":   goal.Specific,
			"measurable": goal.Measurable,
			"achievable": goal.Achievable,
			"relevant":   goal.Relevant,
			"time_bound": goal.TimeBound,
			"status":     goal.Status,
			"updated_by": goal.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	goal.Version = oldVersion + 1
	return nil
}

func (r *goalRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Goal, error) {
	var list []model.Goal
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *goalRepo) ListByStudent(ctx context.Context, studentExternalID, mentorExternalID string) ([]model.Goal, error) {
	var list []model.Goal
	q := r.db.WithContext(ctx).Where("student_external_id = ?", studentExternalID)
	if mentorExternalID != "" {
		q = q.Where("session_id IN (?)", r.db.Model(&model.CounselingSession{}).
			Select("session_id").
			Where("mentor_external_id = ?", mentorExternalID))
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *goalRepo) AppendVersion(ctx context.Context, v *model.GoalVersion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *goalRepo) ListVersions(ctx context.Context, goalID string) ([]model.GoalVersion, error) {
	var list []model.GoalVersion
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("version ASC").
		Find(&list).Error
	return list, err
}
