package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
)

// AssignmentFilter 分配列表筛选条件，空字段不参与过滤
type AssignmentFilter struct {
	CycleID           string
	MentorExternalID  string
	StudentExternalID string
	Status            string
	Role              string
}

func (f AssignmentFilter) apply(db *gorm.DB) *gorm.DB {
	if f.CycleID != "" {
		db = db.Where("cycle_id = ?", f.CycleID)
	}
	if f.MentorExternalID != "" {
		db = db.Where("mentor_external_id = ?", f.MentorExternalID)
	}
	if f.StudentExternalID != "" {
		db = db.Where("student_external_id = ?", f.StudentExternalID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	return db
}

// AssignmentCounts 分配聚合计数
type AssignmentCounts struct {
	Total          int64 `gorm:"column:total"`
	Active         int64 `gorm:"column:active"`
	Pending        int64 `gorm:"column:pending"`
	Completed      int64 `gorm:"column:completed"`
	NeedsAttention int64 `gorm:"column:needs_attention"`
}

// ConstraintResult 存储过程 validate_assignment_constraints 的返回行
type ConstraintResult struct {
	IsValid           bool    `gorm:"column:is_valid"`
	ErrorMessage      *string `gorm:"column:error_message"`
	StudentDepartment *string `gorm:"column:student_department"`
	StudentProgram    *string `gorm:"column:student_program"`
}

// AssignmentRepository 导师分配数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	Update(ctx context.Context, a *model.Assignment) error
	List(ctx context.Context, filter AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error)
	ListAll(ctx context.Context, filter AssignmentFilter) ([]model.Assignment, error)
	CountActiveByMentor(ctx context.Context, mentorExternalID, cycleID string) (int64, error)
	Stats(ctx context.Context, cycleID string) (*AssignmentCounts, error)
	// ValidateConstraints 调用数据库中的只读校验过程
	ValidateConstraints(ctx context.Context, mentorExternalID, studentExternalID, cycleID string, role model.AssignmentRole) (*ConstraintResult, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).Omit("Cycle").Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Cycle").
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update 整行覆盖写入，并发编辑以最后一次写入为准
func (r *assignmentRepo) Update(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).Omit("Cycle").Save(a).Error
}

func (r *assignmentRepo) List(ctx context.Context, filter AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error) {
	var list []model.Assignment
	var total int64

	db := filter.apply(r.db.WithContext(ctx).Model(&model.Assignment{}))
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Cycle").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *assignmentRepo) ListAll(ctx context.Context, filter AssignmentFilter) ([]model.Assignment, error) {
	var list []model.Assignment
	err := filter.apply(r.db.WithContext(ctx)).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) CountActiveByMentor(ctx context.Context, mentorExternalID, cycleID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("mentor_external_id = ? AND cycle_id = ? AND status = ?", mentorExternalID, cycleID, model.AssignmentActive).
		Count(&n).Error
	return n, err
}

func (r *assignmentRepo) Stats(ctx context.Context, cycleID string) (*AssignmentCounts, error) {
	var counts AssignmentCounts
	db := r.db.WithContext(ctx).Model(&model.Assignment{})
	if cycleID != "" {
		db = db.Where("cycle_id = ?", cycleID)
	}
	err := db.Select(`COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'active') AS active,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'active'
			AND COALESCE((metadata->>'fresh_assignment')::boolean, FALSE) = FALSE) AS needs_attention`).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *assignmentRepo) ValidateConstraints(ctx context.Context, mentorExternalID, studentExternalID, cycleID string, role model.AssignmentRole) (*ConstraintResult, error) {
	var res ConstraintResult
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM validate_assignment_constraints(?, ?, ?, ?)",
			mentorExternalID, studentExternalID, cycleID, string(role)).
		Scan(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}
