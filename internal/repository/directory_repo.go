package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentor-hub/backend/internal/model"
)

// DirectoryFilter 目录列表筛选条件
type DirectoryFilter struct {
	DepartmentID string
	Keyword      string
}

func (f DirectoryFilter) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("is_active = ?", true)
	if f.DepartmentID != "" {
		db = db.Where("department_id = ?", f.DepartmentID)
	}
	if f.Keyword != "" {
		like := "%" + f.Keyword + "%"
		db = db.Where("name ILIKE ? OR external_id ILIKE ?", like, like)
	}
	return db
}

// StudentRepository 学生目录数据访问接口
type StudentRepository interface {
	List(ctx context.Context, filter DirectoryFilter) ([]model.Student, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Student, error)
	// Upsert 按学号插入或更新，返回受影响行数
	Upsert(ctx context.Context, students []model.Student) (int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) List(ctx context.Context, filter DirectoryFilter) ([]model.Student, error) {
	var list []model.Student
	err := filter.apply(r.db.WithContext(ctx)).
		Preload("Department").
		Preload("Program").
		Order("external_id ASC").
		Find(&list).Error
	return list, err
}

func (r *studentRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("Program").
		Where("external_id = ?", externalID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) Upsert(ctx context.Context, students []model.Student) (int64, error) {
	if len(students) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "external_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"name", "email", "department_id", "program_id", "institution_id", "semester_year", "is_active", "updated_at", "updated_by"}),
		}).
		Omit(clause.Associations).
		Create(&students)
	return result.RowsAffected, result.Error
}

// StaffRepository 教职工目录数据访问接口
type StaffRepository interface {
	List(ctx context.Context, filter DirectoryFilter) ([]model.Staff, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Staff, error)
}

type staffRepo struct {
	db *gorm.DB
}

// NewStaffRepo 创建 StaffRepository 实例
func NewStaffRepo(db *gorm.DB) StaffRepository {
	return &staffRepo{db: db}
}

func (r *staffRepo) List(ctx context.Context, filter DirectoryFilter) ([]model.Staff, error) {
	var list []model.Staff
	err := filter.apply(r.db.WithContext(ctx)).
		Preload("Department").
		Order("name ASC").
		Find(&list).Error
	return list, err
}

func (r *staffRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Staff, error) {
	var s model.Staff
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("external_id = ?", externalID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
