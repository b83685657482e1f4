package repository

import (
	"context"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
)

// InstitutionRepository 院校数据访问接口
type InstitutionRepository interface {
	List(ctx context.Context) ([]model.Institution, error)
	GetByCode(ctx context.Context, code string) (*model.Institution, error)
}

type institutionRepo struct {
	db *gorm.DB
}

// NewInstitutionRepo 创建 InstitutionRepository 实例
func NewInstitutionRepo(db *gorm.DB) InstitutionRepository {
	return &institutionRepo{db: db}
}

func (r *institutionRepo) List(ctx context.Context) ([]model.Institution, error) {
	var list []model.Institution
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&list).Error
	return list, err
}

func (r *institutionRepo) GetByCode(ctx context.Context, code string) (*model.Institution, error) {
	var inst model.Institution
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// DepartmentRepository 院系数据访问接口
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Department, error)
	GetByCode(ctx context.Context, code string) (*model.Department, error)
	List(ctx context.Context, institutionID string) ([]model.Department, error)
}

type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) GetByID(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	if err := r.db.WithContext(ctx).Where("department_id = ?", id).First(&dept).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) GetByCode(ctx context.Context, code string) (*model.Department, error) {
	var dept model.Department
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&dept).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepo) List(ctx context.Context, institutionID string) ([]model.Department, error) {
	var list []model.Department
	db := r.db.WithContext(ctx).Where("is_active = ?", true)
	if institutionID != "" {
		db = db.Where("institution_id = ?", institutionID)
	}
	err := db.Order("name ASC").Find(&list).Error
	return list, err
}

// ProgramRepository 专业数据访问接口
type ProgramRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Program, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]model.Program, error)
}

type programRepo struct {
	db *gorm.DB
}

// NewProgramRepo 创建 ProgramRepository 实例
func NewProgramRepo(db *gorm.DB) ProgramRepository {
	return &programRepo{db: db}
}

func (r *programRepo) GetByCode(ctx context.Context, code string) (*model.Program, error) {
	var p model.Program
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *programRepo) ListByDepartment(ctx context.Context, departmentID string) ([]model.Program, error) {
	var list []model.Program
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("name ASC").
		Find(&list).Error
	return list, err
}
