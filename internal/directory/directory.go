// Package directory 提供学生、教职工、院系、院校的只读目录。
//
// 目录数据有两种来源：数据库中的实时目录（live）与内嵌的演示数据集（demo）。
// 调用方在每次操作时通过 Options 显式选择来源，Resolver 据此返回对应的 Source；
// 实时目录不可用时自动回退到演示数据集。
package directory

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotFound 目录中不存在该记录
var ErrNotFound = errors.New("目录中不存在该记录")

// Student 学生目录条目
type Student struct {
	ExternalID    string `json:"external_id"   yaml:"external_id"`
	Name          string `json:"name"          yaml:"name"`
	Email         string `json:"email"         yaml:"email"`
	DepartmentID  string `json:"department_id" yaml:"department_id"`
	Department    string `json:"department"    yaml:"department"`
	Program       string `json:"program"       yaml:"program"`
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
	SemesterYear  int    `json:"semester_year" yaml:"semester_year"`
}

// Staff 教职工目录条目
type Staff struct {
	ExternalID   string `json:"external_id"   yaml:"external_id"`
	Name         string `json:"name"          yaml:"name"`
	Email        string `json:"email"         yaml:"email"`
	DepartmentID string `json:"department_id" yaml:"department_id"`
	Department   string `json:"department"    yaml:"department"`
	Designation  string `json:"designation"   yaml:"designation"`
}

// Department 院系条目
type Department struct {
	ID            string `json:"id"             yaml:"id"`
	Name          string `json:"name"           yaml:"name"`
	Code          string `json:"code"           yaml:"code"`
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
}

// Institution 院校条目
type Institution struct {
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// Filter 列表筛选条件
type Filter struct {
	DepartmentID string
	Keyword      string
}

// Source 目录数据源
type Source interface {
	Name() string
	Students(ctx context.Context, f Filter) ([]Student, error)
	Staff(ctx context.Context, f Filter) ([]Staff, error)
	Departments(ctx context.Context) ([]Department, error)
	Institutions(ctx context.Context) ([]Institution, error)
	StudentByExternalID(ctx context.Context, externalID string) (*Student, error)
	StaffByExternalID(ctx context.Context, externalID string) (*Staff, error)
}

// Options 单次调用的目录选项
type Options struct {
	DemoMode bool
}

// Resolver 按 Options 选择数据源
type Resolver struct {
	live   Source
	demo   Source
	logger *zap.Logger
}

// NewResolver 创建 Resolver；live 为 nil 时始终使用 demo
func NewResolver(live, demo Source, logger *zap.Logger) *Resolver {
	return &Resolver{live: live, demo: demo, logger: logger}
}

// Source 返回本次调用使用的数据源
func (r *Resolver) Source(opts Options) Source {
	if opts.DemoMode || r.live == nil {
		return r.demo
	}
	return &fallbackSource{primary: r.live, fallback: r.demo, logger: r.logger}
}

// fallbackSource 实时目录出错时回退到演示数据集。
// ErrNotFound 属于正常结果，不触发回退。
type fallbackSource struct {
	primary  Source
	fallback Source
	logger   *zap.Logger
}

func (s *fallbackSource) Name() string { return s.primary.Name() }

func (s *fallbackSource) degrade(op string, err error) {
	s.logger.Warn("实时目录不可用，回退到演示数据",
		zap.String("op", op),
		zap.String("source", s.primary.Name()),
		zap.Error(err),
	)
}

func (s *fallbackSource) Students(ctx context.Context, f Filter) ([]Student, error) {
	list, err := s.primary.Students(ctx, f)
	if err != nil {
		s.degrade("students", err)
		return s.fallback.Students(ctx, f)
	}
	return list, nil
}

func (s *fallbackSource) Staff(ctx context.Context, f Filter) ([]Staff, error) {
	list, err := s.primary.Staff(ctx, f)
	if err != nil {
		s.degrade("staff", err)
		return s.fallback.Staff(ctx, f)
	}
	return list, nil
}

func (s *fallbackSource) Departments(ctx context.Context) ([]Department, error) {
	list, err := s.primary.Departments(ctx)
	if err != nil {
		s.degrade("departments", err)
		return s.fallback.Departments(ctx)
	}
	return list, nil
}

func (s *fallbackSource) Institutions(ctx context.Context) ([]Institution, error) {
	list, err := s.primary.Institutions(ctx)
	if err != nil {
		s.degrade("institutions", err)
		return s.fallback.Institutions(ctx)
	}
	return list, nil
}

func (s *fallbackSource) StudentByExternalID(ctx context.Context, externalID string) (*Student, error) {
	st, err := s.primary.StudentByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.degrade("student_by_id", err)
		return s.fallback.StudentByExternalID(ctx, externalID)
	}
	return st, err
}

func (s *fallbackSource) StaffByExternalID(ctx context.Context, externalID string) (*Staff, error) {
	st, err := s.primary.StaffByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.degrade("staff_by_id", err)
		return s.fallback.StaffByExternalID(ctx, externalID)
	}
	return st, err
}
