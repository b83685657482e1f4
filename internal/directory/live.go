package directory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

// Cache 目录列表读缓存（由 Redis 实现）
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	cacheKeyStudents     = "directory:students"
	cacheKeyStaff        = "directory:staff"
	cacheKeyDepartments  = "directory:departments"
	cacheKeyInstitutions = "directory:institutions"
)

// LiveSource 基于数据库目录表的数据源
type LiveSource struct {
	repo     *repository.Repository
	cache    Cache
	cacheTTL time.Duration
}

// LiveOption LiveSource 可选配置
type LiveOption func(*LiveSource)

// WithCache 为无筛选条件的列表查询启用读缓存
func WithCache(c Cache, ttl time.Duration) LiveOption {
	return func(s *LiveSource) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewLiveSource 创建实时目录数据源
func NewLiveSource(repo *repository.Repository, opts ...LiveOption) *LiveSource {
	s := &LiveSource{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LiveSource) Name() string { return "live" }

// Invalidate 清除目录列表缓存（导入后调用）
func (s *LiveSource) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKeyStudents, cacheKeyStaff, cacheKeyDepartments, cacheKeyInstitutions)
}

// cached 读缓存；未命中或缓存出错时执行 load 并回填
func cached[T any](ctx context.Context, s *LiveSource, key string, load func() ([]T, error)) ([]T, error) {
	if s.cache != nil {
		var out []T
		if err := s.cache.GetJSON(ctx, key, &out); err == nil {
			return out, nil
		}
	}
	out, err := load()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, out, s.cacheTTL)
	}
	return out, nil
}

func (s *LiveSource) Students(ctx context.Context, f Filter) ([]Student, error) {
	load := func() ([]Student, error) {
		rows, err := s.repo.Student.List(ctx, repository.DirectoryFilter{DepartmentID: f.DepartmentID, Keyword: f.Keyword})
		if err != nil {
			return nil, err
		}
		out := make([]Student, 0, len(rows))
		for i := range rows {
			out = append(out, toStudent(&rows[i]))
		}
		return out, nil
	}
	if f != (Filter{}) {
		return load()
	}
	return cached(ctx, s, cacheKeyStudents, load)
}

func (s *LiveSource) Staff(ctx context.Context, f Filter) ([]Staff, error) {
	load := func() ([]Staff, error) {
		rows, err := s.repo.Staff.List(ctx, repository.DirectoryFilter{DepartmentID: f.DepartmentID, Keyword: f.Keyword})
		if err != nil {
			return nil, err
		}
		out := make([]Staff, 0, len(rows))
		for i := range rows {
			out = append(out, toStaff(&rows[i]))
		}
		return out, nil
	}
	if f != (Filter{}) {
		return load()
	}
	return cached(ctx, s, cacheKeyStaff, load)
}

func (s *LiveSource) Departments(ctx context.Context) ([]Department, error) {
	return cached(ctx, s, cacheKeyDepartments, func() ([]Department, error) {
		rows, err := s.repo.Department.List(ctx, "")
		if err != nil {
			return nil, err
		}
		out := make([]Department, 0, len(rows))
		for _, d := range rows {
			out = append(out, Department{ID: d.DepartmentID, Name: d.Name, Code: d.Code, InstitutionID: deref(d.InstitutionID)})
		}
		return out, nil
	})
}

func (s *LiveSource) Institutions(ctx context.Context) ([]Institution, error) {
	return cached(ctx, s, cacheKeyInstitutions, func() ([]Institution, error) {
		rows, err := s.repo.Institution.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Institution, 0, len(rows))
		for _, in := range rows {
			out = append(out, Institution{ID: in.InstitutionID, Name: in.Name, Code: in.Code})
		}
		return out, nil
	})
}

func (s *LiveSource) StudentByExternalID(ctx context.Context, externalID string) (*Student, error) {
	row, err := s.repo.Student.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st := toStudent(row)
	return &st, nil
}

func (s *LiveSource) StaffByExternalID(ctx context.Context, externalID string) (*Staff, error) {
	row, err := s.repo.Staff.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st := toStaff(row)
	return &st, nil
}

func toStudent(m *model.Student) Student {
	st := Student{
		ExternalID:    m.ExternalID,
		Name:          m.Name,
		Email:         m.Email,
		DepartmentID:  deref(m.DepartmentID),
		InstitutionID: deref(m.InstitutionID),
		SemesterYear:  m.SemesterYear,
	}
	if m.Department != nil {
		st.Department = m.Department.Name
	}
	if m.Program != nil {
		st.Program = m.Program.Name
	}
	return st
}

func toStaff(m *model.Staff) Staff {
	st := Staff{
		ExternalID:   m.ExternalID,
		Name:         m.Name,
		Email:        m.Email,
		DepartmentID: deref(m.DepartmentID),
		Designation:  m.Designation,
	}
	if m.Department != nil {
		st.Department = m.Department.Name
	}
	return st
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
