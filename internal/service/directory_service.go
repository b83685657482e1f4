package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
)

// ── 目录模块业务错误 ──

var (
	ErrDirectoryNotFound    = errors.New("目录中不存在该人员")
	ErrDirectoryImportDemo  = errors.New("演示模式下不能导入学生名单")
	ErrDirectoryUnavailable = errors.New("学生名单导入不可用")
)

// DirectoryService 只读目录查询与学生名单导入。
// 数据来源由系统配置中的演示模式开关决定，每次调用读取一次。
type DirectoryService interface {
	Students(ctx context.Context, q *dto.DirectoryQuery) ([]directory.Student, error)
	Staff(ctx context.Context, q *dto.DirectoryQuery) ([]directory.Staff, error)
	Departments(ctx context.Context) ([]directory.Department, error)
	Institutions(ctx context.Context) ([]directory.Institution, error)
	Student(ctx context.Context, externalID string) (*directory.Student, error)
	StaffMember(ctx context.Context, externalID string) (*directory.Staff, error)
	Snapshot(ctx context.Context) (*directory.Snapshot, error)
	ImportStudents(ctx context.Context, reader io.Reader, operatorID string) (*dto.ImportStudentsResponse, error)
}

type directoryService struct {
	resolver *directory.Resolver
	importer *directory.Importer
	settings SettingsProvider
	logger   *zap.Logger
}

// NewDirectoryService 创建 DirectoryService 实例；importer 为 nil 时导入不可用
func NewDirectoryService(resolver *directory.Resolver, importer *directory.Importer, settings SettingsProvider, logger *zap.Logger) DirectoryService {
	return &directoryService{resolver: resolver, importer: importer, settings: settings, logger: logger}
}

func (s *directoryService) source(ctx context.Context) directory.Source {
	return s.resolver.Source(s.settings.Settings(ctx).DirectoryOptions())
}

func (s *directoryService) Students(ctx context.Context, q *dto.DirectoryQuery) ([]directory.Student, error) {
	list, err := s.source(ctx).Students(ctx, toFilter(q))
	if err != nil {
		s.logger.Error("查询学生目录失败", zap.Error(err))
		return nil, err
	}
	return list, nil
}

func (s *directoryService) Staff(ctx context.Context, q *dto.DirectoryQuery) ([]directory.Staff, error) {
	list, err := s.source(ctx).Staff(ctx, toFilter(q))
	if err != nil {
		s.logger.Error("查询教职工目录失败", zap.Error(err))
		return nil, err
	}
	return list, nil
}

func (s *directoryService) Departments(ctx context.Context) ([]directory.Department, error) {
	return s.source(ctx).Departments(ctx)
}

func (s *directoryService) Institutions(ctx context.Context) ([]directory.Institution, error) {
	return s.source(ctx).Institutions(ctx)
}

func (s *directoryService) Student(ctx context.Context, externalID string) (*directory.Student, error) {
	st, err := s.source(ctx).StudentByExternalID(ctx, externalID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrDirectoryNotFound
	}
	return st, err
}

func (s *directoryService) StaffMember(ctx context.Context, externalID string) (*directory.Staff, error) {
	st, err := s.source(ctx).StaffByExternalID(ctx, externalID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrDirectoryNotFound
	}
	return st, err
}

func (s *directoryService) Snapshot(ctx context.Context) (*directory.Snapshot, error) {
	snap, err := directory.TakeSnapshot(ctx, s.source(ctx))
	if err != nil {
		s.logger.Error("获取目录快照失败", zap.Error(err))
		return nil, err
	}
	return snap, nil
}

// ImportStudents 解析 Excel 名单并写入实时目录
func (s *directoryService) ImportStudents(ctx context.Context, reader io.Reader, operatorID string) (*dto.ImportStudentsResponse, error) {
	if s.importer == nil {
		return nil, ErrDirectoryUnavailable
	}
	if s.settings.Settings(ctx).DemoMode {
		return nil, ErrDirectoryImportDemo
	}

	rows, err := directory.ParseStudentSheet(reader)
	if err != nil {
		return nil, err
	}
	return s.importer.ImportStudents(ctx, rows, operatorID)
}

func toFilter(q *dto.DirectoryQuery) directory.Filter {
	if q == nil {
		return directory.Filter{}
	}
	return directory.Filter{DepartmentID: q.DepartmentID, Keyword: q.Keyword}
}
