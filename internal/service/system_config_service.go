package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

// ── 系统配置模块业务错误 ──

var (
	ErrSystemConfigNotFound = errors.New("系统配置未初始化")
)

// Settings 运行期设置，每次操作读取一次后显式传递
type Settings struct {
	DemoMode        bool
	EnforceCaseload bool
	MaxCaseload     int
}

// DirectoryOptions 目录数据源选择参数
func (s Settings) DirectoryOptions() directory.Options {
	return directory.Options{DemoMode: s.DemoMode}
}

// SettingsProvider 运行期设置来源
type SettingsProvider interface {
	Settings(ctx context.Context) Settings
}

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	SettingsProvider
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error)
}

type systemConfigService struct {
	repo     *repository.Repository
	defaults config.FeatureConfig
	logger   *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例。
// defaults 在 system_config 读取失败时兜底。
func NewSystemConfigService(repo *repository.Repository, defaults config.FeatureConfig, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{repo: repo, defaults: defaults, logger: logger}
}

// ────────────────────── Settings ──────────────────────

func (s *systemConfigService) Settings(ctx context.Context) Settings {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		s.logger.Warn("读取系统配置失败，使用启动默认值", zap.Error(err))
		return Settings{
			DemoMode:        s.defaults.DemoMode,
			EnforceCaseload: s.defaults.EnforceCaseload,
			MaxCaseload:     s.defaults.MaxCaseload,
		}
	}
	return Settings{
		DemoMode:        cfg.DemoMode,
		EnforceCaseload: cfg.EnforceCaseload,
		MaxCaseload:     cfg.MaxCaseload,
	}
}

// ────────────────────── Get ──────────────────────

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}

	return toSystemConfigResponse(cfg), nil
}

// ────────────────────── Update ──────────────────────

func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	cfg, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}

	if req.DemoMode != nil {
		cfg.DemoMode = *req.DemoMode
	}
	if req.EnforceCaseload != nil {
		cfg.EnforceCaseload = *req.EnforceCaseload
	}
	if req.MaxCaseload != nil {
		cfg.MaxCaseload = *req.MaxCaseload
	}

	cfg.UpdatedBy = &callerID

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统配置已更新",
		zap.Bool("demo_mode", cfg.DemoMode),
		zap.Bool("enforce_caseload", cfg.EnforceCaseload),
		zap.Int("max_caseload", cfg.MaxCaseload),
	)

	return toSystemConfigResponse(cfg), nil
}

func toSystemConfigResponse(cfg *model.SystemConfig) *dto.SystemConfigResponse {
	return &dto.SystemConfigResponse{
		DemoMode:        cfg.DemoMode,
		EnforceCaseload: cfg.EnforceCaseload,
		MaxCaseload:     cfg.MaxCaseload,
		UpdatedAt:       cfg.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
