package service

import (
	"go.uber.org/zap"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth            AuthService
	User            UserService
	SystemConfig    SystemConfigService
	Directory       DirectoryService
	Cycle           CycleService
	Assignment      AssignmentService
	Export          ExportService
	Session         SessionService
	Goal            GoalService
	SessionFeedback SessionFeedbackService
	Notification    NotificationService
}

// Deps 构造 Service 所需的基础设施
type Deps struct {
	Config    *config.Config
	Repo      *repository.Repository
	JWT       *jwt.Manager
	Blacklist TokenBlacklist // Redis 不可用时为 nil
	Resolver  *directory.Resolver
	Importer  *directory.Importer
	Feed      *changefeed.Publisher
	Logger    *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	settings := NewSystemConfigService(d.Repo, d.Config.Feature, d.Logger)
	validator := NewAssignmentValidator(d.Repo, d.Resolver, settings, d.Logger)

	return &Service{
		Auth:            NewAuthService(d.Config, d.Repo, d.JWT, d.Blacklist, d.Logger),
		User:            NewUserService(d.Repo, d.Logger),
		SystemConfig:    settings,
		Directory:       NewDirectoryService(d.Resolver, d.Importer, settings, d.Logger),
		Cycle:           NewCycleService(d.Repo, d.Logger),
		Assignment:      NewAssignmentService(d.Repo, validator, d.Feed, d.Logger),
		Export:          NewExportService(d.Repo, d.Logger),
		Session:         NewSessionService(d.Repo, d.Resolver, settings, d.Feed, d.Logger),
		Goal:            NewGoalService(d.Repo, d.Feed, d.Logger),
		SessionFeedback: NewSessionFeedbackService(d.Repo, d.Logger),
		Notification:    NewNotificationService(d.Repo, d.Logger),
	}
}
