package handler

import (
	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Directory    *DirectoryHandler
	Cycle        *CycleHandler
	Assignment   *AssignmentHandler
	Export       *ExportHandler
	Session      *SessionHandler
	Goal         *GoalHandler
	Feedback     *FeedbackHandler
	Notification *NotificationHandler
	SystemConfig *SystemConfigHandler
	Realtime     *RealtimeHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, feed *changefeed.Publisher) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Directory:    NewDirectoryHandler(svc.Directory),
		Cycle:        NewCycleHandler(svc.Cycle),
		Assignment:   NewAssignmentHandler(svc.Assignment),
		Export:       NewExportHandler(svc.Export),
		Session:      NewSessionHandler(svc.Session),
		Goal:         NewGoalHandler(svc.Goal),
		Feedback:     NewFeedbackHandler(svc.SessionFeedback),
		Notification: NewNotificationHandler(svc.Notification),
		SystemConfig: NewSystemConfigHandler(svc.SystemConfig),
		Realtime:     NewRealtimeHandler(feed, svc.Session),
	}
}
