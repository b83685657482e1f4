package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/api/handler"
	"mentor-hub/backend/internal/api/middleware"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/pkg/jwt"
	"mentor-hub/backend/pkg/metrics"
	"mentor-hub/backend/pkg/redis"
	"mentor-hub/backend/pkg/validate"
)

// 请求体上限；学生名单上传走单独的上限
const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if err := validate.RegisterGin(); err != nil {
		logger.Warn("注册自定义校验标签失败", zap.Error(err))
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 避免把 nil 指针装进非 nil 接口
	var (
		blacklist middleware.Blacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	can := middleware.RequireCapability

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", middleware.BodyLimit(maxBodyBytes))
		{
			auth.POST("/login", middleware.RateLimit(limiter, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(limiter, 30, time.Minute), h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist), middleware.BodyLimit(maxBodyBytes))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 用户模块
			users := authorized.Group("/users", can(permission.UserManage))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.GET("/:id", h.User.GetUser)
				users.PUT("/:id/role", h.User.AssignRole)
			}

			// 目录模块
			dir := authorized.Group("/directory", can(permission.DirectoryRead))
			{
				dir.GET("/students", h.Directory.ListStudents)
				dir.GET("/students/:external_id", h.Directory.GetStudent)
				dir.GET("/staff", h.Directory.ListStaff)
				dir.GET("/staff/:external_id", h.Directory.GetStaff)
				dir.GET("/departments", h.Directory.ListDepartments)
				dir.GET("/institutions", h.Directory.ListInstitutions)
				dir.GET("/snapshot", h.Directory.Snapshot)
			}

			// 分配周期模块
			cycles := authorized.Group("/cycles")
			{
				cycles.GET("", can(permission.AssignmentRead), h.Cycle.ListCycles)
				cycles.GET("/active", h.Cycle.GetActiveCycle)
				cycles.GET("/:id", can(permission.AssignmentRead), h.Cycle.GetCycle)
				cycles.POST("", can(permission.CycleManage), h.Cycle.CreateCycle)
				cycles.PUT("/:id", can(permission.CycleManage), h.Cycle.UpdateCycle)
				cycles.PUT("/:id/activate", can(permission.CycleManage), h.Cycle.ActivateCycle)
				cycles.PUT("/:id/lock", can(permission.CycleManage), h.Cycle.LockCycle)
				cycles.PUT("/:id/unlock", can(permission.CycleManage), h.Cycle.UnlockCycle)
				cycles.DELETE("/:id", can(permission.CycleManage), h.Cycle.DeleteCycle)
			}

			// 导师分配模块
			assignments := authorized.Group("/assignments")
			{
				assignments.POST("/validate", can(permission.AssignmentWrite), h.Assignment.ValidateAssignment)
				assignments.GET("", can(permission.AssignmentRead), h.Assignment.ListAssignments)
				assignments.POST("", can(permission.AssignmentWrite), h.Assignment.CreateAssignment)
				assignments.GET("/stats", can(permission.AssignmentWrite), h.Assignment.Stats)
				assignments.GET("/export", can(permission.AssignmentWrite), h.Export.ExportAssignments)
				assignments.GET("/:id", can(permission.AssignmentRead), h.Assignment.GetAssignment)
				assignments.PUT("/:id", can(permission.AssignmentWrite), h.Assignment.UpdateAssignment)
				assignments.POST("/:id/end", can(permission.AssignmentWrite), h.Assignment.EndAssignment)
			}
			authorized.GET("/mentors/:external_id/assignments", can(permission.AssignmentRead), h.Assignment.ListByMentor)
			authorized.GET("/students/:external_id/assignments", h.Assignment.ListByStudent)
			authorized.GET("/students/:external_id/goals", h.Goal.ListStudentGoals)

			// 辅导会话模块（细粒度权限在 Service 层判定）
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("", h.Session.ListSessions)
				sessions.POST("", h.Session.CreateSession)
				sessions.GET("/calendar.ics", h.Session.Calendar)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.PUT("/:id", h.Session.UpdateSession)
				sessions.POST("/:id/complete", h.Session.CompleteSession)
				sessions.POST("/:id/cancel", h.Session.CancelSession)
				sessions.POST("/:id/reopen", h.Session.ReopenSession)
				sessions.PUT("/:id/mentor-feedback", h.Session.SubmitMentorFeedback)
				sessions.POST("/:id/participants", h.Session.AddParticipants)
				sessions.PUT("/:id/participants/:student_id", h.Session.UpdateParticipant)
				sessions.DELETE("/:id/participants/:student_id", h.Session.RemoveParticipant)
				sessions.GET("/:id/meeting-logs", h.Session.ListMeetingLogs)
				sessions.POST("/:id/meeting-logs", h.Session.AddMeetingLog)
				sessions.GET("/:id/audit-logs", h.Session.AuditLogs)
				sessions.GET("/:id/feedback", h.Feedback.ListFeedback)
				sessions.POST("/:id/feedback", h.Feedback.SubmitFeedback)
				sessions.GET("/:id/goals", h.Goal.ListSessionGoals)
				sessions.POST("/:id/goals", h.Goal.CreateGoal)
			}

			// 目标模块
			goals := authorized.Group("/goals")
			{
				goals.PUT("/:id", h.Goal.UpdateGoal)
				goals.PUT("/:id/status", h.Goal.UpdateGoalStatus)
				goals.GET("/:id/history", h.Goal.GoalHistory)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 系统配置模块
			systemConfig := authorized.Group("/system-config")
			{
				systemConfig.GET("", h.SystemConfig.GetConfig)
				systemConfig.PUT("", can(permission.ConfigManage), h.SystemConfig.UpdateConfig)
			}

			// 变更推送
			authorized.GET("/realtime/:table", h.Realtime.Subscribe)
		}

		// 文件上传单独限制请求体大小
		upload := v1.Group("")
		upload.Use(middleware.JWTAuth(jwtMgr, blacklist), middleware.BodyLimit(maxUploadBytes))
		{
			upload.POST("/directory/students/import", can(permission.DirectoryImport), middleware.RateLimit(limiter, 5, time.Minute), h.Directory.ImportStudents)
		}
	}

	return r
}
