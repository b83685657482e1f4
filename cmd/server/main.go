package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/api/handler"
	"mentor-hub/backend/internal/api/router"
	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/outbox"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/database"
	"mentor-hub/backend/pkg/jwt"
	applogger "mentor-hub/backend/pkg/logger"
	"mentor-hub/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb       *redis.Client
		broker    changefeed.Broker
		blacklist service.TokenBlacklist
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、目录缓存与变更推送将不可用", zap.Error(err))
		rdb = nil
	} else {
		broker = rdb
		blacklist = rdb
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 目录数据源：实时目录（数据库 + 可选缓存）与内置演示数据
	repo := repository.NewRepository(db)

	demo, err := directory.NewDemoSource()
	if err != nil {
		logger.Fatal("加载演示目录失败", zap.Error(err))
	}
	var liveOpts []directory.LiveOption
	if rdb != nil {
		liveOpts = append(liveOpts, directory.WithCache(rdb, cfg.Directory.CacheTTL))
	}
	live := directory.NewLiveSource(repo, liveOpts...)
	resolver := directory.NewResolver(live, demo, logger)
	importer := directory.NewImporter(repo, live, logger)

	// 7. 依赖注入: Repository → Service → Handler
	feed := changefeed.NewPublisher(broker, logger)
	svc := service.NewService(service.Deps{
		Config:    cfg,
		Repo:      repo,
		JWT:       jwtMgr,
		Blacklist: blacklist,
		Resolver:  resolver,
		Importer:  importer,
		Feed:      feed,
		Logger:    logger,
	})
	h := handler.NewHandler(svc, feed)

	// 8. 事件发件箱投递
	worker := outbox.NewWorker(repo, cfg.Outbox, logger)
	outbox.RegisterNotifier(worker, notifier.NewInAppDispatcher(repo.Notification, feed, logger))

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("发件箱投递异常退出", zap.Error(err))
		}
	}()

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	// SSE 长连接不设写超时
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	stopWorker()
	<-workerDone

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
