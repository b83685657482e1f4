package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/pkg/metrics"
)

// HandlerFunc 处理单个事件；返回错误时按重试策略重新投递
type HandlerFunc func(ctx context.Context, ev *model.OutboxEvent) error

// errNoHandler 事件类型未注册处理器
var errNoHandler = errors.New("未注册的事件类型")

const (
	defaultConcurrency = 4
	maxBackoff         = 10 * time.Minute
)

// Worker 轮询 outbox_events 并分发给处理器
type Worker struct {
	repo     *repository.Repository
	handlers map[string]HandlerFunc
	cfg      config.OutboxConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorker 创建投递 worker
func NewWorker(repo *repository.Repository, cfg config.OutboxConfig, logger *zap.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Worker{
		repo:     repo,
		handlers: make(map[string]HandlerFunc),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle 注册事件处理器
func (w *Worker) Handle(eventType string, h HandlerFunc) {
	w.handlers[eventType] = h
}

// Run 按轮询间隔持续投递，直到 ctx 结束
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("发件箱投递已启动",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("发件箱投递失败", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("发件箱投递已停止")
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce 领取一批到期事件并投递，返回本批处理的事件数
func (w *Worker) DispatchOnce(ctx context.Context) (int, error) {
	var processed int

	err := w.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		events, err := txRepo.Outbox.ClaimPending(ctx, w.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("领取发件箱事件失败: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		results := make([]error, len(events))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(defaultConcurrency)
		for i := range events {
			i := i
			g.Go(func() error {
				results[i] = w.dispatch(gctx, &events[i])
				return nil
			})
		}
		_ = g.Wait()

		// 事务连接不能并发使用，状态回写串行执行
		for i := range events {
			if err := w.settle(ctx, txRepo, &events[i], results[i]); err != nil {
				return err
			}
		}
		processed = len(events)
		return nil
	})

	return processed, err
}

func (w *Worker) dispatch(ctx context.Context, ev *model.OutboxEvent) (err error) {
	h, ok := w.handlers[ev.EventType]
	if !ok {
		return errNoHandler
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("处理器 panic: %v", p)
		}
	}()
	return h(ctx, ev)
}

func (w *Worker) settle(ctx context.Context, txRepo *repository.Repository, ev *model.OutboxEvent, dispatchErr error) error {
	if dispatchErr == nil {
		metrics.OutboxDispatches.WithLabelValues(ev.EventType, metrics.DispatchOK).Inc()
		return txRepo.Outbox.MarkDispatched(ctx, ev.EventID)
	}

	attempts := ev.Attempts + 1
	if errors.Is(dispatchErr, errNoHandler) || attempts >= w.cfg.MaxAttempts {
		metrics.OutboxDispatches.WithLabelValues(ev.EventType, metrics.DispatchFailed).Inc()
		w.logger.Error("发件箱事件投递放弃",
			zap.String("event_id", ev.EventID),
			zap.String("event_type", ev.EventType),
			zap.Int("attempts", attempts),
			zap.Error(dispatchErr),
		)
		return txRepo.Outbox.MarkFailed(ctx, ev.EventID, attempts, dispatchErr.Error())
	}

	metrics.OutboxDispatches.WithLabelValues(ev.EventType, metrics.DispatchRetry).Inc()
	w.logger.Warn("发件箱事件投递失败，稍后重试",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.Int("attempts", attempts),
		zap.Error(dispatchErr),
	)
	return txRepo.Outbox.MarkRetry(ctx, ev.EventID, attempts, dispatchErr.Error(), w.now().Add(w.backoff(attempts)))
}

// backoff 以轮询间隔为基数指数退避
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.PollInterval
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// RegisterNotifier 把领域事件接到通知投递器
func RegisterNotifier(w *Worker, d notifier.Dispatcher) {
	w.Handle(model.EventParticipantsAdded, func(ctx context.Context, ev *model.OutboxEvent) error {
		var inv notifier.SessionInvitation
		if err := Decode(ev, &inv); err != nil {
			return err
		}
		return d.SendSessionInvitations(ctx, inv)
	})
	w.Handle(model.EventAssignmentCreated, func(ctx context.Context, ev *model.OutboxEvent) error {
		var n notifier.AssignmentNotice
		if err := Decode(ev, &n); err != nil {
			return err
		}
		return d.NotifyAssignmentCreated(ctx, n)
	})
	w.Handle(model.EventAssignmentEnded, func(ctx context.Context, ev *model.OutboxEvent) error {
		var n notifier.AssignmentNotice
		if err := Decode(ev, &n); err != nil {
			return err
		}
		return d.NotifyAssignmentEnded(ctx, n)
	})
	w.Handle(model.EventSessionStatusChanged, func(ctx context.Context, ev *model.OutboxEvent) error {
		var n notifier.SessionStatusNotice
		if err := Decode(ev, &n); err != nil {
			return err
		}
		return d.NotifySessionStatus(ctx, n)
	})
}
