package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

// ── 分配周期模块业务错误 ──

var (
	ErrCycleNotFound     = errors.New("分配周期不存在")
	ErrCycleDateInvalid  = errors.New("周期结束日期必须晚于开始日期")
	ErrCycleActiveDelete = errors.New("不能删除当前生效的周期")
	ErrCycleClosed       = errors.New("周期已关闭，不能重新激活")
	// ErrNoActiveCycle 没有处于激活且未锁定状态的分配周期
	ErrNoActiveCycle = errors.New("当前没有开放的分配周期")
)

// CycleService 分配周期业务接口
type CycleService interface {
	Create(ctx context.Context, req *dto.CreateCycleRequest, callerID string) (*dto.CycleResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CycleResponse, error)
	GetActive(ctx context.Context) (*dto.CycleResponse, error)
	List(ctx context.Context) ([]dto.CycleResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateCycleRequest, callerID string) (*dto.CycleResponse, error)
	Activate(ctx context.Context, id string, callerID string) (*dto.CycleResponse, error)
	SetLocked(ctx context.Context, id string, locked bool, callerID string) (*dto.CycleResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type cycleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCycleService 创建 CycleService 实例
func NewCycleService(repo *repository.Repository, logger *zap.Logger) CycleService {
	return &cycleService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *cycleService) Create(ctx context.Context, req *dto.CreateCycleRequest, callerID string) (*dto.CycleResponse, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, ErrCycleDateInvalid
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, ErrCycleDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrCycleDateInvalid
	}

	cycle := &model.AssignmentCycle{
		Name:      req.Name,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    model.CycleDraft,
	}
	cycle.CreatedBy = &callerID
	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Create(ctx, cycle); err != nil {
		s.logger.Error("创建分配周期失败", zap.Error(err))
		return nil, err
	}

	return toCycleResponse(cycle), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *cycleService) GetByID(ctx context.Context, id string) (*dto.CycleResponse, error) {
	cycle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCycleResponse(cycle), nil
}

// ────────────────────── GetActive ──────────────────────

func (s *cycleService) GetActive(ctx context.Context) (*dto.CycleResponse, error) {
	cycle, err := s.repo.Cycle.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		s.logger.Error("查询当前周期失败", zap.Error(err))
		return nil, err
	}
	return toCycleResponse(cycle), nil
}

// ────────────────────── List ──────────────────────

func (s *cycleService) List(ctx context.Context) ([]dto.CycleResponse, error) {
	cycles, err := s.repo.Cycle.List(ctx)
	if err != nil {
		s.logger.Error("列出分配周期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CycleResponse, 0, len(cycles))
	for i := range cycles {
		result = append(result, *toCycleResponse(&cycles[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *cycleService) Update(ctx context.Context, id string, req *dto.UpdateCycleRequest, callerID string) (*dto.CycleResponse, error) {
	cycle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		cycle.Name = *req.Name
	}
	if req.StartDate != nil {
		startDate, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return nil, ErrCycleDateInvalid
		}
		cycle.StartDate = startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return nil, ErrCycleDateInvalid
		}
		cycle.EndDate = endDate
	}
	if !cycle.EndDate.After(cycle.StartDate) {
		return nil, ErrCycleDateInvalid
	}

	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Update(ctx, cycle); err != nil {
		s.logger.Error("更新分配周期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toCycleResponse(cycle), nil
}

// ────────────────────── Activate ──────────────────────

// Activate 激活周期；同一时刻只有一个 active 周期，原周期转为 closed
func (s *cycleService) Activate(ctx context.Context, id string, callerID string) (*dto.CycleResponse, error) {
	cycle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cycle.Status == model.CycleClosed {
		return nil, ErrCycleClosed
	}
	if cycle.Status == model.CycleActive {
		return toCycleResponse(cycle), nil
	}

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Cycle.ClearActive(ctx); err != nil {
			return err
		}
		cycle.Status = model.CycleActive
		cycle.UpdatedBy = &callerID
		return txRepo.Cycle.Update(ctx, cycle)
	})
	if err != nil {
		s.logger.Error("激活分配周期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("分配周期已激活", zap.String("id", id), zap.String("operator", callerID))
	return toCycleResponse(cycle), nil
}

// ────────────────────── Lock / Unlock ──────────────────────

func (s *cycleService) SetLocked(ctx context.Context, id string, locked bool, callerID string) (*dto.CycleResponse, error) {
	cycle, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cycle.IsLocked == locked {
		return toCycleResponse(cycle), nil
	}

	cycle.IsLocked = locked
	cycle.UpdatedBy = &callerID

	if err := s.repo.Cycle.Update(ctx, cycle); err != nil {
		s.logger.Error("更新周期锁定状态失败", zap.String("id", id), zap.Bool("locked", locked), zap.Error(err))
		return nil, err
	}

	return toCycleResponse(cycle), nil
}

// ────────────────────── Delete ──────────────────────

func (s *cycleService) Delete(ctx context.Context, id string, callerID string) error {
	cycle, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if cycle.Status == model.CycleActive {
		return ErrCycleActiveDelete
	}

	if err := s.repo.Cycle.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除分配周期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *cycleService) get(ctx context.Context, id string) (*model.AssignmentCycle, error) {
	cycle, err := s.repo.Cycle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		s.logger.Error("查询分配周期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return cycle, nil
}

// activeUnlockedCycle 当前可挂接新分配的周期
func activeUnlockedCycle(ctx context.Context, repo *repository.Repository) (*model.AssignmentCycle, error) {
	cycle, err := repo.Cycle.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveCycle
		}
		return nil, err
	}
	if !cycle.AcceptsAssignments() {
		return nil, ErrNoActiveCycle
	}
	return cycle, nil
}

func toCycleResponse(cycle *model.AssignmentCycle) *dto.CycleResponse {
	return &dto.CycleResponse{
		ID:        cycle.CycleID,
		Name:      cycle.Name,
		StartDate: cycle.StartDate.Format("2006-01-02"),
		EndDate:   cycle.EndDate.Format("2006-01-02"),
		Status:    string(cycle.Status),
		IsLocked:  cycle.IsLocked,
		CreatedAt: cycle.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: cycle.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
