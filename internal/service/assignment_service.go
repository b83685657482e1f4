package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/outbox"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/repository"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

// ── 分配模块业务错误 ──

var (
	ErrAssignmentNotFound    = errors.New("分配记录不存在")
	ErrAssignmentTransition  = errors.New("已结束的分配不能恢复，请新建分配")
	ErrAssignmentEnded       = errors.New("分配已结束")
	ErrAssignmentEffectiveTo = errors.New("结束时间不能早于生效时间")
)

// 并发插入撞上唯一索引时的提示，与存储过程保持一致
const msgDuplicatePrimary = "该学生本周期已有在任主导师"

// AssignmentService 导师分配业务接口
type AssignmentService interface {
	Validate(ctx context.Context, req *dto.ValidateAssignmentRequest) (*dto.AssignmentValidation, error)
	Create(ctx context.Context, actor permission.Actor, req *dto.CreateAssignmentRequest) (*dto.AssignmentResult, error)
	Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResult, error)
	End(ctx context.Context, actor permission.Actor, id string, req *dto.EndAssignmentRequest) (*dto.AssignmentResult, error)
	GetByID(ctx context.Context, id string) (*dto.AssignmentResponse, error)
	List(ctx context.Context, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error)
	ListByMentor(ctx context.Context, mentorExternalID, cycleID string) ([]dto.AssignmentResponse, error)
	ListByStudent(ctx context.Context, studentExternalID, cycleID string) ([]dto.AssignmentResponse, error)
	Stats(ctx context.Context, cycleID string) (*dto.AssignmentStats, error)
}

type assignmentService struct {
	repo      *repository.Repository
	validator AssignmentValidator
	feed      *changefeed.Publisher
	logger    *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, validator AssignmentValidator, feed *changefeed.Publisher, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, validator: validator, feed: feed, logger: logger}
}

// ────────────────────── Validate ──────────────────────

func (s *assignmentService) Validate(ctx context.Context, req *dto.ValidateAssignmentRequest) (*dto.AssignmentValidation, error) {
	cycleID := req.CycleID
	if cycleID == "" {
		cycle, err := activeUnlockedCycle(ctx, s.repo)
		if err != nil {
			return nil, err
		}
		cycleID = cycle.CycleID
	}
	return s.validator.Validate(ctx, req.MentorExternalID, req.StudentExternalID, cycleID, roleOrPrimary(req.Role))
}

// ────────────────────── Create ──────────────────────

// Create 在当前开放周期内创建分配。
// 没有开放周期时返回 ErrNoActiveCycle；校验不通过时返回 Success=false 且不写入任何数据。
func (s *assignmentService) Create(ctx context.Context, actor permission.Actor, req *dto.CreateAssignmentRequest) (*dto.AssignmentResult, error) {
	cycle, err := activeUnlockedCycle(ctx, s.repo)
	if err != nil {
		if errors.Is(err, ErrNoActiveCycle) {
			return &dto.AssignmentResult{Success: false, Error: err.Error()}, err
		}
		s.logger.Error("查询当前周期失败", zap.Error(err))
		return nil, err
	}

	role := roleOrPrimary(req.Role)

	verdict, err := s.validator.Validate(ctx, req.MentorExternalID, req.StudentExternalID, cycle.CycleID, role)
	if err != nil {
		return nil, err
	}
	if !verdict.IsValid {
		return &dto.AssignmentResult{Success: false, Error: verdict.ErrorMessage}, nil
	}

	meta := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if verdict.StudentDepartment != "" {
		meta[model.MetaDepartment] = verdict.StudentDepartment
	}
	if verdict.StudentProgram != "" {
		meta[model.MetaProgram] = verdict.StudentProgram
	}
	meta[model.MetaCreatedVia] = "manual:" + string(actor.Role)
	meta[model.MetaFreshAssignment] = true

	a := &model.Assignment{
		CycleID:           cycle.CycleID,
		MentorExternalID:  req.MentorExternalID,
		StudentExternalID: req.StudentExternalID,
		Role:              role,
		Status:            model.AssignmentActive,
		EffectiveFrom:     time.Now(),
		Notes:             req.Notes,
		Metadata:          meta,
	}
	a.CreatedBy = &actor.UserID
	a.UpdatedBy = &actor.UserID

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Assignment.Create(ctx, a); err != nil {
			return err
		}
		return s.appendEvent(ctx, txRepo, a, model.EventAssignmentCreated, "")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &dto.AssignmentResult{Success: false, Error: msgDuplicatePrimary}, nil
		}
		s.logger.Error("创建分配失败",
			zap.String("mentor", req.MentorExternalID),
			zap.String("student", req.StudentExternalID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("分配已创建",
		zap.String("assignment_id", a.AssignmentID),
		zap.String("cycle_id", cycle.CycleID),
		zap.String("operator", actor.UserID),
	)
	s.feed.Publish(ctx, "mentor_assignments", changefeed.OpInsert, nil, a)

	return s.snapshot(ctx, a.AssignmentID, cycle.CycleID)
}

// ────────────────────── Update ──────────────────────

// Update 部分字段更新，不重新执行分配校验
func (s *assignmentService) Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResult, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *a

	if req.Status != nil {
		next := model.AssignmentStatus(*req.Status)
		if a.Status.Terminal() && next != a.Status {
			return nil, ErrAssignmentTransition
		}
		a.Status = next
	}
	if req.Role != nil {
		a.Role = model.AssignmentRole(*req.Role)
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.EffectiveTo != nil {
		if *req.EffectiveTo == "" {
			a.EffectiveTo = nil
		} else {
			t, err := parseDateTime(*req.EffectiveTo)
			if err != nil {
				return nil, ErrAssignmentEffectiveTo
			}
			a.EffectiveTo = &t
		}
	}
	if a.EffectiveTo != nil && a.EffectiveTo.Before(a.EffectiveFrom) {
		return nil, ErrAssignmentEffectiveTo
	}
	// 终态分配必须有 effective_to，未指定时与 End 一致取当前时间
	if a.Status.Terminal() && a.EffectiveTo == nil {
		a.EffectiveTo = endTime(a)
	}
	ended := !before.Status.Terminal() && a.Status.Terminal()

	a.UpdatedBy = &actor.UserID
	a.UpdatedAt = time.Now()

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Assignment.Update(ctx, a); err != nil {
			return err
		}
		if ended {
			return s.appendEvent(ctx, txRepo, a, model.EventAssignmentEnded, "")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.NewValidation(msgDuplicatePrimary)
		}
		s.logger.Error("更新分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.feed.Publish(ctx, "mentor_assignments", changefeed.OpUpdate, before, a)
	return s.snapshot(ctx, a.AssignmentID, a.CycleID)
}

// ────────────────────── End ──────────────────────

// End 结束分配：状态置为 completed，effective_to 置为当前时间，原因追加到备注
func (s *assignmentService) End(ctx context.Context, actor permission.Actor, id string, req *dto.EndAssignmentRequest) (*dto.AssignmentResult, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, ErrAssignmentEnded
	}
	before := *a

	a.Status = model.AssignmentCompleted
	a.EffectiveTo = endTime(a)
	a.Notes = appendNote(a.Notes, req.Reason)
	a.UpdatedBy = &actor.UserID
	a.UpdatedAt = time.Now()

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Assignment.Update(ctx, a); err != nil {
			return err
		}
		return s.appendEvent(ctx, txRepo, a, model.EventAssignmentEnded, req.Reason)
	})
	if err != nil {
		s.logger.Error("结束分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("分配已结束", zap.String("assignment_id", id), zap.String("operator", actor.UserID))
	s.feed.Publish(ctx, "mentor_assignments", changefeed.OpUpdate, before, a)

	return s.snapshot(ctx, a.AssignmentID, a.CycleID)
}

// ────────────────────── Queries ──────────────────────

func (s *assignmentService) GetByID(ctx context.Context, id string) (*dto.AssignmentResponse, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

func (s *assignmentService) List(ctx context.Context, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, int64, error) {
	filter := repository.AssignmentFilter{
		CycleID:           req.CycleID,
		MentorExternalID:  req.MentorExternalID,
		StudentExternalID: req.StudentExternalID,
		Status:            req.Status,
		Role:              req.Role,
	}

	list, total, err := s.repo.Assignment.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出分配失败", zap.Error(err))
		return nil, 0, err
	}
	return toAssignmentResponses(list), total, nil
}

func (s *assignmentService) ListByMentor(ctx context.Context, mentorExternalID, cycleID string) ([]dto.AssignmentResponse, error) {
	return s.listAll(ctx, repository.AssignmentFilter{MentorExternalID: mentorExternalID, CycleID: cycleID})
}

func (s *assignmentService) ListByStudent(ctx context.Context, studentExternalID, cycleID string) ([]dto.AssignmentResponse, error) {
	return s.listAll(ctx, repository.AssignmentFilter{StudentExternalID: studentExternalID, CycleID: cycleID})
}

// Stats 聚合计数；cycleID 为空时统计全部周期
func (s *assignmentService) Stats(ctx context.Context, cycleID string) (*dto.AssignmentStats, error) {
	c, err := s.repo.Assignment.Stats(ctx, cycleID)
	if err != nil {
		s.logger.Error("统计分配失败", zap.String("cycle_id", cycleID), zap.Error(err))
		return nil, err
	}
	return &dto.AssignmentStats{
		Total:          c.Total,
		Active:         c.Active,
		Pending:        c.Pending,
		Completed:      c.Completed,
		NeedsAttention: c.NeedsAttention,
	}, nil
}

// ── 内部辅助方法 ──

func (s *assignmentService) get(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询分配失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) listAll(ctx context.Context, filter repository.AssignmentFilter) ([]dto.AssignmentResponse, error) {
	list, err := s.repo.Assignment.ListAll(ctx, filter)
	if err != nil {
		s.logger.Error("查询分配失败", zap.Error(err))
		return nil, err
	}
	return toAssignmentResponses(list), nil
}

// snapshot 变更后重新读取该分配及同周期全部分配
func (s *assignmentService) snapshot(ctx context.Context, id, cycleID string) (*dto.AssignmentResult, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.listAll(ctx, repository.AssignmentFilter{CycleID: cycleID})
	if err != nil {
		return nil, err
	}

	resp := toAssignmentResponse(a)
	return &dto.AssignmentResult{
		Success:     true,
		Assignment:  &resp,
		Assignments: all,
	}, nil
}

func (s *assignmentService) appendEvent(ctx context.Context, txRepo *repository.Repository, a *model.Assignment, eventType, reason string) error {
	ev, err := outbox.NewEvent(outbox.AggregateAssignment, a.AssignmentID, eventType, notifier.AssignmentNotice{
		AssignmentID:      a.AssignmentID,
		CycleID:           a.CycleID,
		MentorExternalID:  a.MentorExternalID,
		StudentExternalID: a.StudentExternalID,
		Role:              string(a.Role),
		Reason:            reason,
	})
	if err != nil {
		return err
	}
	return txRepo.Outbox.Create(ctx, ev)
}

// endTime 结束时间取当前时间，不早于 effective_from
func endTime(a *model.Assignment) *time.Time {
	now := time.Now()
	if now.Before(a.EffectiveFrom) {
		now = a.EffectiveFrom
	}
	return &now
}

func roleOrPrimary(role string) model.AssignmentRole {
	if role == "" {
		return model.AssignmentRolePrimary
	}
	return model.AssignmentRole(role)
}

func appendNote(notes, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return notes
	}
	line := "结束原因：" + reason
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// parseDateTime 接受 RFC3339 或 YYYY-MM-DD
func parseDateTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.Local)
}

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		ID:                a.AssignmentID,
		CycleID:           a.CycleID,
		MentorExternalID:  a.MentorExternalID,
		StudentExternalID: a.StudentExternalID,
		Role:              string(a.Role),
		Status:            string(a.Status),
		EffectiveFrom:     a.EffectiveFrom.Format(time.RFC3339),
		Notes:             a.Notes,
		Metadata:          map[string]interface{}(a.Metadata),
		NeedsAttention:    a.NeedsAttention(),
		CreatedAt:         a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:         a.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]interface{}{}
	}
	if a.EffectiveTo != nil {
		v := a.EffectiveTo.Format(time.RFC3339)
		resp.EffectiveTo = &v
	}
	if a.Cycle != nil {
		resp.CycleName = a.Cycle.Name
	}
	return resp
}

func toAssignmentResponses(list []model.Assignment) []dto.AssignmentResponse {
	result := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		result = append(result, toAssignmentResponse(&list[i]))
	}
	return result
}
