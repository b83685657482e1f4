package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/repository"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

// ── 目标模块业务错误 ──

var (
	ErrGoalNotFound       = errors.New("目标不存在")
	ErrGoalTimeBound      = errors.New("目标截止日期格式错误")
	ErrGoalStudentMissing = errors.New("目标学生必须是会话参与者")
)

// GoalService SMART 目标业务接口
type GoalService interface {
	Create(ctx context.Context, actor permission.Actor, sessionID string, req *dto.CreateGoalRequest) (*dto.GoalResponse, error)
	Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateGoalRequest) (*dto.GoalResponse, error)
	UpdateStatus(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateGoalStatusRequest) (*dto.GoalResponse, error)
	ListBySession(ctx context.Context, actor permission.Actor, sessionID string) ([]dto.GoalResponse, error)
	ListByStudent(ctx context.Context, actor permission.Actor, studentExternalID string) ([]dto.GoalResponse, error)
	History(ctx context.Context, actor permission.Actor, id string) ([]dto.GoalVersionResponse, error)
}

type goalService struct {
	repo   *repository.Repository
	feed   *changefeed.Publisher
	logger *zap.Logger
}

// NewGoalService 创建 GoalService 实例
func NewGoalService(repo *repository.Repository, feed *changefeed.Publisher, logger *zap.Logger) GoalService {
	return &goalService{repo: repo, feed: feed, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *goalService) Create(ctx context.Context, actor permission.Actor, sessionID string, req *dto.CreateGoalRequest) (*dto.GoalResponse, error) {
	if !actor.Can(permission.GoalWrite) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	if sess.Status == model.SessionCancelled {
		return nil, ErrSessionCancelled
	}
	if !hasParticipant(sess, req.StudentExternalID) {
		return nil, ErrGoalStudentMissing
	}

	goal := &model.Goal{
		SessionID:         sessionID,
		StudentExternalID: req.StudentExternalID,
		Title:             strings.TrimSpace(req.Title),
		Specific:          req.Specific,
		Measurable:        req.Measurable,
		Achievable:        req.Achievable,
		Relevant:          req.Relevant,
		Status:            model.GoalProposed,
	}
	if req.TimeBound != nil {
		t, err := parseGoalDate(*req.TimeBound)
		if err != nil {
			return nil, err
		}
		goal.TimeBound = t
	}
	goal.Version = 1
	goal.CreatedBy = &actor.UserID
	goal.UpdatedBy = &actor.UserID

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Goal.Create(ctx, goal); err != nil {
			return err
		}
		return txRepo.Goal.AppendVersion(ctx, &model.GoalVersion{
			GoalID:    goal.GoalID,
			Version:   goal.Version,
			Snapshot:  goal.Snapshot(),
			ChangedBy: &actor.UserID,
		})
	})
	if err != nil {
		s.logger.Error("创建目标失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.feed.Publish(ctx, "goals", changefeed.OpInsert, nil, goal)
	resp := toGoalResponse(goal)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

// Update 编辑目标内容。每次编辑版本号加一并追加一条快照；
// 请求携带 version 时与当前版本不一致即返回乐观锁冲突。
func (s *goalService) Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateGoalRequest) (*dto.GoalResponse, error) {
	goal, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != goal.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.Title != nil {
		goal.Title = strings.TrimSpace(*req.Title)
	}
	if req.Specific != nil {
		goal.Specific = *req.Specific
	}
	if req.Measurable != nil {
		goal.Measurable = *req.Measurable
	}
	if req.Achievable != nil {
		goal.Achievable = *req.Achievable
	}
	if req.Relevant != nil {
		goal.Relevant = *req.Relevant
	}
	if req.TimeBound != nil {
		if *req.TimeBound == "" {
			goal.TimeBound = nil
		} else {
			t, err := parseGoalDate(*req.TimeBound)
			if err != nil {
				return nil, err
			}
			goal.TimeBound = t
		}
	}

	return s.save(ctx, actor, goal)
}

func (s *goalService) UpdateStatus(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateGoalStatusRequest) (*dto.GoalResponse, error) {
	goal, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	status := model.GoalStatus(req.Status)
	if !status.Valid() {
		return nil, pkgerrors.NewValidation("无效的目标状态")
	}
	goal.Status = status
	return s.save(ctx, actor, goal)
}

// ────────────────────── Query ──────────────────────

func (s *goalService) ListBySession(ctx context.Context, actor permission.Actor, sessionID string) ([]dto.GoalResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, sess); err != nil {
		return nil, err
	}

	list, err := s.repo.Goal.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询会话目标失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	if actor.IsMentee() {
		list = goalsOf(list, actor.ExternalID)
	}
	return toGoalResponses(list), nil
}

// ListByStudent 学生只能查看自己的目标，导师只能查看自己会话下的目标
func (s *goalService) ListByStudent(ctx context.Context, actor permission.Actor, studentExternalID string) ([]dto.GoalResponse, error) {
	if actor.IsMentee() && studentExternalID != actor.ExternalID {
		return nil, pkgerrors.ErrPermissionDenied
	}
	var mentorID string
	if actor.IsMentor() {
		mentorID = actor.ExternalID
	}

	list, err := s.repo.Goal.ListByStudent(ctx, studentExternalID, mentorID)
	if err != nil {
		s.logger.Error("查询学生目标失败", zap.String("student", studentExternalID), zap.Error(err))
		return nil, err
	}
	return toGoalResponses(list), nil
}

func (s *goalService) History(ctx context.Context, actor permission.Actor, id string) ([]dto.GoalVersionResponse, error) {
	goal, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsMentee() {
		if goal.StudentExternalID != actor.ExternalID {
			return nil, pkgerrors.ErrPermissionDenied
		}
	} else {
		sess, err := s.session(ctx, goal.SessionID)
		if err != nil {
			return nil, err
		}
		if err := canManage(actor, sess); err != nil {
			return nil, err
		}
	}

	versions, err := s.repo.Goal.ListVersions(ctx, id)
	if err != nil {
		s.logger.Error("查询目标历史失败", zap.String("goal_id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.GoalVersionResponse, 0, len(versions))
	for _, v := range versions {
		r := dto.GoalVersionResponse{
			Version:   v.Version,
			Snapshot:  map[string]interface{}(v.Snapshot),
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if v.ChangedBy != nil {
			r.ChangedBy = *v.ChangedBy
		}
		result = append(result, r)
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *goalService) get(ctx context.Context, id string) (*model.Goal, error) {
	goal, err := s.repo.Goal.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return goal, nil
}

func (s *goalService) session(ctx context.Context, id string) (*model.CounselingSession, error) {
	sess, err := s.repo.Session.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询会话失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// editable 加载目标并校验执行者对所属会话的管理权限
func (s *goalService) editable(ctx context.Context, actor permission.Actor, id string) (*model.Goal, error) {
	if !actor.Can(permission.GoalWrite) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	goal, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, goal.SessionID)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	return goal, nil
}

// save 乐观锁写入并追加版本快照
func (s *goalService) save(ctx context.Context, actor permission.Actor, goal *model.Goal) (*dto.GoalResponse, error) {
	before := *goal
	goal.UpdatedBy = &actor.UserID

	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Goal.Update(ctx, goal); err != nil {
			return err
		}
		return txRepo.Goal.AppendVersion(ctx, &model.GoalVersion{
			GoalID:    goal.GoalID,
			Version:   goal.Version,
			Snapshot:  goal.Snapshot(),
			ChangedBy: &actor.UserID,
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新目标失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}

	goal.UpdatedAt = time.Now()
	s.feed.Publish(ctx, "goals", changefeed.OpUpdate, &before, goal)
	resp := toGoalResponse(goal)
	return &resp, nil
}

func parseGoalDate(v string) (*time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return nil, ErrGoalTimeBound
	}
	return &t, nil
}

func goalsOf(list []model.Goal, studentExternalID string) []model.Goal {
	out := list[:0]
	for _, g := range list {
		if g.StudentExternalID == studentExternalID {
			out = append(out, g)
		}
	}
	return out
}

func toGoalResponse(g *model.Goal) dto.GoalResponse {
	resp := dto.GoalResponse{
		ID:                g.GoalID,
		SessionID:         g.SessionID,
		StudentExternalID: g.StudentExternalID,
		Title:             g.Title,
		Specific:          g.Specific,
		Measurable:        g.Measurable,
		Achievable:        g.Achievable,
		Relevant:          g.Relevant,
		Status:            string(g.Status),
		Version:           g.Version,
		UpdatedAt:         g.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if g.TimeBound != nil {
		v := g.TimeBound.Format("2006-01-02")
		resp.TimeBound = &v
	}
	return resp
}

func toGoalResponses(list []model.Goal) []dto.GoalResponse {
	result := make([]dto.GoalResponse, 0, len(list))
	for i := range list {
		result = append(result, toGoalResponse(&list[i]))
	}
	return result
}
