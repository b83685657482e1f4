package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/changefeed"
	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/outbox"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/repository"
	pkgerrors "mentor-hub/backend/pkg/errors"
	"mentor-hub/backend/pkg/metrics"
)

// ── 会话模块业务错误 ──

var (
	ErrSessionNotFound        = errors.New("会话不存在")
	ErrSessionCancelled       = errors.New("会话已取消，不能修改")
	ErrSessionMentorRequired  = errors.New("请指定会话导师")
	ErrSessionDateInvalid     = errors.New("会话日期格式错误")
	ErrSessionTimeInvalid     = errors.New("结束时间必须晚于开始时间")
	ErrSessionNoParticipants  = errors.New("会话至少需要一名学生")
	ErrMeetingLogIncomplete   = errors.New("请先填写会谈记录再完成会话")
	ErrParticipantNotFound    = errors.New("该学生不是会话参与者")
	ErrParticipantStatusLimit = errors.New("学生只能确认自己的参与")
)

// 日历导出回看窗口
const calendarLookback = 90 * 24 * time.Hour

// SessionService 辅导会话业务接口
type SessionService interface {
	Create(ctx context.Context, actor permission.Actor, req *dto.CreateSessionRequest) (*dto.SessionDetailResponse, error)
	Get(ctx context.Context, actor permission.Actor, id string) (*dto.SessionDetailResponse, error)
	List(ctx context.Context, actor permission.Actor, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error)
	Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateSessionRequest) (*dto.SessionDetailResponse, error)

	AddParticipants(ctx context.Context, actor permission.Actor, id string, studentIDs []string) (*dto.SessionDetailResponse, error)
	RemoveParticipant(ctx context.Context, actor permission.Actor, id, studentID string) (*dto.SessionDetailResponse, error)
	UpdateParticipant(ctx context.Context, actor permission.Actor, id, studentID string, req *dto.UpdateParticipantRequest) (*dto.ParticipantResponse, error)

	Complete(ctx context.Context, actor permission.Actor, id string) (*dto.CompleteSessionResponse, error)
	SubmitMentorFeedback(ctx context.Context, actor permission.Actor, id string, req *dto.MentorFeedbackRequest) (*dto.SubmitMentorFeedbackResponse, error)
	Cancel(ctx context.Context, actor permission.Actor, id string, req *dto.CancelSessionRequest) (*dto.SessionDetailResponse, error)
	Reopen(ctx context.Context, actor permission.Actor, id string) (*dto.SessionDetailResponse, error)

	AddMeetingLog(ctx context.Context, actor permission.Actor, id string, req *dto.CreateMeetingLogRequest) (*dto.MeetingLogResponse, error)
	ListMeetingLogs(ctx context.Context, actor permission.Actor, id string) ([]dto.MeetingLogResponse, error)
	AuditLogs(ctx context.Context, actor permission.Actor, id string) ([]dto.AuditLogResponse, error)

	// Calendar 导出执行者相关会话的 iCalendar 文本
	Calendar(ctx context.Context, actor permission.Actor) ([]byte, error)
}

type sessionService struct {
	repo     *repository.Repository
	dir      *directory.Resolver
	settings SettingsProvider
	feed     *changefeed.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, dir *directory.Resolver, settings SettingsProvider, feed *changefeed.Publisher, logger *zap.Logger) SessionService {
	return &sessionService{
		repo:     repo,
		dir:      dir,
		settings: settings,
		feed:     feed,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

// Create 创建会话并邀请学生。会话行、参与者、审计与邀请事件在同一事务内写入。
func (s *sessionService) Create(ctx context.Context, actor permission.Actor, req *dto.CreateSessionRequest) (*dto.SessionDetailResponse, error) {
	if !actor.Can(permission.SessionCreate) {
		return nil, pkgerrors.ErrPermissionDenied
	}

	mentorID := req.MentorExternalID
	if actor.IsMentor() {
		if mentorID != "" && mentorID != actor.ExternalID {
			return nil, pkgerrors.ErrPermissionDenied
		}
		mentorID = actor.ExternalID
	}
	if mentorID == "" {
		return nil, ErrSessionMentorRequired
	}

	date, err := time.ParseInLocation("2006-01-02", req.SessionDate, time.Local)
	if err != nil {
		return nil, ErrSessionDateInvalid
	}
	if err := checkTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	studentIDs := uniqueIDs(req.StudentIDs)
	if len(studentIDs) == 0 {
		return nil, ErrSessionNoParticipants
	}

	sessionType := model.SessionType(req.SessionType)
	if sessionType == "" {
		sessionType = model.SessionOneOnOne
		if len(studentIDs) > 1 {
			sessionType = model.SessionGroup
		}
	}
	priority := model.Priority(req.Priority)
	if priority == "" {
		priority = model.PriorityNormal
	}

	sess := &model.CounselingSession{
		Name:             strings.TrimSpace(req.Name),
		SessionDate:      date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Location:         req.Location,
		Description:      req.Description,
		SessionType:      sessionType,
		Priority:         priority,
		Status:           model.SessionPending,
		MentorExternalID: mentorID,
	}
	sess.CreatedBy = &actor.UserID
	sess.UpdatedBy = &actor.UserID

	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Session.Create(ctx, sess); err != nil {
			return err
		}
		added, err := txRepo.Participant.Add(ctx, sess.SessionID, studentIDs, &actor.UserID)
		if err != nil {
			return err
		}
		if err := s.audit(ctx, txRepo, sess.SessionID, actionCreate, "", model.SessionPending, "", actor); err != nil {
			return err
		}
		return s.inviteEvent(ctx, txRepo, sess, added)
	})
	if err != nil {
		s.logger.Error("创建会话失败", zap.String("mentor", mentorID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("会话已创建",
		zap.String("session_id", sess.SessionID),
		zap.String("mentor", mentorID),
		zap.Int("students", len(studentIDs)),
	)
	s.feed.Publish(ctx, "counseling_sessions", changefeed.OpInsert, nil, sess)

	return s.detail(ctx, sess.SessionID)
}

// ────────────────────── Query ──────────────────────

func (s *sessionService) Get(ctx context.Context, actor permission.Actor, id string) (*dto.SessionDetailResponse, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, sess); err != nil {
		return nil, err
	}
	return toSessionDetailResponse(sess), nil
}

// List 导师只看本人会话，学生只看自己参与的会话
func (s *sessionService) List(ctx context.Context, actor permission.Actor, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	filter := repository.SessionFilter{
		MentorExternalID:  req.MentorExternalID,
		StudentExternalID: req.StudentExternalID,
		Status:            req.Status,
	}
	switch {
	case actor.IsMentor():
		filter.MentorExternalID = actor.ExternalID
	case actor.IsMentee():
		filter.StudentExternalID = actor.ExternalID
	}
	if req.From != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.From, time.Local); err == nil {
			filter.From = &t
		}
	}
	if req.To != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.To, time.Local); err == nil {
			filter.To = &t
		}
	}

	list, total, err := s.repo.Session.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询会话列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SessionResponse, 0, len(list))
	for i := range list {
		result = append(result, toSessionResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 编辑会话字段并按新名单差量更新参与者。
// 已完成的会话被编辑后回到 pending；已取消的会话不可编辑。
// 字段更新、移除与新增参与者依次执行，中途失败时已完成的步骤保留。
func (s *sessionService) Update(ctx context.Context, actor permission.Actor, id string, req *dto.UpdateSessionRequest) (*dto.SessionDetailResponse, error) {
	if !actor.Can(permission.SessionUpdate) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	if sess.Status == model.SessionCancelled {
		return nil, ErrSessionCancelled
	}
	// 提交了 student_ids 时同样至少保留一名学生，校验先于任何写入
	var roster []string
	if req.StudentIDs != nil {
		roster = uniqueIDs(req.StudentIDs)
		if len(roster) == 0 {
			return nil, ErrSessionNoParticipants
		}
	}
	before := *sess

	if req.Name != nil {
		sess.Name = strings.TrimSpace(*req.Name)
	}
	if req.SessionDate != nil {
		date, err := time.ParseInLocation("2006-01-02", *req.SessionDate, time.Local)
		if err != nil {
			return nil, ErrSessionDateInvalid
		}
		sess.SessionDate = date
	}
	if req.StartTime != nil {
		sess.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		sess.EndTime = *req.EndTime
	}
	if err := checkTimeRange(sess.StartTime, sess.EndTime); err != nil {
		return nil, err
	}
	if req.Location != nil {
		sess.Location = *req.Location
	}
	if req.Description != nil {
		sess.Description = *req.Description
	}
	if req.SessionType != nil {
		sess.SessionType = model.SessionType(*req.SessionType)
	}
	if req.Priority != nil {
		sess.Priority = model.Priority(*req.Priority)
	}

	action := actionUpdate
	if sess.Status == model.SessionCompleted {
		sess.Status = model.SessionPending
		sess.CompletedAt = nil
		action = actionReopen
	}
	sess.UpdatedBy = &actor.UserID

	if err := s.repo.Session.Update(ctx, sess); err != nil {
		s.logger.Error("更新会话失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := s.audit(ctx, s.repo, id, action, before.Status, sess.Status, "", actor); err != nil {
		return nil, err
	}
	if action == actionReopen {
		if err := s.statusEvent(ctx, s.repo, sess, before.Status, sess.Status, "会话被编辑"); err != nil {
			return nil, err
		}
		s.transitioned(ctx, &before, sess)
	} else {
		s.feed.Publish(ctx, "counseling_sessions", changefeed.OpUpdate, &before, sess)
	}

	if req.StudentIDs != nil {
		removed, added := diffRoster(sess.StudentIDs(), roster)
		if err := s.removeParticipants(ctx, actor, sess, removed); err != nil {
			return nil, err
		}
		if _, err := s.addParticipants(ctx, s.repo, actor, sess, added); err != nil {
			return nil, err
		}
	}

	return s.detail(ctx, id)
}

// ────────────────────── Participants ──────────────────────

// AddParticipants 追加学生，仅为真正新增的学生发送邀请
func (s *sessionService) AddParticipants(ctx context.Context, actor permission.Actor, id string, studentIDs []string) (*dto.SessionDetailResponse, error) {
	sess, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return nil, ErrSessionNoParticipants
	}
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		_, err := s.addParticipants(ctx, txRepo, actor, sess, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

func (s *sessionService) RemoveParticipant(ctx context.Context, actor permission.Actor, id, studentID string) (*dto.SessionDetailResponse, error) {
	sess, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !hasParticipant(sess, studentID) {
		return nil, ErrParticipantNotFound
	}
	if err := s.removeParticipants(ctx, actor, sess, []string{studentID}); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

// UpdateParticipant 更新参与状态。学生本人只能把自己标记为 confirmed。
func (s *sessionService) UpdateParticipant(ctx context.Context, actor permission.Actor, id, studentID string, req *dto.UpdateParticipantRequest) (*dto.ParticipantResponse, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	status := model.ParticipationStatus(req.Status)
	if actor.IsMentee() {
		if studentID != actor.ExternalID || status != model.ParticipantConfirmed {
			return nil, ErrParticipantStatusLimit
		}
	} else if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	if sess.Status == model.SessionCancelled {
		return nil, ErrSessionCancelled
	}

	if err := s.repo.Participant.UpdateStatus(ctx, id, studentID, status, &actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		s.logger.Error("更新参与状态失败", zap.String("session_id", id), zap.String("student", studentID), zap.Error(err))
		return nil, err
	}

	p := &model.SessionParticipant{SessionID: id, StudentExternalID: studentID, ParticipationStatus: status}
	s.feed.Publish(ctx, "session_participants", changefeed.OpUpdate, nil, p)

	return &dto.ParticipantResponse{
		StudentExternalID:   studentID,
		ParticipationStatus: string(status),
	}, nil
}

// ────────────────────── Complete ──────────────────────

// Complete 完成会话。需要至少一条会谈记录；
// 导师尚未提交反馈时会话进入 pending_feedback，提交反馈后自动完成。
func (s *sessionService) Complete(ctx context.Context, actor permission.Actor, id string) (*dto.CompleteSessionResponse, error) {
	if !actor.Can(permission.SessionComplete) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}

	ok, err := s.meetingLogReady(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMeetingLogIncomplete
	}

	action := actionComplete
	if actor.IsMentor() {
		has, err := s.repo.MentorFeedback.Exists(ctx, id, actor.ExternalID)
		if err != nil {
			s.logger.Error("查询导师反馈失败", zap.String("session_id", id), zap.Error(err))
			return nil, err
		}
		if !has {
			if sess.Status == model.SessionPendingFeedback {
				return &dto.CompleteSessionResponse{
					Status:           string(sess.Status),
					FeedbackRequired: true,
					Session:          toSessionDetailResponse(sess),
				}, nil
			}
			action = actionDeferComplete
		}
	}

	to, err := s.transition(ctx, actor, id, action, "")
	if err != nil {
		return nil, err
	}
	detail, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.CompleteSessionResponse{
		Status:           string(to),
		FeedbackRequired: to == model.SessionPendingFeedback,
		Session:          detail,
	}, nil
}

// SubmitMentorFeedback 写入导师反馈；会话处于 pending_feedback 时在同一事务内完成会话
func (s *sessionService) SubmitMentorFeedback(ctx context.Context, actor permission.Actor, id string, req *dto.MentorFeedbackRequest) (*dto.SubmitMentorFeedbackResponse, error) {
	if !actor.Can(permission.SessionComplete) {
		return nil, pkgerrors.ErrPermissionDenied
	}

	var (
		fb        *model.MentorFeedback
		before    model.CounselingSession
		after     *model.CounselingSession
		completed bool
	)
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		sess, err := s.lock(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := canManage(actor, sess); err != nil {
			return err
		}
		if sess.Status == model.SessionCancelled {
			return ErrSessionCancelled
		}

		fb = &model.MentorFeedback{
			SessionID:          id,
			MentorExternalID:   sess.MentorExternalID,
			EngagementRating:   req.EngagementRating,
			PreparednessRating: req.PreparednessRating,
			ProgressRating:     req.ProgressRating,
			OverallRating:      req.OverallRating,
			Reflections:        req.Reflections,
			Concerns:           req.Concerns,
			Recommendations:    req.Recommendations,
		}
		fb.CreatedBy = &actor.UserID
		fb.UpdatedBy = &actor.UserID
		if err := txRepo.MentorFeedback.Upsert(ctx, fb); err != nil {
			return err
		}

		before = *sess
		after = sess
		if sess.Status != model.SessionPendingFeedback {
			return nil
		}
		completed = true
		return s.apply(ctx, txRepo, actor, sess, actionFeedbackComplete, "")
	})
	if err != nil {
		if !isSessionBusinessErr(err) {
			s.logger.Error("提交导师反馈失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	if completed {
		s.transitioned(ctx, &before, after)
	}
	if fb.UpdatedAt.IsZero() {
		fb.UpdatedAt = s.now()
	}
	return &dto.SubmitMentorFeedbackResponse{
		Feedback:         toMentorFeedbackResponse(fb),
		SessionCompleted: completed,
		Status:           string(after.Status),
	}, nil
}

// ────────────────────── Cancel / Reopen ──────────────────────

// Cancel 取消会话，要求完整系统权限
func (s *sessionService) Cancel(ctx context.Context, actor permission.Actor, id string, req *dto.CancelSessionRequest) (*dto.SessionDetailResponse, error) {
	if !actor.Can(permission.SessionCancel) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	if _, err := s.transition(ctx, actor, id, actionCancel, strings.TrimSpace(req.Reason)); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

// Reopen 将已完成、已取消或待反馈的会话退回 pending，子记录全部保留
func (s *sessionService) Reopen(ctx context.Context, actor permission.Actor, id string) (*dto.SessionDetailResponse, error) {
	if !actor.Can(permission.SessionUpdate) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	if _, err := s.transition(ctx, actor, id, actionReopen, ""); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

// ────────────────────── Meeting logs ──────────────────────

func (s *sessionService) AddMeetingLog(ctx context.Context, actor permission.Actor, id string, req *dto.CreateMeetingLogRequest) (*dto.MeetingLogResponse, error) {
	sess, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var studentID *string
	if req.StudentExternalID != nil && *req.StudentExternalID != "" {
		if !hasParticipant(sess, *req.StudentExternalID) {
			return nil, ErrParticipantNotFound
		}
		studentID = req.StudentExternalID
	}

	log := &model.MeetingLog{
		SessionID:         id,
		StudentExternalID: studentID,
		Focus:             strings.TrimSpace(req.Focus),
		Discussion:        req.Discussion,
		ActionItems:       req.ActionItems,
		NextSteps:         req.NextSteps,
	}
	log.CreatedBy = &actor.UserID
	log.UpdatedBy = &actor.UserID

	if err := s.repo.MeetingLog.Create(ctx, log); err != nil {
		s.logger.Error("新增会谈记录失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	s.feed.Publish(ctx, "meeting_logs", changefeed.OpInsert, nil, log)

	resp := toMeetingLogResponse(log)
	return &resp, nil
}

func (s *sessionService) ListMeetingLogs(ctx context.Context, actor permission.Actor, id string) ([]dto.MeetingLogResponse, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, sess); err != nil {
		return nil, err
	}
	logs := make([]dto.MeetingLogResponse, 0, len(sess.MeetingLogs))
	for i := range sess.MeetingLogs {
		logs = append(logs, toMeetingLogResponse(&sess.MeetingLogs[i]))
	}
	return logs, nil
}

// AuditLogs 会话的状态流转审计记录
func (s *sessionService) AuditLogs(ctx context.Context, actor permission.Actor, id string) ([]dto.AuditLogResponse, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}

	list, err := s.repo.AuditLog.ListBySession(ctx, id)
	if err != nil {
		s.logger.Error("查询会话审计失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AuditLogResponse, 0, len(list))
	for i := range list {
		l := &list[i]
		r := dto.AuditLogResponse{
			ID:         l.AuditLogID,
			Action:     l.Action,
			FromStatus: l.FromStatus,
			ToStatus:   l.ToStatus,
			Reason:     l.Reason,
			CreatedAt:  l.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if l.OperatorID != nil {
			r.OperatorID = *l.OperatorID
		}
		result = append(result, r)
	}
	return result, nil
}

// ────────────────────── Calendar ──────────────────────

func (s *sessionService) Calendar(ctx context.Context, actor permission.Actor) ([]byte, error) {
	from := s.now().Add(-calendarLookback)
	filter := repository.SessionFilter{From: &from}
	switch {
	case actor.IsMentor():
		filter.MentorExternalID = actor.ExternalID
	case actor.IsMentee():
		filter.StudentExternalID = actor.ExternalID
	}

	list, _, err := s.repo.Session.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询日历会话失败", zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//mentor-hub//sessions//ZH")
	cal.SetXWRCalName("辅导会话")

	stamp := s.now()
	for i := range list {
		sess := &list[i]
		ev := cal.AddEvent(sess.SessionID + "@mentor-hub")
		ev.SetDtStampTime(stamp)
		ev.SetModifiedAt(sess.UpdatedAt)
		ev.SetSummary(sess.Name)
		if sess.Location != "" {
			ev.SetLocation(sess.Location)
		}
		if sess.Description != "" {
			ev.SetDescription(sess.Description)
		}

		start, end, timed := sessionWindow(sess)
		if timed {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		} else {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(end)
		}

		switch sess.Status {
		case model.SessionCancelled:
			ev.SetStatus(ics.ObjectStatusCancelled)
		case model.SessionPending:
			ev.SetStatus(ics.ObjectStatusTentative)
		default:
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return []byte(cal.Serialize()), nil
}

// ── 内部辅助方法 ──

func (s *sessionService) load(ctx context.Context, id string) (*model.CounselingSession, error) {
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

func (s *sessionService) lock(ctx context.Context, txRepo *repository.Repository, id string) (*model.CounselingSession, error) {
	sess, err := txRepo.Session.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// editable 加载会话并校验管理权限，已取消的会话不可修改
func (s *sessionService) editable(ctx context.Context, actor permission.Actor, id string) (*model.CounselingSession, error) {
	if !actor.Can(permission.SessionUpdate) {
		return nil, pkgerrors.ErrPermissionDenied
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, sess); err != nil {
		return nil, err
	}
	if sess.Status == model.SessionCancelled {
		return nil, ErrSessionCancelled
	}
	return sess, nil
}

func (s *sessionService) detail(ctx context.Context, id string) (*dto.SessionDetailResponse, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSessionDetailResponse(sess), nil
}

// meetingLogReady 完成前置条件：至少一条填写了 focus 的会谈记录，不受任何配置影响
func (s *sessionService) meetingLogReady(ctx context.Context, id string) (bool, error) {
	n, err := s.repo.MeetingLog.CountWithFocus(ctx, id)
	if err != nil {
		s.logger.Error("统计会谈记录失败", zap.String("session_id", id), zap.Error(err))
		return false, err
	}
	return n > 0, nil
}

// transition 锁定会话行并在事务中完成一次状态流转
func (s *sessionService) transition(ctx context.Context, actor permission.Actor, id string, action sessionAction, reason string) (model.SessionStatus, error) {
	var (
		before model.CounselingSession
		after  *model.CounselingSession
	)
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		sess, err := s.lock(ctx, txRepo, id)
		if err != nil {
			return err
		}
		before = *sess
		after = sess
		return s.apply(ctx, txRepo, actor, sess, action, reason)
	})
	if err != nil {
		if !isSessionBusinessErr(err) {
			s.logger.Error("会话状态流转失败",
				zap.String("session_id", id),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		}
		return "", err
	}

	s.transitioned(ctx, &before, after)
	return after.Status, nil
}

// apply 在已锁定的会话上执行流转：更新状态、写审计、写状态变更事件
func (s *sessionService) apply(ctx context.Context, txRepo *repository.Repository, actor permission.Actor, sess *model.CounselingSession, action sessionAction, reason string) error {
	from := sess.Status
	to, err := nextSessionStatus(action, from)
	if err != nil {
		return err
	}

	sess.Status = to
	switch to {
	case model.SessionCompleted:
		now := s.now()
		sess.CompletedAt = &now
	case model.SessionCancelled:
		sess.CancellationReason = reason
	case model.SessionPending:
		sess.CompletedAt = nil
		sess.CancellationReason = ""
	}
	sess.UpdatedBy = &actor.UserID

	if err := txRepo.Session.Update(ctx, sess); err != nil {
		return err
	}
	if err := s.audit(ctx, txRepo, sess.SessionID, action, from, to, reason, actor); err != nil {
		return err
	}
	return s.statusEvent(ctx, txRepo, sess, from, to, reason)
}

// transitioned 提交后的副作用：计数与变更推送
func (s *sessionService) transitioned(ctx context.Context, before, after *model.CounselingSession) {
	metrics.SessionTransitions.WithLabelValues(string(before.Status), string(after.Status)).Inc()
	s.logger.Info("会话状态变更",
		zap.String("session_id", after.SessionID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
	)
	s.feed.Publish(ctx, "counseling_sessions", changefeed.OpUpdate, before, after)
}

func (s *sessionService) audit(ctx context.Context, repo *repository.Repository, sessionID string, action sessionAction, from, to model.SessionStatus, reason string, actor permission.Actor) error {
	entry := &model.SessionAuditLog{
		SessionID:  sessionID,
		Action:     string(action),
		FromStatus: string(from),
		ToStatus:   string(to),
		Reason:     reason,
	}
	if actor.UserID != "" {
		entry.OperatorID = &actor.UserID
	}
	return repo.AuditLog.Create(ctx, entry)
}

func (s *sessionService) inviteEvent(ctx context.Context, repo *repository.Repository, sess *model.CounselingSession, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	ev, err := outbox.NewEvent(outbox.AggregateSession, sess.SessionID, model.EventParticipantsAdded, notifier.SessionInvitation{
		SessionID:   sess.SessionID,
		SessionName: sess.Name,
		SessionDate: sess.SessionDate.Format("2006-01-02"),
		SessionTime: formatTimeRange(sess.StartTime, sess.EndTime),
		Location:    sess.Location,
		MentorName:  s.mentorName(ctx, sess.MentorExternalID),
		StudentIDs:  studentIDs,
	})
	if err != nil {
		return err
	}
	return repo.Outbox.Create(ctx, ev)
}

func (s *sessionService) statusEvent(ctx context.Context, repo *repository.Repository, sess *model.CounselingSession, from, to model.SessionStatus, reason string) error {
	participants, err := repo.Participant.ListBySession(ctx, sess.SessionID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.StudentExternalID)
	}

	ev, err := outbox.NewEvent(outbox.AggregateSession, sess.SessionID, model.EventSessionStatusChanged, notifier.SessionStatusNotice{
		SessionID:        sess.SessionID,
		SessionName:      sess.Name,
		MentorExternalID: sess.MentorExternalID,
		FromStatus:       string(from),
		ToStatus:         string(to),
		Reason:           reason,
		StudentIDs:       ids,
	})
	if err != nil {
		return err
	}
	return repo.Outbox.Create(ctx, ev)
}

// addParticipants 插入参与者并为实际新增的学生写邀请事件
func (s *sessionService) addParticipants(ctx context.Context, repo *repository.Repository, actor permission.Actor, sess *model.CounselingSession, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	added, err := repo.Participant.Add(ctx, sess.SessionID, ids, &actor.UserID)
	if err != nil {
		s.logger.Error("添加参与者失败", zap.String("session_id", sess.SessionID), zap.Error(err))
		return added, err
	}
	if len(added) == 0 {
		return added, nil
	}
	if err := s.audit(ctx, repo, sess.SessionID, actionAddParticipant, sess.Status, sess.Status, strings.Join(added, ","), actor); err != nil {
		return added, err
	}
	if err := s.inviteEvent(ctx, repo, sess, added); err != nil {
		return added, err
	}
	for _, sid := range added {
		s.feed.Publish(ctx, "session_participants", changefeed.OpInsert, nil, &model.SessionParticipant{
			SessionID:           sess.SessionID,
			StudentExternalID:   sid,
			ParticipationStatus: model.ParticipantInvited,
		})
	}
	return added, nil
}

func (s *sessionService) removeParticipants(ctx context.Context, actor permission.Actor, sess *model.CounselingSession, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.Participant.Remove(ctx, sess.SessionID, ids); err != nil {
		s.logger.Error("移除参与者失败", zap.String("session_id", sess.SessionID), zap.Error(err))
		return err
	}
	if err := s.audit(ctx, s.repo, sess.SessionID, actionRemoveParticipant, sess.Status, sess.Status, strings.Join(ids, ","), actor); err != nil {
		return err
	}
	for _, sid := range ids {
		s.feed.Publish(ctx, "session_participants", changefeed.OpDelete, &model.SessionParticipant{
			SessionID:         sess.SessionID,
			StudentExternalID: sid,
		}, nil)
	}
	return nil
}

// mentorName 从目录解析导师姓名，查不到时退回工号
func (s *sessionService) mentorName(ctx context.Context, externalID string) string {
	if s.dir == nil {
		return externalID
	}
	staff, err := s.dir.Source(s.settings.Settings(ctx).DirectoryOptions()).StaffByExternalID(ctx, externalID)
	if err != nil || staff == nil || staff.Name == "" {
		return externalID
	}
	return staff.Name
}

// canView 管理员、会话导师与参与学生可查看
func canView(actor permission.Actor, sess *model.CounselingSession) error {
	if actor.IsMentee() {
		if hasParticipant(sess, actor.ExternalID) {
			return nil
		}
		return pkgerrors.ErrPermissionDenied
	}
	return canManage(actor, sess)
}

// canManage 管理员或会话所属导师
func canManage(actor permission.Actor, sess *model.CounselingSession) error {
	if actor.Can(permission.FullSystemAccess) {
		return nil
	}
	if actor.IsMentor() && sess.MentorExternalID == actor.ExternalID {
		return nil
	}
	return pkgerrors.ErrPermissionDenied
}

func hasParticipant(sess *model.CounselingSession, studentID string) bool {
	for _, p := range sess.Participants {
		if p.StudentExternalID == studentID {
			return true
		}
	}
	return false
}

func isSessionBusinessErr(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionTransition) ||
		errors.Is(err, ErrSessionCancelled) ||
		errors.Is(err, pkgerrors.ErrPermissionDenied)
}

// diffRoster 计算名单差量：current 中不在 next 的需移除，next 中不在 current 的需新增
func diffRoster(current, next []string) (removed, added []string) {
	cur := make(map[string]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}
	nxt := make(map[string]struct{}, len(next))
	for _, id := range next {
		nxt[id] = struct{}{}
		if _, ok := cur[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range current {
		if _, ok := nxt[id]; !ok {
			removed = append(removed, id)
		}
	}
	return removed, added
}

// uniqueIDs 去空白、去重，保持首次出现顺序
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func checkTimeRange(start, end string) error {
	if start != "" && end != "" && end <= start {
		return ErrSessionTimeInvalid
	}
	return nil
}

func formatTimeRange(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + "-" + end
	default:
		return start
	}
}

// sessionWindow 计算日历事件区间；缺少开始时间时按全天事件处理
func sessionWindow(sess *model.CounselingSession) (time.Time, time.Time, bool) {
	day := time.Date(sess.SessionDate.Year(), sess.SessionDate.Month(), sess.SessionDate.Day(), 0, 0, 0, 0, time.Local)
	start, err := clockOn(day, sess.StartTime)
	if err != nil {
		return day, day.AddDate(0, 0, 1), false
	}
	end, err := clockOn(day, sess.EndTime)
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end, true
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	if hhmm == "" {
		return time.Time{}, errors.New("时间为空")
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

func toSessionResponse(sess *model.CounselingSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:                 sess.SessionID,
		Name:               sess.Name,
		SessionDate:        sess.SessionDate.Format("2006-01-02"),
		StartTime:          sess.StartTime,
		EndTime:            sess.EndTime,
		Location:           sess.Location,
		Description:        sess.Description,
		SessionType:        string(sess.SessionType),
		Priority:           string(sess.Priority),
		Status:             string(sess.Status),
		MentorExternalID:   sess.MentorExternalID,
		CancellationReason: sess.CancellationReason,
		Participants:       make([]dto.ParticipantResponse, 0, len(sess.Participants)),
		CreatedAt:          sess.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:          sess.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if sess.CompletedAt != nil {
		v := sess.CompletedAt.Format("2006-01-02T15:04:05Z")
		resp.CompletedAt = &v
	}
	if sess.CreatedBy != nil {
		resp.CreatedBy = *sess.CreatedBy
	}
	for _, p := range sess.Participants {
		resp.Participants = append(resp.Participants, dto.ParticipantResponse{
			StudentExternalID:   p.StudentExternalID,
			ParticipationStatus: string(p.ParticipationStatus),
		})
	}
	sort.SliceStable(resp.Participants, func(i, j int) bool {
		return resp.Participants[i].StudentExternalID < resp.Participants[j].StudentExternalID
	})
	return resp
}

func toSessionDetailResponse(sess *model.CounselingSession) *dto.SessionDetailResponse {
	resp := &dto.SessionDetailResponse{
		SessionResponse: toSessionResponse(sess),
		MeetingLogs:     make([]dto.MeetingLogResponse, 0, len(sess.MeetingLogs)),
		Goals:           make([]dto.GoalResponse, 0, len(sess.Goals)),
		MentorFeedback:  make([]dto.MentorFeedbackResponse, 0, len(sess.MentorFeedback)),
	}
	for i := range sess.MeetingLogs {
		resp.MeetingLogs = append(resp.MeetingLogs, toMeetingLogResponse(&sess.MeetingLogs[i]))
	}
	for i := range sess.Goals {
		resp.Goals = append(resp.Goals, toGoalResponse(&sess.Goals[i]))
	}
	for i := range sess.MentorFeedback {
		resp.MentorFeedback = append(resp.MentorFeedback, toMentorFeedbackResponse(&sess.MentorFeedback[i]))
	}
	return resp
}

func toMeetingLogResponse(l *model.MeetingLog) dto.MeetingLogResponse {
	resp := dto.MeetingLogResponse{
		ID:                l.MeetingLogID,
		SessionID:         l.SessionID,
		StudentExternalID: l.StudentExternalID,
		Focus:             l.Focus,
		Discussion:        l.Discussion,
		ActionItems:       l.ActionItems,
		NextSteps:         l.NextSteps,
		CreatedAt:         l.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if l.CreatedBy != nil {
		resp.LoggedBy = *l.CreatedBy
	}
	return resp
}

func toMentorFeedbackResponse(fb *model.MentorFeedback) dto.MentorFeedbackResponse {
	return dto.MentorFeedbackResponse{
		ID:                 fb.FeedbackID,
		SessionID:          fb.SessionID,
		MentorExternalID:   fb.MentorExternalID,
		EngagementRating:   fb.EngagementRating,
		PreparednessRating: fb.PreparednessRating,
		ProgressRating:     fb.ProgressRating,
		OverallRating:      fb.OverallRating,
		Reflections:        fb.Reflections,
		Concerns:           fb.Concerns,
		Recommendations:    fb.Recommendations,
		UpdatedAt:          fb.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
