package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
	pkgerrors "mentor-hub/backend/pkg/errors"
)

// ── 内存仓储 ──
//
// 所有 mock 仓储共享一个 memStore，会话详情等跨表读取因此与真实数据库行为一致。
// failOn 按 "表.操作" 注入错误，用于覆盖中途失败的分支。

type memStore struct {
	seq int

	users           map[string]*model.User
	depts           map[string]*model.Department
	cycles          map[string]*model.AssignmentCycle
	assignments     map[string]*model.Assignment
	sessions        map[string]*model.CounselingSession
	participants    []model.SessionParticipant
	meetingLogs     []model.MeetingLog
	mentorFeedback  []model.MentorFeedback
	sessionFeedback []model.SessionFeedback
	goals           map[string]*model.Goal
	goalVersions    []model.GoalVersion
	audits          []model.SessionAuditLog
	notifications   []model.Notification
	outbox          []model.OutboxEvent
	sysConfig       *model.SystemConfig

	// constraint ValidateConstraints 的返回值，nil 表示通过
	constraint *repository.ConstraintResult
	failOn     map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*model.User),
		depts:       make(map[string]*model.Department),
		cycles:      make(map[string]*model.AssignmentCycle),
		assignments: make(map[string]*model.Assignment),
		sessions:    make(map[string]*model.CounselingSession),
		goals:       make(map[string]*model.Goal),
		failOn:      make(map[string]error),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:            &mockUserRepo{s},
		Department:      &mockDeptRepo{s},
		Cycle:           &mockCycleRepo{s},
		Assignment:      &mockAssignmentRepo{s},
		Session:         &mockSessionRepo{s},
		Participant:     &mockParticipantRepo{s},
		MeetingLog:      &mockMeetingLogRepo{s},
		MentorFeedback:  &mockMentorFeedbackRepo{s},
		SessionFeedback: &mockSessionFeedbackRepo{s},
		Goal:            &mockGoalRepo{s},
		AuditLog:        &mockAuditLogRepo{s},
		Notification:    &mockNotificationRepo{s},
		Outbox:          &mockOutboxRepo{s},
		SystemConfig:    &mockSystemConfigRepo{s},
	}
}

func (s *memStore) outboxOf(eventType string) []model.OutboxEvent {
	var out []model.OutboxEvent
	for _, ev := range s.outbox {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (s *memStore) auditActions(sessionID string) []string {
	var out []string
	for _, a := range s.audits {
		if a.SessionID == sessionID {
			out = append(out, a.Action)
		}
	}
	return out
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	if cp.DepartmentID != nil {
		cp.Department = m.s.depts[*cp.DepartmentID]
	}
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.s.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.s.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.s.users {
		if role == "" || u.Role == role {
			all = append(all, *u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	return page(all, offset, limit), int64(len(all)), nil
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct{ s *memStore }

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d, ok := m.s.depts[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) GetByCode(_ context.Context, code string) (*model.Department, error) {
	for _, d := range m.s.depts {
		if d.Code == code {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) List(context.Context, string) ([]model.Department, error) {
	var list []model.Department
	for _, d := range m.s.depts {
		list = append(list, *d)
	}
	return list, nil
}

// ── Mock CycleRepository ──

type mockCycleRepo struct{ s *memStore }

func (m *mockCycleRepo) Create(_ context.Context, cycle *model.AssignmentCycle) error {
	if cycle.CycleID == "" {
		cycle.CycleID = m.s.nextID("cycle")
	}
	cp := *cycle
	m.s.cycles[cycle.CycleID] = &cp
	return nil
}

func (m *mockCycleRepo) GetByID(_ context.Context, id string) (*model.AssignmentCycle, error) {
	if c, ok := m.s.cycles[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCycleRepo) GetActive(_ context.Context) (*model.AssignmentCycle, error) {
	for _, c := range m.s.cycles {
		if c.Status == model.CycleActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCycleRepo) List(_ context.Context) ([]model.AssignmentCycle, error) {
	var list []model.AssignmentCycle
	for _, c := range m.s.cycles {
		list = append(list, *c)
	}
	return list, nil
}

func (m *mockCycleRepo) Update(_ context.Context, cycle *model.AssignmentCycle) error {
	cp := *cycle
	m.s.cycles[cycle.CycleID] = &cp
	return nil
}

func (m *mockCycleRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.s.cycles, id)
	return nil
}

func (m *mockCycleRepo) ClearActive(_ context.Context) error {
	for _, c := range m.s.cycles {
		if c.Status == model.CycleActive {
			c.Status = model.CycleClosed
		}
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *memStore }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	if err := m.s.fail("assignment.create"); err != nil {
		return err
	}
	// 部分唯一索引：同周期同学生只能有一个在任主导师
	if a.Role == model.AssignmentRolePrimary && a.Status == model.AssignmentActive {
		for _, x := range m.s.assignments {
			if x.CycleID == a.CycleID && x.StudentExternalID == a.StudentExternalID &&
				x.Role == model.AssignmentRolePrimary && x.Status == model.AssignmentActive {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if a.AssignmentID == "" {
		a.AssignmentID = m.s.nextID("asg")
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.s.assignments[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	a, ok := m.s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Cycle = m.s.cycles[a.CycleID]
	return &cp, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.Assignment) error {
	if _, ok := m.s.assignments[a.AssignmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Cycle = nil
	m.s.assignments[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) match(f repository.AssignmentFilter) []model.Assignment {
	var out []model.Assignment
	for _, a := range m.s.assignments {
		if f.CycleID != "" && a.CycleID != f.CycleID {
			continue
		}
		if f.MentorExternalID != "" && a.MentorExternalID != f.MentorExternalID {
			continue
		}
		if f.StudentExternalID != "" && a.StudentExternalID != f.StudentExternalID {
			continue
		}
		if f.Status != "" && string(a.Status) != f.Status {
			continue
		}
		if f.Role != "" && string(a.Role) != f.Role {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	return out
}

func (m *mockAssignmentRepo) List(_ context.Context, f repository.AssignmentFilter, offset, limit int) ([]model.Assignment, int64, error) {
	all := m.match(f)
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockAssignmentRepo) ListAll(_ context.Context, f repository.AssignmentFilter) ([]model.Assignment, error) {
	return m.match(f), nil
}

func (m *mockAssignmentRepo) CountActiveByMentor(_ context.Context, mentorExternalID, cycleID string) (int64, error) {
	return int64(len(m.match(repository.AssignmentFilter{
		MentorExternalID: mentorExternalID,
		CycleID:          cycleID,
		Status:           string(model.AssignmentActive),
	}))), nil
}

func (m *mockAssignmentRepo) Stats(_ context.Context, cycleID string) (*repository.AssignmentCounts, error) {
	var c repository.AssignmentCounts
	for _, a := range m.match(repository.AssignmentFilter{CycleID: cycleID}) {
		c.Total++
		switch a.Status {
		case model.AssignmentActive:
			c.Active++
			if a.NeedsAttention() {
				c.NeedsAttention++
			}
		case model.AssignmentPending:
			c.Pending++
		case model.AssignmentCompleted:
			c.Completed++
		}
	}
	return &c, nil
}

func (m *mockAssignmentRepo) ValidateConstraints(context.Context, string, string, string, model.AssignmentRole) (*repository.ConstraintResult, error) {
	if err := m.s.fail("assignment.validate"); err != nil {
		return nil, err
	}
	if m.s.constraint != nil {
		return m.s.constraint, nil
	}
	return &repository.ConstraintResult{IsValid: true}, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct{ s *memStore }

func (m *mockSessionRepo) Create(_ context.Context, sess *model.CounselingSession) error {
	if err := m.s.fail("session.create"); err != nil {
		return err
	}
	if sess.SessionID == "" {
		sess.SessionID = m.s.nextID("sess")
	}
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	if sess.Version == 0 {
		sess.Version = 1
	}
	m.store(sess)
	return nil
}

func (m *mockSessionRepo) store(sess *model.CounselingSession) {
	cp := *sess
	cp.Participants = nil
	cp.MeetingLogs = nil
	cp.Goals = nil
	cp.MentorFeedback = nil
	m.s.sessions[sess.SessionID] = &cp
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.CounselingSession, error) {
	sess, ok := m.s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sess
	return &cp, nil
}

func (m *mockSessionRepo) GetDetail(ctx context.Context, id string) (*model.CounselingSession, error) {
	sess, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range m.s.participants {
		if p.SessionID == id {
			sess.Participants = append(sess.Participants, p)
		}
	}
	for _, l := range m.s.meetingLogs {
		if l.SessionID == id {
			sess.MeetingLogs = append(sess.MeetingLogs, l)
		}
	}
	for _, g := range m.s.goals {
		if g.SessionID == id {
			sess.Goals = append(sess.Goals, *g)
		}
	}
	for _, fb := range m.s.mentorFeedback {
		if fb.SessionID == id {
			sess.MentorFeedback = append(sess.MentorFeedback, fb)
		}
	}
	return sess, nil
}

func (m *mockSessionRepo) GetForUpdate(ctx context.Context, id string) (*model.CounselingSession, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSessionRepo) Update(_ context.Context, sess *model.CounselingSession) error {
	if err := m.s.fail("session.update"); err != nil {
		return err
	}
	if _, ok := m.s.sessions[sess.SessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	sess.UpdatedAt = time.Now()
	m.store(sess)
	return nil
}

func (m *mockSessionRepo) List(ctx context.Context, f repository.SessionFilter, offset, limit int) ([]model.CounselingSession, int64, error) {
	var all []model.CounselingSession
	for id, sess := range m.s.sessions {
		if f.MentorExternalID != "" && sess.MentorExternalID != f.MentorExternalID {
			continue
		}
		if f.Status != "" && string(sess.Status) != f.Status {
			continue
		}
		if f.From != nil && sess.SessionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && sess.SessionDate.After(*f.To) {
			continue
		}
		detail, _ := m.GetDetail(ctx, id)
		if f.StudentExternalID != "" && !hasParticipant(detail, f.StudentExternalID) {
			continue
		}
		all = append(all, *detail)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SessionID < all[j].SessionID })
	if limit <= 0 {
		return all, int64(len(all)), nil
	}
	return page(all, offset, limit), int64(len(all)), nil
}

// ── Mock ParticipantRepository ──

type mockParticipantRepo struct{ s *memStore }

func (m *mockParticipantRepo) ListBySession(_ context.Context, sessionID string) ([]model.SessionParticipant, error) {
	var out []model.SessionParticipant
	for _, p := range m.s.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockParticipantRepo) Get(_ context.Context, sessionID, studentExternalID string) (*model.SessionParticipant, error) {
	for i := range m.s.participants {
		p := m.s.participants[i]
		if p.SessionID == sessionID && p.StudentExternalID == studentExternalID {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipantRepo) Add(ctx context.Context, sessionID string, ids []string, createdBy *string) ([]string, error) {
	if err := m.s.fail("participant.add"); err != nil {
		return nil, err
	}
	var added []string
	for _, sid := range ids {
		if _, err := m.Get(ctx, sessionID, sid); err == nil {
			continue
		}
		p := model.SessionParticipant{
			ParticipantID:       m.s.nextID("p"),
			SessionID:           sessionID,
			StudentExternalID:   sid,
			ParticipationStatus: model.ParticipantInvited,
		}
		p.CreatedBy = createdBy
		m.s.participants = append(m.s.participants, p)
		added = append(added, sid)
	}
	return added, nil
}

func (m *mockParticipantRepo) Remove(_ context.Context, sessionID string, ids []string) error {
	if err := m.s.fail("participant.remove"); err != nil {
		return err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.s.participants[:0]
	for _, p := range m.s.participants {
		if p.SessionID == sessionID && drop[p.StudentExternalID] {
			continue
		}
		kept = append(kept, p)
	}
	m.s.participants = kept
	return nil
}

func (m *mockParticipantRepo) UpdateStatus(_ context.Context, sessionID, studentExternalID string, status model.ParticipationStatus, _ *string) error {
	for i := range m.s.participants {
		p := &m.s.participants[i]
		if p.SessionID == sessionID && p.StudentExternalID == studentExternalID {
			p.ParticipationStatus = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock MeetingLogRepository ──

type mockMeetingLogRepo struct{ s *memStore }

func (m *mockMeetingLogRepo) Create(_ context.Context, log *model.MeetingLog) error {
	if log.MeetingLogID == "" {
		log.MeetingLogID = m.s.nextID("log")
	}
	log.CreatedAt = time.Now()
	m.s.meetingLogs = append(m.s.meetingLogs, *log)
	return nil
}

func (m *mockMeetingLogRepo) ListBySession(_ context.Context, sessionID string) ([]model.MeetingLog, error) {
	var out []model.MeetingLog
	for _, l := range m.s.meetingLogs {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockMeetingLogRepo) CountWithFocus(_ context.Context, sessionID string) (int64, error) {
	var n int64
	for _, l := range m.s.meetingLogs {
		if l.SessionID == sessionID && strings.TrimSpace(l.Focus) != "" {
			n++
		}
	}
	return n, nil
}

// ── Mock MentorFeedbackRepository ──

type mockMentorFeedbackRepo struct{ s *memStore }

func (m *mockMentorFeedbackRepo) Upsert(_ context.Context, fb *model.MentorFeedback) error {
	fb.UpdatedAt = time.Now()
	for i := range m.s.mentorFeedback {
		x := &m.s.mentorFeedback[i]
		if x.SessionID == fb.SessionID && x.MentorExternalID == fb.MentorExternalID {
			fb.FeedbackID = x.FeedbackID
			*x = *fb
			return nil
		}
	}
	fb.FeedbackID = m.s.nextID("mfb")
	m.s.mentorFeedback = append(m.s.mentorFeedback, *fb)
	return nil
}

func (m *mockMentorFeedbackRepo) Get(_ context.Context, sessionID, mentorExternalID string) (*model.MentorFeedback, error) {
	for _, fb := range m.s.mentorFeedback {
		if fb.SessionID == sessionID && fb.MentorExternalID == mentorExternalID {
			cp := fb
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMentorFeedbackRepo) Exists(ctx context.Context, sessionID, mentorExternalID string) (bool, error) {
	_, err := m.Get(ctx, sessionID, mentorExternalID)
	return err == nil, nil
}

// ── Mock SessionFeedbackRepository ──

type mockSessionFeedbackRepo struct{ s *memStore }

func (m *mockSessionFeedbackRepo) Create(ctx context.Context, fb *model.SessionFeedback) error {
	if ok, _ := m.Exists(ctx, fb.SessionID, fb.StudentExternalID); ok {
		return gorm.ErrDuplicatedKey
	}
	fb.FeedbackID = m.s.nextID("sfb")
	fb.CreatedAt = time.Now()
	m.s.sessionFeedback = append(m.s.sessionFeedback, *fb)
	return nil
}

func (m *mockSessionFeedbackRepo) Exists(_ context.Context, sessionID, studentExternalID string) (bool, error) {
	for _, fb := range m.s.sessionFeedback {
		if fb.SessionID == sessionID && fb.StudentExternalID == studentExternalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSessionFeedbackRepo) ListBySession(_ context.Context, sessionID string) ([]model.SessionFeedback, error) {
	var out []model.SessionFeedback
	for _, fb := range m.s.sessionFeedback {
		if fb.SessionID == sessionID {
			out = append(out, fb)
		}
	}
	return out, nil
}

// ── Mock GoalRepository ──

type mockGoalRepo struct{ s *memStore }

func (m *mockGoalRepo) Create(_ context.Context, goal *model.Goal) error {
	if goal.GoalID == "" {
		goal.GoalID = m.s.nextID("goal")
	}
	if goal.Version == 0 {
		goal.Version = 1
	}
	cp := *goal
	m.s.goals[goal.GoalID] = &cp
	return nil
}

func (m *mockGoalRepo) GetByID(_ context.Context, id string) (*model.Goal, error) {
	if g, ok := m.s.goals[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGoalRepo) Update(_ context.Context, goal *model.Goal) error {
	cur, ok := m.s.goals[goal.GoalID]
	if !ok || cur.Version != goal.Version {
		return pkgerrors.ErrOptimisticLock
	}
	goal.Version++
	cp := *goal
	m.s.goals[goal.GoalID] = &cp
	return nil
}

func (m *mockGoalRepo) ListBySession(_ context.Context, sessionID string) ([]model.Goal, error) {
	var out []model.Goal
	for _, g := range m.s.goals {
		if g.SessionID == sessionID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GoalID < out[j].GoalID })
	return out, nil
}

func (m *mockGoalRepo) ListByStudent(_ context.Context, studentExternalID, mentorExternalID string) ([]model.Goal, error) {
	var out []model.Goal
	for _, g := range m.s.goals {
		if g.StudentExternalID != studentExternalID {
			continue
		}
		if mentorExternalID != "" {
			sess, ok := m.s.sessions[g.SessionID]
			if !ok || sess.MentorExternalID != mentorExternalID {
				continue
			}
		}
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGoalRepo) AppendVersion(_ context.Context, v *model.GoalVersion) error {
	v.GoalVersionID = m.s.nextID("gv")
	m.s.goalVersions = append(m.s.goalVersions, *v)
	return nil
}

func (m *mockGoalRepo) ListVersions(_ context.Context, goalID string) ([]model.GoalVersion, error) {
	var out []model.GoalVersion
	for _, v := range m.s.goalVersions {
		if v.GoalID == goalID {
			out = append(out, v)
		}
	}
	return out, nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct{ s *memStore }

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.SessionAuditLog) error {
	log.AuditLogID = m.s.nextID("audit")
	log.CreatedAt = time.Now()
	m.s.audits = append(m.s.audits, *log)
	return nil
}

func (m *mockAuditLogRepo) ListBySession(_ context.Context, sessionID string) ([]model.SessionAuditLog, error) {
	var out []model.SessionAuditLog
	for _, a := range m.s.audits {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) CreateBatch(_ context.Context, list []model.Notification) error {
	for _, n := range list {
		n.NotificationID = m.s.nextID("ntf")
		m.s.notifications = append(m.s.notifications, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(_ context.Context, recipient string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.s.notifications {
		if n.RecipientExternalID != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		all = append(all, n)
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, recipient string) (int64, error) {
	var n int64
	for _, x := range m.s.notifications {
		if x.RecipientExternalID == recipient && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, recipient string) error {
	for i := range m.s.notifications {
		n := &m.s.notifications[i]
		if n.NotificationID == id && n.RecipientExternalID == recipient {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, recipient string) error {
	for i := range m.s.notifications {
		if m.s.notifications[i].RecipientExternalID == recipient {
			m.s.notifications[i].IsRead = true
		}
	}
	return nil
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct{ s *memStore }

func (m *mockOutboxRepo) Create(_ context.Context, ev *model.OutboxEvent) error {
	if err := m.s.fail("outbox.create"); err != nil {
		return err
	}
	ev.EventID = m.s.nextID("ev")
	m.s.outbox = append(m.s.outbox, *ev)
	return nil
}

func (m *mockOutboxRepo) ClaimPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	for _, ev := range m.s.outbox {
		if ev.Status == model.OutboxPending && len(out) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockOutboxRepo) set(id string, fn func(ev *model.OutboxEvent)) error {
	for i := range m.s.outbox {
		if m.s.outbox[i].EventID == id {
			fn(&m.s.outbox[i])
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockOutboxRepo) MarkDispatched(_ context.Context, id string) error {
	return m.set(id, func(ev *model.OutboxEvent) { ev.Status = model.OutboxDispatched })
}

func (m *mockOutboxRepo) MarkRetry(_ context.Context, id string, attempts int, lastErr string, at time.Time) error {
	return m.set(id, func(ev *model.OutboxEvent) {
		ev.Attempts = attempts
		ev.LastError = lastErr
		ev.AvailableAt = at
	})
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, id string, attempts int, lastErr string) error {
	return m.set(id, func(ev *model.OutboxEvent) {
		ev.Status = model.OutboxFailed
		ev.Attempts = attempts
		ev.LastError = lastErr
	})
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct{ s *memStore }

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	if err := m.s.fail("config.get"); err != nil {
		return nil, err
	}
	if m.s.sysConfig == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.s.sysConfig
	return &cp, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	cfg.UpdatedAt = time.Now()
	cp := *cfg
	m.s.sysConfig = &cp
	return nil
}

// ── 目录与配置桩 ──

// fakeDirectory 内存目录数据源
type fakeDirectory struct {
	students map[string]directory.Student
	staff    map[string]directory.Staff
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		students: map[string]directory.Student{
			"S001": {ExternalID: "S001", Name: "张三", Department: "计算机系", Program: "软件工程"},
			"S002": {ExternalID: "S002", Name: "李四", Department: "计算机系", Program: "人工智能"},
			"S003": {ExternalID: "S003", Name: "王五", Department: "数学系", Program: "统计学"},
			"S004": {ExternalID: "S004", Name: "赵六", Department: "数学系", Program: "应用数学"},
		},
		staff: map[string]directory.Staff{
			"T001": {ExternalID: "T001", Name: "陈老师", Department: "计算机系"},
			"T002": {ExternalID: "T002", Name: "刘老师", Department: "数学系"},
		},
	}
}

func (d *fakeDirectory) Name() string { return "fake" }

func (d *fakeDirectory) Students(context.Context, directory.Filter) ([]directory.Student, error) {
	var out []directory.Student
	for _, s := range d.students {
		out = append(out, s)
	}
	return out, nil
}

func (d *fakeDirectory) Staff(context.Context, directory.Filter) ([]directory.Staff, error) {
	var out []directory.Staff
	for _, s := range d.staff {
		out = append(out, s)
	}
	return out, nil
}

func (d *fakeDirectory) Departments(context.Context) ([]directory.Department, error) {
	return []directory.Department{{ID: "d1", Name: "计算机系"}}, nil
}

func (d *fakeDirectory) Institutions(context.Context) ([]directory.Institution, error) {
	return []directory.Institution{{ID: "i1", Name: "示例大学"}}, nil
}

func (d *fakeDirectory) StudentByExternalID(_ context.Context, id string) (*directory.Student, error) {
	if s, ok := d.students[id]; ok {
		return &s, nil
	}
	return nil, directory.ErrNotFound
}

func (d *fakeDirectory) StaffByExternalID(_ context.Context, id string) (*directory.Staff, error) {
	if s, ok := d.staff[id]; ok {
		return &s, nil
	}
	return nil, directory.ErrNotFound
}

// staticSettings 固定配置
type staticSettings Settings

func (s staticSettings) Settings(context.Context) Settings { return Settings(s) }

// ── 通用辅助 ──

var errBoom = errors.New("boom")

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func strPtr(s string) *string { return &s }
