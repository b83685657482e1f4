package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/permission"
	"mentor-hub/backend/internal/repository"
)

var adminActor = permission.Actor{UserID: "admin-1", ExternalID: "A001", Role: permission.RoleAdmin}

type assignmentFixture struct {
	store    *memStore
	svc      AssignmentService
	settings *staticSettings
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	store := newMemStore()
	settings := &staticSettings{}
	resolver := directory.NewResolver(nil, newFakeDirectory(), zap.NewNop())
	repo := store.repository()
	validator := NewAssignmentValidator(repo, resolver, settings, zap.NewNop())
	return &assignmentFixture{
		store:    store,
		svc:      NewAssignmentService(repo, validator, nil, zap.NewNop()),
		settings: settings,
	}
}

func TestAssignmentCreate_NoActiveCycle(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleDraft, false)

	res, err := f.svc.Create(context.Background(), adminActor, &dto.CreateAssignmentRequest{
		MentorExternalID: "T001", StudentExternalID: "S001",
	})
	require.ErrorIs(t, err, ErrNoActiveCycle)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Empty(t, f.store.assignments)
	assert.Empty(t, f.store.outbox)
}

func TestAssignmentCreate_LockedCycle(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, true)

	_, err := f.svc.Create(context.Background(), adminActor, &dto.CreateAssignmentRequest{
		MentorExternalID: "T001", StudentExternalID: "S001",
	})
	assert.ErrorIs(t, err, ErrNoActiveCycle)
	assert.Empty(t, f.store.assignments)
}

func TestAssignmentCreate_ConstraintMessagePassedThrough(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	msg := "Mentor and student must be in the same department"
	f.store.constraint = &repository.ConstraintResult{IsValid: false, ErrorMessage: &msg}

	res, err := f.svc.Create(context.Background(), adminActor, &dto.CreateAssignmentRequest{
		MentorExternalID: "T001", StudentExternalID: "S003",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, msg, res.Error)
	assert.Empty(t, f.store.assignments)
	assert.Empty(t, f.store.outbox)
}

func TestAssignmentCreate_DirectoryMisses(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T999", StudentExternalID: "S001"})
	require.NoError(t, err)
	assert.Equal(t, msgMentorMissing, res.Error)

	res, err = f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S999"})
	require.NoError(t, err)
	assert.Equal(t, msgStudentMissing, res.Error)
	assert.Empty(t, f.store.assignments)
}

func TestAssignmentCreate_Success(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)

	res, err := f.svc.Create(context.Background(), adminActor, &dto.CreateAssignmentRequest{
		MentorExternalID:  "T001",
		StudentExternalID: "S001",
		Notes:             "首次配对",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Assignment)

	a := res.Assignment
	assert.Equal(t, "c1", a.CycleID)
	assert.Equal(t, string(model.AssignmentActive), a.Status)
	assert.Equal(t, string(model.AssignmentRolePrimary), a.Role)
	assert.Nil(t, a.EffectiveTo)
	assert.Equal(t, "计算机系", a.Metadata[model.MetaDepartment])
	assert.Equal(t, "软件工程", a.Metadata[model.MetaProgram])
	assert.Equal(t, "manual:admin", a.Metadata[model.MetaCreatedVia])
	assert.False(t, a.NeedsAttention, "新建分配不需要复核")
	assert.Len(t, res.Assignments, 1)

	events := f.store.outboxOf(model.EventAssignmentCreated)
	require.Len(t, events, 1)
	var notice notifier.AssignmentNotice
	require.NoError(t, json.Unmarshal(events[0].Payload, &notice))
	assert.Equal(t, "T001", notice.MentorExternalID)
	assert.Equal(t, "S001", notice.StudentExternalID)
}

func TestAssignmentCreate_DuplicatePrimary(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	ctx := context.Background()
	req := &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S001"}

	first, err := f.svc.Create(ctx, adminActor, req)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T002", StudentExternalID: "S001"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, msgDuplicatePrimary, second.Error)
	assert.Len(t, f.store.assignments, 1)
	assert.Len(t, f.store.outboxOf(model.EventAssignmentCreated), 1)
}

func TestAssignmentCreate_Caseload(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	*f.settings = staticSettings{EnforceCaseload: true, MaxCaseload: 1}
	ctx := context.Background()

	first, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S001"})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S002"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Error, "上限")
}

func TestAssignmentEnd(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{
		MentorExternalID: "T001", StudentExternalID: "S001", Notes: "初始备注",
	})
	require.NoError(t, err)
	id := created.Assignment.ID

	ended, err := f.svc.End(ctx, adminActor, id, &dto.EndAssignmentRequest{Reason: "学生转专业"})
	require.NoError(t, err)
	require.True(t, ended.Success)
	assert.Equal(t, string(model.AssignmentCompleted), ended.Assignment.Status)
	assert.NotNil(t, ended.Assignment.EffectiveTo)
	assert.True(t, strings.HasPrefix(ended.Assignment.Notes, "初始备注\n"))
	assert.Contains(t, ended.Assignment.Notes, "学生转专业")
	assert.Len(t, f.store.outboxOf(model.EventAssignmentEnded), 1)

	_, err = f.svc.End(ctx, adminActor, id, &dto.EndAssignmentRequest{})
	assert.ErrorIs(t, err, ErrAssignmentEnded)
}

func TestAssignmentUpdate_TerminalNotRevived(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S001"})
	require.NoError(t, err)
	id := created.Assignment.ID
	_, err = f.svc.End(ctx, adminActor, id, &dto.EndAssignmentRequest{})
	require.NoError(t, err)

	active := string(model.AssignmentActive)
	_, err = f.svc.Update(ctx, adminActor, id, &dto.UpdateAssignmentRequest{Status: &active})
	assert.ErrorIs(t, err, ErrAssignmentTransition)

	// 终态分配仍可修改备注
	notes := "补充说明"
	res, err := f.svc.Update(ctx, adminActor, id, &dto.UpdateAssignmentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, res.Assignment.Notes)
	assert.Equal(t, string(model.AssignmentCompleted), res.Assignment.Status)
}

func TestAssignmentUpdate_TerminalStampsEffectiveTo(t *testing.T) {
	for _, status := range []model.AssignmentStatus{model.AssignmentCompleted, model.AssignmentCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newAssignmentFixture(t)
			seedCycle(f.store, "c1", model.CycleActive, false)
			ctx := context.Background()

			created, err := f.svc.Create(ctx, adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S001"})
			require.NoError(t, err)
			require.Nil(t, created.Assignment.EffectiveTo)
			id := created.Assignment.ID

			next := string(status)
			res, err := f.svc.Update(ctx, adminActor, id, &dto.UpdateAssignmentRequest{Status: &next})
			require.NoError(t, err)
			assert.Equal(t, next, res.Assignment.Status)
			assert.NotNil(t, res.Assignment.EffectiveTo, "进入终态时应写入 effective_to")
			assert.NotNil(t, f.store.assignments[id].EffectiveTo)
			assert.Len(t, f.store.outboxOf(model.EventAssignmentEnded), 1)

			// 终态下清空 effective_to 会被重新写入
			empty := ""
			res, err = f.svc.Update(ctx, adminActor, id, &dto.UpdateAssignmentRequest{EffectiveTo: &empty})
			require.NoError(t, err)
			assert.NotNil(t, res.Assignment.EffectiveTo)
			assert.Len(t, f.store.outboxOf(model.EventAssignmentEnded), 1, "已是终态不重复发事件")
		})
	}
}

func TestAssignmentStats_NeedsAttention(t *testing.T) {
	f := newAssignmentFixture(t)
	seedCycle(f.store, "c1", model.CycleActive, false)
	f.store.assignments["legacy"] = &model.Assignment{
		AssignmentID: "legacy", CycleID: "c1", MentorExternalID: "T002", StudentExternalID: "S004",
		Role: model.AssignmentRolePrimary, Status: model.AssignmentActive,
	}
	_, err := f.svc.Create(context.Background(), adminActor, &dto.CreateAssignmentRequest{MentorExternalID: "T001", StudentExternalID: "S001"})
	require.NoError(t, err)

	stats, err := f.svc.Stats(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.NeedsAttention)
}
