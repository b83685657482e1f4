package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"mentor-hub/backend/config"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/notifier"
	"mentor-hub/backend/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type outboxCall struct {
	id       string
	status   model.OutboxStatus
	attempts int
	lastErr  string
}

type fakeOutboxRepo struct {
	mu      sync.Mutex
	pending []model.OutboxEvent
	calls   []outboxCall
	claims  int
}

func (f *fakeOutboxRepo) Create(_ context.Context, ev *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, *ev)
	return nil
}

func (f *fakeOutboxRepo) ClaimPending(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	if len(f.pending) > limit {
		out := f.pending[:limit]
		f.pending = f.pending[limit:]
		return out, nil
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeOutboxRepo) MarkDispatched(_ context.Context, id string) error {
	f.calls = append(f.calls, outboxCall{id: id, status: model.OutboxDispatched})
	return nil
}

func (f *fakeOutboxRepo) MarkRetry(_ context.Context, id string, attempts int, lastErr string, _ time.Time) error {
	f.calls = append(f.calls, outboxCall{id: id, status: model.OutboxPending, attempts: attempts, lastErr: lastErr})
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, id string, attempts int, lastErr string) error {
	f.calls = append(f.calls, outboxCall{id: id, status: model.OutboxFailed, attempts: attempts, lastErr: lastErr})
	return nil
}

func (f *fakeOutboxRepo) callFor(id string) outboxCall {
	for _, c := range f.calls {
		if c.id == id {
			return c
		}
	}
	return outboxCall{}
}

func newWorker(repo *fakeOutboxRepo) *Worker {
	return NewWorker(&repository.Repository{Outbox: repo}, config.OutboxConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
	}, zap.NewNop())
}

func event(t *testing.T, id, eventType string, attempts int, payload interface{}) model.OutboxEvent {
	t.Helper()
	ev, err := NewEvent(AggregateSession, "agg-"+id, eventType, payload)
	require.NoError(t, err)
	ev.EventID = id
	ev.Attempts = attempts
	return *ev
}

func TestDispatchOnce_Outcomes(t *testing.T) {
	repo := &fakeOutboxRepo{}
	repo.pending = []model.OutboxEvent{
		event(t, "ok", "Good", 0, map[string]string{"k": "v"}),
		event(t, "retry", "Flaky", 0, nil),
		event(t, "giveup", "Flaky", 2, nil),
		event(t, "unknown", "Nope", 0, nil),
	}

	w := newWorker(repo)
	w.Handle("Good", func(ctx context.Context, ev *model.OutboxEvent) error { return nil })
	w.Handle("Flaky", func(ctx context.Context, ev *model.OutboxEvent) error { return errors.New("smtp down") })

	n, err := w.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, model.OutboxDispatched, repo.callFor("ok").status)

	retry := repo.callFor("retry")
	assert.Equal(t, model.OutboxPending, retry.status)
	assert.Equal(t, 1, retry.attempts)
	assert.Equal(t, "smtp down", retry.lastErr)

	giveup := repo.callFor("giveup")
	assert.Equal(t, model.OutboxFailed, giveup.status, "达到最大次数后应标记失败")
	assert.Equal(t, 3, giveup.attempts)

	assert.Equal(t, model.OutboxFailed, repo.callFor("unknown").status, "未注册类型直接失败")
}

func TestDispatchOnce_HandlerPanic(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []model.OutboxEvent{event(t, "p", "Boom", 0, nil)}}
	w := newWorker(repo)
	w.Handle("Boom", func(ctx context.Context, ev *model.OutboxEvent) error { panic("oops") })

	_, err := w.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, repo.callFor("p").status)
	assert.Contains(t, repo.callFor("p").lastErr, "panic")
}

func TestBackoff(t *testing.T) {
	w := newWorker(&fakeOutboxRepo{})
	assert.Equal(t, 10*time.Millisecond, w.backoff(1))
	assert.Equal(t, 40*time.Millisecond, w.backoff(3))
	assert.Equal(t, maxBackoff, w.backoff(40))
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &fakeOutboxRepo{}
	w := newWorker(repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.claims >= 2
	}, time.Second, 5*time.Millisecond, "应按间隔轮询")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run 未在取消后退出")
	}
}

type recordingDispatcher struct {
	invitations []notifier.SessionInvitation
	created     []notifier.AssignmentNotice
	ended       []notifier.AssignmentNotice
	status      []notifier.SessionStatusNotice
}

func (r *recordingDispatcher) SendSessionInvitations(_ context.Context, inv notifier.SessionInvitation) error {
	r.invitations = append(r.invitations, inv)
	return nil
}

func (r *recordingDispatcher) NotifyAssignmentCreated(_ context.Context, n notifier.AssignmentNotice) error {
	r.created = append(r.created, n)
	return nil
}

func (r *recordingDispatcher) NotifyAssignmentEnded(_ context.Context, n notifier.AssignmentNotice) error {
	r.ended = append(r.ended, n)
	return nil
}

func (r *recordingDispatcher) NotifySessionStatus(_ context.Context, n notifier.SessionStatusNotice) error {
	r.status = append(r.status, n)
	return nil
}

func TestRegisterNotifier_RoutesByEventType(t *testing.T) {
	repo := &fakeOutboxRepo{}
	repo.pending = []model.OutboxEvent{
		event(t, "e1", model.EventParticipantsAdded, 0, notifier.SessionInvitation{
			SessionID: "s-1", StudentIDs: []string{"STU1", "STU2"},
		}),
		event(t, "e2", model.EventAssignmentCreated, 0, notifier.AssignmentNotice{AssignmentID: "a-1"}),
		event(t, "e3", model.EventAssignmentEnded, 0, notifier.AssignmentNotice{AssignmentID: "a-2", Reason: "毕业"}),
		event(t, "e4", model.EventSessionStatusChanged, 0, notifier.SessionStatusNotice{SessionID: "s-1", ToStatus: "cancelled"}),
	}

	d := &recordingDispatcher{}
	w := newWorker(repo)
	RegisterNotifier(w, d)

	_, err := w.DispatchOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, d.invitations, 1)
	assert.Equal(t, []string{"STU1", "STU2"}, d.invitations[0].StudentIDs)
	require.Len(t, d.created, 1)
	require.Len(t, d.ended, 1)
	assert.Equal(t, "毕业", d.ended[0].Reason)
	require.Len(t, d.status, 1)
	assert.Equal(t, "cancelled", d.status[0].ToStatus)
}
