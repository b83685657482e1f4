package changefeed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memBroker 进程内发布订阅
type memBroker struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string][]chan []byte)}
}

func (b *memBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		ch <- payload
	}
	return nil
}

func (b *memBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, func() error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 8)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		close(ch)
		b.subs[channel] = nil
		return nil
	}
}

func TestPublishSubscribe(t *testing.T) {
	broker := newMemBroker()
	p := NewPublisher(broker, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeFn, err := p.Subscribe(ctx, "counseling_sessions")
	require.NoError(t, err)
	defer closeFn()

	p.Publish(ctx, "counseling_sessions", OpUpdate,
		map[string]string{"status": "pending"},
		map[string]string{"status": "completed"})

	select {
	case ev := <-events:
		assert.Equal(t, "counseling_sessions", ev.Table)
		assert.Equal(t, OpUpdate, ev.Op)
		assert.JSONEq(t, `{"status":"pending"}`, string(ev.Old))
		assert.JSONEq(t, `{"status":"completed"}`, string(ev.New))
	case <-time.After(time.Second):
		t.Fatal("未收到变更事件")
	}
}

func TestSubscribe_UnknownTable(t *testing.T) {
	p := NewPublisher(newMemBroker(), zap.NewNop())
	_, _, err := p.Subscribe(context.Background(), "users")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestNilBrokerIsNoop(t *testing.T) {
	p := NewPublisher(nil, zap.NewNop())
	p.Publish(context.Background(), "goals", OpInsert, nil, map[string]int{"a": 1})

	_, _, err := p.Subscribe(context.Background(), "goals")
	assert.ErrorIs(t, err, ErrUnavailable)

	var nilPub *Publisher
	nilPub.Publish(context.Background(), "goals", OpInsert, nil, nil)
}
