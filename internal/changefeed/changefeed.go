// Package changefeed 按表发布行变更事件（INSERT/UPDATE/DELETE，携带新旧行），
// 通过 Redis 频道 changes:<table> 分发给订阅方。
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Op 变更类型
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ErrUnavailable 未配置消息代理
var ErrUnavailable = errors.New("变更推送不可用")

// ErrUnknownTable 不允许订阅的表
var ErrUnknownTable = errors.New("不支持订阅该表")

// 允许订阅的表
var tables = map[string]struct{}{
	"counseling_sessions":  {},
	"session_participants": {},
	"mentor_assignments":   {},
	"goals":                {},
	"meeting_logs":         {},
	"notifications":        {},
}

// Allowed 是否允许订阅该表
func Allowed(table string) bool {
	_, ok := tables[table]
	return ok
}

// Channel 表对应的频道名
func Channel(table string) string { return "changes:" + table }

// Event 行变更事件
type Event struct {
	Table string          `json:"table"`
	Op    Op              `json:"op"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
	At    time.Time       `json:"at"`
}

// Broker 发布订阅通道（由 pkg/redis 实现）
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error)
}

// Publisher 变更事件发布器；broker 为空时所有操作为空操作
type Publisher struct {
	broker Broker
	logger *zap.Logger
}

// NewPublisher 创建发布器
func NewPublisher(broker Broker, logger *zap.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

// Publish 发布一条变更。推送失败只记录日志，不影响调用方的写操作。
func (p *Publisher) Publish(ctx context.Context, table string, op Op, oldRow, newRow interface{}) {
	if p == nil || p.broker == nil {
		return
	}

	ev := Event{Table: table, Op: op, At: time.Now()}
	var err error
	if oldRow != nil {
		if ev.Old, err = json.Marshal(oldRow); err != nil {
			p.logger.Warn("序列化变更事件失败", zap.String("table", table), zap.Error(err))
			return
		}
	}
	if newRow != nil {
		if ev.New, err = json.Marshal(newRow); err != nil {
			p.logger.Warn("序列化变更事件失败", zap.String("table", table), zap.Error(err))
			return
		}
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("序列化变更事件失败", zap.String("table", table), zap.Error(err))
		return
	}
	if err := p.broker.Publish(ctx, Channel(table), raw); err != nil {
		p.logger.Warn("发布变更事件失败", zap.String("table", table), zap.Error(err))
	}
}

// Subscribe 订阅某张表的变更。ctx 结束或调用关闭函数后事件通道关闭。
func (p *Publisher) Subscribe(ctx context.Context, table string) (<-chan Event, func() error, error) {
	if !Allowed(table) {
		return nil, nil, ErrUnknownTable
	}
	if p == nil || p.broker == nil {
		return nil, nil, ErrUnavailable
	}

	raw, closeFn := p.broker.Subscribe(ctx, Channel(table))
	out := make(chan Event)

	go func() {
		defer close(out)
		for msg := range raw {
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				p.logger.Warn("丢弃无法解析的变更事件", zap.String("table", table), zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, closeFn, nil
}
