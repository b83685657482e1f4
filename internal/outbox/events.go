// Package outbox 投递与业务写入同事务落库的领域事件。
package outbox

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"mentor-hub/backend/internal/model"
)

// 聚合类型
const (
	AggregateSession    = "session"
	AggregateAssignment = "assignment"
)

// NewEvent 构造待投递事件，payload 序列化为 JSON
func NewEvent(aggregateType, aggregateID, eventType string, payload interface{}) (*model.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件 %s 失败: %w", eventType, err)
	}
	return &model.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       datatypes.JSON(raw),
		Status:        model.OutboxPending,
	}, nil
}

// Decode 把事件载荷反序列化到 dest
func Decode(ev *model.OutboxEvent, dest interface{}) error {
	if err := json.Unmarshal(ev.Payload, dest); err != nil {
		return fmt.Errorf("解析事件 %s 载荷失败: %w", ev.EventType, err)
	}
	return nil
}
