package model

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEvent 领域事件发件箱，对应 outbox_events
// 与业务写入处于同一事务，由后台 worker 异步投递
type OutboxEvent struct {
	EventID       string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	AggregateType string         `gorm:"type:varchar(30);not null"                      json:"aggregate_type"` // session | assignment
	AggregateID   string         `gorm:"type:uuid;not null"                             json:"aggregate_id"`
	EventType     string         `gorm:"type:varchar(50);not null"                      json:"event_type"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"                            json:"payload"`
	Status        OutboxStatus   `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Attempts      int            `gorm:"not null;default:0"                             json:"attempts"`
	LastError     string         `gorm:"type:text;not null;default:''"                  json:"last_error"`
	AvailableAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"available_at"`
	DispatchedAt  *time.Time     `gorm:"type:timestamptz"                               json:"dispatched_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (OutboxEvent) TableName() string { return "outbox_events" }
