package model

// Notification 站内通知，对应 notifications
type Notification struct {
	NotificationID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	RecipientExternalID string  `gorm:"type:varchar(50);not null"                      json:"recipient_external_id"`
	Type                string  `gorm:"type:varchar(50);not null"                      json:"type"` // session_invitation | assignment_created | assignment_ended | session_status
	Title               string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content             string  `gorm:"type:text;not null"                             json:"content"`
	IsRead              bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType         *string `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // session | assignment
	RelatedID           *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// 通知类型
const (
	NotifySessionInvitation = "session_invitation"
	NotifyAssignmentCreated = "assignment_created"
	NotifyAssignmentEnded   = "assignment_ended"
	NotifySessionStatus     = "session_status"
)
