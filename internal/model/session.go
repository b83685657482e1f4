package model

import "time"

// CounselingSession 辅导会话，对应 counseling_sessions
type CounselingSession struct {
	SessionID          string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"session_id"`
	Name               string        `gorm:"type:varchar(200);not null"                      json:"name"`
	SessionDate        time.Time     `gorm:"type:date;not null"                              json:"session_date"`
	StartTime          string        `gorm:"type:varchar(5);not null;default:''"             json:"start_time"` // HH:MM
	EndTime            string        `gorm:"type:varchar(5);not null;default:''"             json:"end_time"`
	Location           string        `gorm:"type:varchar(200);not null;default:''"           json:"location"`
	Description        string        `gorm:"type:text;not null;default:''"                   json:"description"`
	SessionType        SessionType   `gorm:"type:varchar(20);not null;default:'one_on_one'"  json:"session_type"`
	Priority           Priority      `gorm:"type:varchar(10);not null;default:'normal'"      json:"priority"`
	Status             SessionStatus `gorm:"type:varchar(20);not null;default:'pending'"     json:"status"`
	MentorExternalID   string        `gorm:"type:varchar(50);not null"                       json:"mentor_external_id"`
	CancellationReason string        `gorm:"type:varchar(500);not null;default:''"           json:"cancellation_reason"`
	CompletedAt        *time.Time    `gorm:"type:timestamptz"                                json:"completed_at,omitempty"`
	VersionedModel

	// 关联
	Participants   []SessionParticipant `gorm:"foreignKey:SessionID;references:SessionID" json:"participants,omitempty"`
	MeetingLogs    []MeetingLog         `gorm:"foreignKey:SessionID;references:SessionID" json:"meeting_logs,omitempty"`
	Goals          []Goal               `gorm:"foreignKey:SessionID;references:SessionID" json:"goals,omitempty"`
	MentorFeedback []MentorFeedback     `gorm:"foreignKey:SessionID;references:SessionID" json:"mentor_feedback,omitempty"`
}

// TableName 指定表名
func (CounselingSession) TableName() string { return "counseling_sessions" }

// StudentIDs 当前参与学生学号
func (s *CounselingSession) StudentIDs() []string {
	ids := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		ids = append(ids, p.StudentExternalID)
	}
	return ids
}

// SessionParticipant 会话参与者，对应 session_participants
type SessionParticipant struct {
	ParticipantID       string              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"participant_id"`
	SessionID           string              `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentExternalID   string              `gorm:"type:varchar(50);not null"                      json:"student_external_id"`
	ParticipationStatus ParticipationStatus `gorm:"type:varchar(20);not null;default:'invited'"    json:"participation_status"`
	BaseModel
}

// TableName 指定表名
func (SessionParticipant) TableName() string { return "session_participants" }

// MeetingLog 会谈记录，对应 meeting_logs
type MeetingLog struct {
	MeetingLogID      string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"meeting_log_id"`
	SessionID         string  `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentExternalID *string `gorm:"type:varchar(50)"                               json:"student_external_id,omitempty"`
	Focus             string  `gorm:"type:text;not null;default:''"                  json:"focus"`
	Discussion        string  `gorm:"type:text;not null;default:''"                  json:"discussion"`
	ActionItems       string  `gorm:"type:text;not null;default:''"                  json:"action_items"`
	NextSteps         string  `gorm:"type:text;not null;default:''"                  json:"next_steps"`
	BaseModel
}

// TableName 指定表名
func (MeetingLog) TableName() string { return "meeting_logs" }

// SessionAuditLog 会话状态流转审计，对应 session_audit_logs
type SessionAuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_log_id"`
	SessionID  string    `gorm:"type:uuid;not null"                             json:"session_id"`
	Action     string    `gorm:"type:varchar(30);not null"                      json:"action"` // create | update | complete | defer_complete | feedback_complete | cancel | reopen | add_participant | remove_participant
	FromStatus string    `gorm:"type:varchar(20);not null;default:''"           json:"from_status"`
	ToStatus   string    `gorm:"type:varchar(20);not null;default:''"           json:"to_status"`
	Reason     string    `gorm:"type:varchar(500);not null;default:''"          json:"reason"`
	OperatorID *string   `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (SessionAuditLog) TableName() string { return "session_audit_logs" }
