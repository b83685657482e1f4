package model

// MentorFeedback 导师反馈，对应 mentor_feedback，(session, mentor) 唯一
type MentorFeedback struct {
	FeedbackID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"feedback_id"`
	SessionID          string `gorm:"type:uuid;not null"                             json:"session_id"`
	MentorExternalID   string `gorm:"type:varchar(50);not null"                      json:"mentor_external_id"`
	EngagementRating   int    `gorm:"type:smallint;not null"                         json:"engagement_rating"`
	PreparednessRating int    `gorm:"type:smallint;not null"                         json:"preparedness_rating"`
	ProgressRating     int    `gorm:"type:smallint;not null"                         json:"progress_rating"`
	OverallRating      int    `gorm:"type:smallint;not null"                         json:"overall_rating"`
	Reflections        string `gorm:"type:text;not null;default:''"                  json:"reflections"`
	Concerns           string `gorm:"type:text;not null;default:''"                  json:"concerns"`
	Recommendations    string `gorm:"type:text;not null;default:''"                  json:"recommendations"`
	BaseModel
}

// TableName 指定表名
func (MentorFeedback) TableName() string { return "mentor_feedback" }

// SessionFeedback 学生对会话的反馈，对应 session_feedback
type SessionFeedback struct {
	FeedbackID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"feedback_id"`
	SessionID         string `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentExternalID string `gorm:"type:varchar(50);not null"                      json:"student_external_id"`
	Rating            int    `gorm:"type:smallint;not null"                         json:"rating"`
	Comments          string `gorm:"type:text;not null;default:''"                  json:"comments"`
	BaseModel
}

// TableName 指定表名
func (SessionFeedback) TableName() string { return "session_feedback" }
