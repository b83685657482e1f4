package dto

// ── 辅导会话 DTO ──

// CreateSessionRequest 创建会话
// mentor_external_id 仅管理员可指定，导师创建时默认为本人
type CreateSessionRequest struct {
	Name             string   `json:"name"               binding:"required,min=2,max=200"`
	SessionDate      string   `json:"session_date"       binding:"required,isodate"`
	StartTime        string   `json:"start_time"         binding:"omitempty,hhmm"`
	EndTime          string   `json:"end_time"           binding:"omitempty,hhmm"`
	Location         string   `json:"location"           binding:"omitempty,max=200"`
	Description      string   `json:"description"        binding:"omitempty,max=5000"`
	SessionType      string   `json:"session_type"       binding:"omitempty,oneof=one_on_one group"`
	Priority         string   `json:"priority"           binding:"omitempty,oneof=low normal high"`
	MentorExternalID string   `json:"mentor_external_id" binding:"omitempty,max=50"`
	StudentIDs       []string `json:"student_ids"        binding:"required,min=1,dive,required,max=50"`
}

// UpdateSessionRequest 更新会话；student_ids 非 nil 时按新名单差量更新参与者
type UpdateSessionRequest struct {
	Name        *string  `json:"name"         binding:"omitempty,min=2,max=200"`
	SessionDate *string  `json:"session_date" binding:"omitempty,isodate"`
	StartTime   *string  `json:"start_time"   binding:"omitempty,hhmm"`
	EndTime     *string  `json:"end_time"     binding:"omitempty,hhmm"`
	Location    *string  `json:"location"     binding:"omitempty,max=200"`
	Description *string  `json:"description"  binding:"omitempty,max=5000"`
	SessionType *string  `json:"session_type" binding:"omitempty,oneof=one_on_one group"`
	Priority    *string  `json:"priority"     binding:"omitempty,oneof=low normal high"`
	StudentIDs  []string `json:"student_ids"  binding:"omitempty,dive,required,max=50"`
}

// SessionListRequest 会话列表查询参数
type SessionListRequest struct {
	PaginationRequest
	Status            string `form:"status"              binding:"omitempty,oneof=pending pending_feedback completed cancelled"`
	MentorExternalID  string `form:"mentor_external_id"  binding:"omitempty,max=50"`
	StudentExternalID string `form:"student_external_id" binding:"omitempty,max=50"`
	From              string `form:"from"                binding:"omitempty,isodate"`
	To                string `form:"to"                  binding:"omitempty,isodate"`
}

// CancelSessionRequest 取消会话
type CancelSessionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// AddParticipantsRequest 添加参与者
type AddParticipantsRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,dive,required,max=50"`
}

// UpdateParticipantRequest 更新参与状态
type UpdateParticipantRequest struct {
	Status string `json:"status" binding:"required,oneof=invited confirmed attended missed"`
}

// CreateMeetingLogRequest 新增会谈记录
type CreateMeetingLogRequest struct {
	StudentExternalID *string `json:"student_external_id" binding:"omitempty,max=50"`
	Focus             string  `json:"focus"               binding:"omitempty,max=5000"`
	Discussion        string  `json:"discussion"          binding:"omitempty,max=10000"`
	ActionItems       string  `json:"action_items"        binding:"omitempty,max=5000"`
	NextSteps         string  `json:"next_steps"          binding:"omitempty,max=5000"`
}

// MentorFeedbackRequest 导师反馈
type MentorFeedbackRequest struct {
	EngagementRating   int    `json:"engagement_rating"   binding:"required,min=1,max=5"`
	PreparednessRating int    `json:"preparedness_rating" binding:"required,min=1,max=5"`
	ProgressRating     int    `json:"progress_rating"     binding:"required,min=1,max=5"`
	OverallRating      int    `json:"overall_rating"      binding:"required,min=1,max=5"`
	Reflections        string `json:"reflections"         binding:"omitempty,max=5000"`
	Concerns           string `json:"concerns"            binding:"omitempty,max=5000"`
	Recommendations    string `json:"recommendations"     binding:"omitempty,max=5000"`
}

// ── 响应 ──

// ParticipantResponse 参与者
type ParticipantResponse struct {
	StudentExternalID   string `json:"student_external_id"`
	ParticipationStatus string `json:"participation_status"`
}

// SessionResponse 会话信息
type SessionResponse struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	SessionDate        string                `json:"session_date"`
	StartTime          string                `json:"start_time"`
	EndTime            string                `json:"end_time"`
	Location           string                `json:"location"`
	Description        string                `json:"description"`
	SessionType        string                `json:"session_type"`
	Priority           string                `json:"priority"`
	Status             string                `json:"status"`
	MentorExternalID   string                `json:"mentor_external_id"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	CompletedAt        *string               `json:"completed_at,omitempty"`
	CreatedBy          string                `json:"created_by,omitempty"`
	Participants       []ParticipantResponse `json:"participants"`
	CreatedAt          string                `json:"created_at"`
	UpdatedAt          string                `json:"updated_at"`
}

// SessionDetailResponse 会话详情
type SessionDetailResponse struct {
	SessionResponse
	MeetingLogs    []MeetingLogResponse     `json:"meeting_logs"`
	Goals          []GoalResponse           `json:"goals"`
	MentorFeedback []MentorFeedbackResponse `json:"mentor_feedback"`
}

// CompleteSessionResponse 完成会话结果。
// feedback_required=true 时会话进入 pending_feedback，提交导师反馈后自动完成。
type CompleteSessionResponse struct {
	Status           string                 `json:"status"`
	FeedbackRequired bool                   `json:"feedback_required"`
	Session          *SessionDetailResponse `json:"session"`
}

// MeetingLogResponse 会谈记录
type MeetingLogResponse struct {
	ID                string  `json:"id"`
	SessionID         string  `json:"session_id"`
	StudentExternalID *string `json:"student_external_id,omitempty"`
	Focus             string  `json:"focus"`
	Discussion        string  `json:"discussion"`
	ActionItems       string  `json:"action_items"`
	NextSteps         string  `json:"next_steps"`
	LoggedBy          string  `json:"logged_by,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// MentorFeedbackResponse 导师反馈
type MentorFeedbackResponse struct {
	ID                 string `json:"id"`
	SessionID          string `json:"session_id"`
	MentorExternalID   string `json:"mentor_external_id"`
	EngagementRating   int    `json:"engagement_rating"`
	PreparednessRating int    `json:"preparedness_rating"`
	ProgressRating     int    `json:"progress_rating"`
	OverallRating      int    `json:"overall_rating"`
	Reflections        string `json:"reflections"`
	Concerns           string `json:"concerns"`
	Recommendations    string `json:"recommendations"`
	UpdatedAt          string `json:"updated_at"`
}

// SubmitMentorFeedbackResponse 提交导师反馈结果
type SubmitMentorFeedbackResponse struct {
	Feedback MentorFeedbackResponse `json:"feedback"`
	// SessionCompleted 本次提交是否触发了会话完成
	SessionCompleted bool   `json:"session_completed"`
	Status           string `json:"status"`
}

// AuditLogResponse 会话审计日志
type AuditLogResponse struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OperatorID string `json:"operator_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}
