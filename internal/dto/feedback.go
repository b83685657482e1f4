package dto

// ── 学生会话反馈 DTO ──

// SubmitSessionFeedbackRequest 学生提交会话反馈
type SubmitSessionFeedbackRequest struct {
	Rating   int    `json:"rating"   binding:"required,min=1,max=5"`
	Comments string `json:"comments" binding:"omitempty,max=2000"`
}

// SessionFeedbackResponse 学生会话反馈
type SessionFeedbackResponse struct {
	ID                string `json:"id"`
	SessionID         string `json:"session_id"`
	StudentExternalID string `json:"student_external_id"`
	Rating            int    `json:"rating"`
	Comments          string `json:"comments"`
	CreatedAt         string `json:"created_at"`
}
