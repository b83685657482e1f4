package dto

// ── 导师分配 DTO ──

// ValidateAssignmentRequest 分配预校验请求；cycle_id 为空时使用当前周期
type ValidateAssignmentRequest struct {
	MentorExternalID  string `json:"mentor_external_id"  binding:"required,max=50"`
	StudentExternalID string `json:"student_external_id" binding:"required,max=50"`
	CycleID           string `json:"cycle_id"            binding:"omitempty,uuid"`
	Role              string `json:"role"                binding:"omitempty,oneof=primary co_mentor"`
}

// AssignmentValidation 分配校验结论
type AssignmentValidation struct {
	IsValid           bool   `json:"is_valid"`
	ErrorMessage      string `json:"error_message,omitempty"`
	StudentDepartment string `json:"student_department,omitempty"`
	StudentProgram    string `json:"student_program,omitempty"`
}

// CreateAssignmentRequest 创建分配
type CreateAssignmentRequest struct {
	MentorExternalID  string                 `json:"mentor_external_id"  binding:"required,max=50"`
	StudentExternalID string                 `json:"student_external_id" binding:"required,max=50"`
	Role              string                 `json:"role"                binding:"omitempty,oneof=primary co_mentor"`
	Notes             string                 `json:"notes"               binding:"omitempty,max=2000"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// UpdateAssignmentRequest 部分更新分配，不会重新校验
type UpdateAssignmentRequest struct {
	Role        *string `json:"role"         binding:"omitempty,oneof=primary co_mentor"`
	Status      *string `json:"status"       binding:"omitempty,oneof=active pending completed cancelled"`
	Notes       *string `json:"notes"        binding:"omitempty,max=2000"`
	EffectiveTo *string `json:"effective_to"` // RFC3339 或 YYYY-MM-DD；空串表示清空
}

// EndAssignmentRequest 结束分配
type EndAssignmentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// AssignmentListRequest 分配列表查询参数
type AssignmentListRequest struct {
	PaginationRequest
	CycleID           string `form:"cycle_id"            binding:"omitempty,uuid"`
	MentorExternalID  string `form:"mentor_external_id"  binding:"omitempty,max=50"`
	StudentExternalID string `form:"student_external_id" binding:"omitempty,max=50"`
	Status            string `form:"status"              binding:"omitempty,oneof=active pending completed cancelled"`
	Role              string `form:"role"                binding:"omitempty,oneof=primary co_mentor"`
}

// AssignmentResponse 分配信息响应
type AssignmentResponse struct {
	ID                string                 `json:"id"`
	CycleID           string                 `json:"cycle_id"`
	CycleName         string                 `json:"cycle_name,omitempty"`
	MentorExternalID  string                 `json:"mentor_external_id"`
	StudentExternalID string                 `json:"student_external_id"`
	Role              string                 `json:"role"`
	Status            string                 `json:"status"`
	EffectiveFrom     string                 `json:"effective_from"`
	EffectiveTo       *string                `json:"effective_to"`
	Notes             string                 `json:"notes"`
	Metadata          map[string]interface{} `json:"metadata"`
	NeedsAttention    bool                   `json:"needs_attention"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
}

// AssignmentResult 分配变更结果。
// Assignments 为变更后重新查询的同周期分配快照。
type AssignmentResult struct {
	Success     bool                 `json:"success"`
	Error       string               `json:"error,omitempty"`
	Assignment  *AssignmentResponse  `json:"assignment,omitempty"`
	Assignments []AssignmentResponse `json:"assignments,omitempty"`
}

// AssignmentStats 分配聚合计数
type AssignmentStats struct {
	Total          int64 `json:"total"`
	Active         int64 `json:"active"`
	Pending        int64 `json:"pending"`
	Completed      int64 `json:"completed"`
	NeedsAttention int64 `json:"needs_attention"`
}
