package dto

// ── SMART 目标 DTO ──

// CreateGoalRequest 创建目标
type CreateGoalRequest struct {
	StudentExternalID string  `json:"student_external_id" binding:"required,max=50"`
	Title             string  `json:"title"               binding:"required,min=2,max=200"`
	Specific          string  `json:"specific"            binding:"omitempty,max=2000"`
	Measurable        string  `json:"measurable"          binding:"omitempty,max=2000"`
	Achievable        string  `json:"achievable"          binding:"omitempty,max=2000"`
	Relevant          string  `json:"relevant"            binding:"omitempty,max=2000"`
	TimeBound         *string `json:"time_bound"          binding:"omitempty,isodate"`
}

// UpdateGoalRequest 编辑目标；version 非空时做乐观锁校验
type UpdateGoalRequest struct {
	Title      *string `json:"title"      binding:"omitempty,min=2,max=200"`
	Specific   *string `json:"specific"   binding:"omitempty,max=2000"`
	Measurable *string `json:"measurable" binding:"omitempty,max=2000"`
	Achievable *string `json:"achievable" binding:"omitempty,max=2000"`
	Relevant   *string `json:"relevant"   binding:"omitempty,max=2000"`
	TimeBound  *string `json:"time_bound" binding:"omitempty,isodate"`
	Version    *int    `json:"version"    binding:"omitempty,min=1"`
}

// UpdateGoalStatusRequest 变更目标状态
type UpdateGoalStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=proposed in_progress completed archived"`
}

// GoalResponse 目标信息
type GoalResponse struct {
	ID                string  `json:"id"`
	SessionID         string  `json:"session_id"`
	StudentExternalID string  `json:"student_external_id"`
	Title             string  `json:"title"`
	Specific          string  `json:"specific"`
	Measurable        string  `json:"measurable"`
	Achievable        string  `json:"achievable"`
	Relevant          string  `json:"relevant"`
	TimeBound         *string `json:"time_bound,omitempty"`
	Status            string  `json:"status"`
	Version           int     `json:"version"`
	UpdatedAt         string  `json:"updated_at"`
}

// GoalVersionResponse 目标历史版本
type GoalVersionResponse struct {
	Version   int                    `json:"version"`
	Snapshot  map[string]interface{} `json:"snapshot"`
	ChangedBy string                 `json:"changed_by,omitempty"`
	CreatedAt string                 `json:"created_at"`
}
