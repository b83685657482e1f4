package dto

// ── 系统配置 DTO ──

// SystemConfigResponse 系统配置
type SystemConfigResponse struct {
	DemoMode        bool   `json:"demo_mode"`
	EnforceCaseload bool   `json:"enforce_caseload"`
	MaxCaseload     int    `json:"max_caseload"`
	UpdatedAt       string `json:"updated_at"`
}

// UpdateSystemConfigRequest 更新系统配置（部分字段）
type UpdateSystemConfigRequest struct {
	DemoMode        *bool `json:"demo_mode"`
	EnforceCaseload *bool `json:"enforce_caseload"`
	MaxCaseload     *int  `json:"max_caseload"     binding:"omitempty,min=1,max=500"`
}
