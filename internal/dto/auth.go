package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建账户
type CreateUserRequest struct {
	Name         string  `json:"name"          binding:"required,min=2,max=100"`
	Email        string  `json:"email"         binding:"required,email"`
	ExternalID   string  `json:"external_id"   binding:"required,max=50"`
	Password     string  `json:"password"      binding:"required,min=8,max=64"`
	Role         string  `json:"role"          binding:"required,oneof=admin mentor mentee"`
	DepartmentID *string `json:"department_id" binding:"omitempty,uuid"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=admin mentor mentee"`
}

// AssignRoleRequest 变更角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin mentor mentee"`
}
