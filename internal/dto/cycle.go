package dto

// ── 分配周期 DTO ──

// CreateCycleRequest 创建分配周期
type CreateCycleRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StartDate string `json:"start_date" binding:"required,isodate"`
	EndDate   string `json:"end_date"   binding:"required,isodate"`
}

// UpdateCycleRequest 更新分配周期
type UpdateCycleRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=2,max=100"`
	StartDate *string `json:"start_date" binding:"omitempty,isodate"`
	EndDate   *string `json:"end_date"   binding:"omitempty,isodate"`
}

// CycleResponse 分配周期响应
type CycleResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
	IsLocked  bool   `json:"is_locked"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
