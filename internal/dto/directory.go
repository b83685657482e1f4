package dto

// ── 目录 DTO ──

// DirectoryQuery 目录查询参数
type DirectoryQuery struct {
	DepartmentID string `form:"department_id" binding:"omitempty,max=64"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
}

// ImportStudentsResponse 学生名单导入结果
type ImportStudentsResponse struct {
	Total    int              `json:"total"`
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入错误详情
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
