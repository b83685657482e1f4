package model

// Institution 院校，对应 institutions
type Institution struct {
	InstitutionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"institution_id"`
	Name          string `gorm:"type:varchar(200);not null"                     json:"name"`
	Code          string `gorm:"type:varchar(50);not null"                      json:"code"`
	IsActive      bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Institution) TableName() string { return "institutions" }

// Department 院系，对应 departments
type Department struct {
	DepartmentID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"department_id"`
	InstitutionID *string `gorm:"type:uuid"                                      json:"institution_id,omitempty"`
	Name          string  `gorm:"type:varchar(200);not null"                     json:"name"`
	Code          string  `gorm:"type:varchar(50);not null"                      json:"code"`
	IsActive      bool    `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// Program 专业，对应 programs
type Program struct {
	ProgramID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"program_id"`
	DepartmentID string `gorm:"type:uuid;not null"                             json:"department_id"`
	Name         string `gorm:"type:varchar(200);not null"                     json:"name"`
	Code         string `gorm:"type:varchar(50);not null"                      json:"code"`
	BaseModel
}

// TableName 指定表名
func (Program) TableName() string { return "programs" }
