package model

// Student 学生目录，对应 students
type Student struct {
	StudentID     string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	ExternalID    string  `gorm:"type:varchar(50);not null"                      json:"external_id"`
	Name          string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email         string  `gorm:"type:varchar(255);not null;default:''"          json:"email"`
	InstitutionID *string `gorm:"type:uuid"                                      json:"institution_id,omitempty"`
	DepartmentID  *string `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	ProgramID     *string `gorm:"type:uuid"                                      json:"program_id,omitempty"`
	SemesterYear  int     `gorm:"not null;default:1"                             json:"semester_year"`
	IsActive      bool    `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
	Program    *Program    `gorm:"foreignKey:ProgramID;references:ProgramID"       json:"program,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Staff 教职工目录，对应 staff
type Staff struct {
	StaffID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"staff_id"`
	ExternalID    string  `gorm:"type:varchar(50);not null"                      json:"external_id"`
	Name          string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email         string  `gorm:"type:varchar(255);not null;default:''"          json:"email"`
	Designation   string  `gorm:"type:varchar(100);not null;default:''"          json:"designation"`
	InstitutionID *string `gorm:"type:uuid"                                      json:"institution_id,omitempty"`
	DepartmentID  *string `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	IsActive      bool    `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (Staff) TableName() string { return "staff" }
