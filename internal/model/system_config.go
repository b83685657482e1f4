package model

// SystemConfig 系统配置表，对应 system_config（单行强类型）
type SystemConfig struct {
	Singleton       bool `gorm:"primaryKey;default:true" json:"-"`
	DemoMode        bool `gorm:"not null;default:false"  json:"demo_mode"`
	EnforceCaseload bool `gorm:"not null;default:false"  json:"enforce_caseload"`
	MaxCaseload     int  `gorm:"not null;default:30"     json:"max_caseload"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }
