package model

import "time"

// AssignmentCycle 分配周期，对应 assignment_cycles
type AssignmentCycle struct {
	CycleID   string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cycle_id"`
	Name      string      `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate time.Time   `gorm:"type:date;not null"                             json:"start_date"`
	EndDate   time.Time   `gorm:"type:date;not null"                             json:"end_date"`
	Status    CycleStatus `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"` // draft | active | closed
	IsLocked  bool        `gorm:"not null;default:false"                         json:"is_locked"`
	VersionedModel
}

// TableName 指定表名
func (AssignmentCycle) TableName() string { return "assignment_cycles" }

// AcceptsAssignments 周期是否允许挂接新分配
func (c *AssignmentCycle) AcceptsAssignments() bool {
	return c.Status == CycleActive && !c.IsLocked
}
