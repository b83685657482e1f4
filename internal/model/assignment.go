package model

import (
	"time"

	"gorm.io/datatypes"
)

// 分配 metadata 常用键
const (
	MetaInstitution     = "institution"
	MetaDepartment      = "department"
	MetaProgram         = "program"
	MetaSemesterYear    = "semester_year"
	MetaCreatedVia      = "created_via"
	MetaFreshAssignment = "fresh_assignment"
)

// Assignment 导师-学生分配，对应 mentor_assignments
type Assignment struct {
	AssignmentID      string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	CycleID           string            `gorm:"type:uuid;not null"                             json:"cycle_id"`
	MentorExternalID  string            `gorm:"type:varchar(50);not null"                      json:"mentor_external_id"`
	StudentExternalID string            `gorm:"type:varchar(50);not null"                      json:"student_external_id"`
	Role              AssignmentRole    `gorm:"type:varchar(20);not null;default:'primary'"   json:"role"`
	Status            AssignmentStatus  `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	EffectiveFrom     time.Time         `gorm:"not null"                                       json:"effective_from"`
	EffectiveTo       *time.Time        `gorm:"type:timestamptz"                               json:"effective_to,omitempty"`
	Notes             string            `gorm:"type:text;not null;default:''"                  json:"notes"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"               json:"metadata"`
	VersionedModel

	// 关联
	Cycle *AssignmentCycle `gorm:"foreignKey:CycleID;references:CycleID" json:"cycle,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "mentor_assignments" }

// IsFresh metadata 中是否标记为本周期新建的分配。
// 缺少该标记的在任分配视为沿用的历史配对，需要复核。
func (a *Assignment) IsFresh() bool {
	if a.Metadata == nil {
		return false
	}
	v, ok := a.Metadata[MetaFreshAssignment].(bool)
	return ok && v
}

// NeedsAttention 在任且非新建
func (a *Assignment) NeedsAttention() bool {
	return a.Status == AssignmentActive && !a.IsFresh()
}
