package model

import (
	"time"

	"gorm.io/datatypes"
)

// Goal SMART 目标，对应 goals
// Version 既是乐观锁版本号，也是编辑次数；每次编辑都会在 goal_versions 追加快照
type Goal struct {
	GoalID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"goal_id"`
	SessionID         string     `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentExternalID string     `gorm:"type:varchar(50);not null"                      json:"student_external_id"`
	Title             string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Specific          string     `gorm:"type:text;not null;default:''"                  json:"specific"`
	Measurable        string     `gorm:"type:text;not null;default:''"                  json:"measurable"`
	Achievable        string     `gorm:"type:text;not null;default:''"                  json:"achievable"`
	Relevant          string     `gorm:"type:text;not null;default:''"                  json:"relevant"`
	TimeBound         *time.Time `gorm:"type:date"                                      json:"time_bound,omitempty"`
	Status            GoalStatus `gorm:"type:varchar(20);not null;default:'proposed'"   json:"status"`
	VersionedModel
}

// TableName 指定表名
func (Goal) TableName() string { return "goals" }

// Snapshot 目标当前内容快照
func (g *Goal) Snapshot() datatypes.JSONMap {
	snap := datatypes.JSONMap{
		"title":      g.Title,
		"specific":   g.Specific,
		"measurable": g.Measurable,
		"achievable": g.Achievable,
		"relevant":   g.Relevant,
		"status":     string(g.Status),
	}
	if g.TimeBound != nil {
		snap["time_bound"] = g.TimeBound.Format("2006-01-02")
	}
	return snap
}

// GoalVersion 目标版本日志（只追加），对应 goal_versions
type GoalVersion struct {
	GoalVersionID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"goal_version_id"`
	GoalID        string            `gorm:"type:uuid;not null"                             json:"goal_id"`
	Version       int               `gorm:"not null"                                       json:"version"`
	Snapshot      datatypes.JSONMap `gorm:"type:jsonb;not null"                            json:"snapshot"`
	ChangedBy     *string           `gorm:"type:uuid"                                      json:"changed_by,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (GoalVersion) TableName() string { return "goal_versions" }
