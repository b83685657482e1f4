package model

// ── 分配 ──

// AssignmentRole 导师在分配关系中的角色
type AssignmentRole string

const (
	AssignmentRolePrimary  AssignmentRole = "primary"
	AssignmentRoleCoMentor AssignmentRole = "co_mentor"
)

// Valid 是否为合法角色
func (r AssignmentRole) Valid() bool {
	return r == AssignmentRolePrimary || r == AssignmentRoleCoMentor
}

// AssignmentStatus 分配状态
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Valid 是否为合法状态
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentActive, AssignmentPending, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// Terminal 终态不可复活，需新建记录
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentCancelled
}

// CycleStatus 分配周期状态
type CycleStatus string

const (
	CycleDraft  CycleStatus = "draft"
	CycleActive CycleStatus = "active"
	CycleClosed CycleStatus = "closed"
)

// ── 会话 ──

// SessionStatus 辅导会话状态
type SessionStatus string

const (
	SessionPending         SessionStatus = "pending"
	SessionPendingFeedback SessionStatus = "pending_feedback"
	SessionCompleted       SessionStatus = "completed"
	SessionCancelled       SessionStatus = "cancelled"
)

// SessionType 会话类型
type SessionType string

const (
	SessionOneOnOne SessionType = "one_on_one"
	SessionGroup    SessionType = "group"
)

// Priority 会话优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParticipationStatus 参与状态
type ParticipationStatus string

const (
	ParticipantInvited   ParticipationStatus = "invited"
	ParticipantConfirmed ParticipationStatus = "confirmed"
	ParticipantAttended  ParticipationStatus = "attended"
	ParticipantMissed    ParticipationStatus = "missed"
)

// Valid 是否为合法参与状态
func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipantInvited, ParticipantConfirmed, ParticipantAttended, ParticipantMissed:
		return true
	}
	return false
}

// ── 目标 ──

// GoalStatus SMART 目标状态
type GoalStatus string

const (
	GoalProposed   GoalStatus = "proposed"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalArchived   GoalStatus = "archived"
)

// Valid 是否为合法目标状态
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalProposed, GoalInProgress, GoalCompleted, GoalArchived:
		return true
	}
	return false
}

// ── 发件箱 ──

// OutboxStatus 发件箱事件状态
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxDispatched OutboxStatus = "dispatched"
	OutboxFailed     OutboxStatus = "failed"
)

// 领域事件类型
const (
	EventParticipantsAdded    = "ParticipantsAdded"
	EventAssignmentCreated    = "AssignmentCreated"
	EventAssignmentEnded      = "AssignmentEnded"
	EventSessionStatusChanged = "SessionStatusChanged"
)
