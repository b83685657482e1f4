// Package permission 定义封闭的角色集合与能力表。
// 每次操作只构造一次 Actor，再通过 Can 判定能力，不在调用点散落角色字符串比较。
package permission

import (
	"errors"
	"fmt"
)

// Role 角色（封闭集合）
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// ErrUnknownRole 角色不在允许集合内
var ErrUnknownRole = errors.New("未知角色")

// ParseRole 将字符串解析为 Role，集合外的值一律拒绝
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMentor, RoleMentee:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Capability 能力
type Capability string

const (
	AssignmentRead   Capability = "assignment:read"
	AssignmentWrite  Capability = "assignment:write"
	CycleManage      Capability = "cycle:manage"
	SessionCreate    Capability = "session:create"
	SessionUpdate    Capability = "session:update"
	SessionComplete  Capability = "session:complete"
	SessionCancel    Capability = "session:cancel"
	SessionFeedback  Capability = "session:feedback"
	GoalWrite        Capability = "goal:write"
	DirectoryRead    Capability = "directory:read"
	DirectoryImport  Capability = "directory:import"
	ConfigManage     Capability = "config:manage"
	UserManage       Capability = "user:manage"
	FullSystemAccess Capability = "full_system_access"
)

var grants = map[Role]map[Capability]struct{}{
	RoleAdmin: set(
		AssignmentRead, AssignmentWrite, CycleManage,
		SessionCreate, SessionUpdate, SessionComplete, SessionCancel,
		GoalWrite, DirectoryRead, DirectoryImport, ConfigManage, UserManage,
		FullSystemAccess,
	),
	RoleMentor: set(
		AssignmentRead,
		SessionCreate, SessionUpdate, SessionComplete,
		GoalWrite, DirectoryRead,
	),
	RoleMentee: set(
		SessionFeedback,
	),
}

func set(caps ...Capability) map[Capability]struct{} {
	m := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		m[c] = struct{}{}
	}
	return m
}

// Can 判断角色是否具备指定能力
func Can(role Role, capability Capability) bool {
	caps, ok := grants[role]
	if !ok {
		return false
	}
	// 取消会话等同于完整系统权限
	if capability == SessionCancel {
		_, ok = caps[FullSystemAccess]
		return ok
	}
	_, ok = caps[capability]
	return ok
}

// Capabilities 返回角色拥有的全部能力
func Capabilities(role Role) []Capability {
	caps := grants[role]
	out := make([]Capability, 0, len(caps))
	for c := range caps {
		out = append(out, c)
	}
	return out
}

// Actor 一次操作的执行者
type Actor struct {
	UserID     string
	ExternalID string
	Role       Role
}

// Can 判断执行者是否具备指定能力
func (a Actor) Can(capability Capability) bool {
	return Can(a.Role, capability)
}

// IsMentor 执行者是否以导师身份操作
func (a Actor) IsMentor() bool { return a.Role == RoleMentor }

// IsMentee 执行者是否以学生身份操作
func (a Actor) IsMentee() bool { return a.Role == RoleMentee }

// NewActor 由身份字段构造 Actor；角色非法时返回错误
func NewActor(userID, externalID, role string) (Actor, error) {
	r, err := ParseRole(role)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: userID, ExternalID: externalID, Role: r}, nil
}
