package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User            UserRepository
	Institution     InstitutionRepository
	Department      DepartmentRepository
	Program         ProgramRepository
	Student         StudentRepository
	Staff           StaffRepository
	Cycle           CycleRepository
	Assignment      AssignmentRepository
	Session         SessionRepository
	Participant     ParticipantRepository
	MeetingLog      MeetingLogRepository
	MentorFeedback  MentorFeedbackRepository
	SessionFeedback SessionFeedbackRepository
	Goal            GoalRepository
	AuditLog        AuditLogRepository
	Notification    NotificationRepository
	Outbox          OutboxRepository
	SystemConfig    SystemConfigRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:              db,
		User:            NewUserRepo(db),
		Institution:     NewInstitutionRepo(db),
		Department:      NewDepartmentRepo(db),
		Program:         NewProgramRepo(db),
		Student:         NewStudentRepo(db),
		Staff:           NewStaffRepo(db),
		Cycle:           NewCycleRepo(db),
		Assignment:      NewAssignmentRepo(db),
		Session:         NewSessionRepo(db),
		Participant:     NewParticipantRepo(db),
		MeetingLog:      NewMeetingLogRepo(db),
		MentorFeedback:  NewMentorFeedbackRepo(db),
		SessionFeedback: NewSessionFeedbackRepo(db),
		Goal:            NewGoalRepo(db),
		AuditLog:        NewAuditLogRepo(db),
		Notification:    NewNotificationRepo(db),
		Outbox:          NewOutboxRepo(db),
		SystemConfig:    NewSystemConfigRepo(db),
	}
}

// BeginTx 开启事务。
// 聚合未绑定数据库连接时（单元测试使用 mock 仓储）返回 nil。
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// RunInTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) RunInTx(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
