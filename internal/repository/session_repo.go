package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentor-hub/backend/internal/model"
)

// SessionFilter 会话列表筛选条件
type SessionFilter struct {
	MentorExternalID  string
	StudentExternalID string // 按参与学生筛选
	Status            string
	From              *time.Time
	To                *time.Time
}

// SessionRepository 辅导会话数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, s *model.CounselingSession) error
	GetByID(ctx context.Context, id string) (*model.CounselingSession, error)
	// GetDetail 预加载参与者、会谈记录、目标与导师反馈
	GetDetail(ctx context.Context, id string) (*model.CounselingSession, error)
	// GetForUpdate 在事务中以 FOR UPDATE 锁定会话行
	GetForUpdate(ctx context.Context, id string) (*model.CounselingSession, error)
	Update(ctx context.Context, s *model.CounselingSession) error
	List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.CounselingSession, int64, error)
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.CounselingSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.CounselingSession, error) {
	var s model.CounselingSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) GetDetail(ctx context.Context, id string) (*model.CounselingSession, error) {
	var s model.CounselingSession
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("MeetingLogs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Goals").
		Preload("MentorFeedback").
		Where("session_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) GetForUpdate(ctx context.Context, id string) (*model.CounselingSession, error) {
	var s model.CounselingSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update 整行覆盖写入（不含关联），并发编辑以最后一次写入为准
func (r *sessionRepo) Update(ctx context.Context, s *model.CounselingSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.CounselingSession, int64, error) {
	var list []model.CounselingSession
	var total int64

	db := r.db.WithContext(ctx).Model(&model.CounselingSession{})
	if filter.MentorExternalID != "" {
		db = db.Where("mentor_external_id = ?", filter.MentorExternalID)
	}
	if filter.StudentExternalID != "" {
		db = db.Where("session_id IN (?)",
			r.db.Model(&model.SessionParticipant{}).
				Select("session_id").
				Where("student_external_id = ?", filter.StudentExternalID))
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("session_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("session_date <= ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Participants").Order("session_date DESC, start_time DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}
