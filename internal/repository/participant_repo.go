package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentor-hub/backend/internal/model"
)

// ParticipantRepository 会话参与者数据访问接口
type ParticipantRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]model.SessionParticipant, error)
	Get(ctx context.Context, sessionID, studentExternalID string) (*model.SessionParticipant, error)
	// Add 逐个插入 invited 参与者，已存在的跳过；返回实际新增的学号
	Add(ctx context.Context, sessionID string, studentExternalIDs []string, createdBy *string) ([]string, error)
	Remove(ctx context.Context, sessionID string, studentExternalIDs []string) error
	UpdateStatus(ctx context.Context, sessionID, studentExternalID string, status model.ParticipationStatus, updatedBy *string) error
}

type participantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建 ParticipantRepository 实例
func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SessionParticipant, error) {
	var list []model.SessionParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *participantRepo) Get(ctx context.Context, sessionID, studentExternalID string) (*model.SessionParticipant, error) {
	var p model.SessionParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_external_id = ?", sessionID, studentExternalID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) Add(ctx context.Context, sessionID string, studentExternalIDs []string, createdBy *string) ([]string, error) {
	added := make([]string, 0, len(studentExternalIDs))
	for _, sid := range studentExternalIDs {
		p := model.SessionParticipant{
			SessionID:           sessionID,
			StudentExternalID:   sid,
			ParticipationStatus: model.ParticipantInvited,
		}
		p.CreatedBy = createdBy
		p.UpdatedBy = createdBy

		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&p)
		if result.Error != nil {
			return added, result.Error
		}
		if result.RowsAffected > 0 {
			added = append(added, sid)
		}
	}
	return added, nil
}

// Remove 硬删除参与者行
func (r *participantRepo) Remove(ctx context.Context, sessionID string, studentExternalIDs []string) error {
	if len(studentExternalIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("session_id = ? AND student_external_id IN ?", sessionID, studentExternalIDs).
		Delete(&model.SessionParticipant{}).Error
}

func (r *participantRepo) UpdateStatus(ctx context.Context, sessionID, studentExternalID string, status model.ParticipationStatus, updatedBy *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.SessionParticipant{}).
		Where("session_id = ? AND student_external_id = ?", sessionID, studentExternalID).
		Updates(map[string]interface{}{
			"participation_status": status,
			"updated_by":           updatedBy,
			"updated_at":           gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
