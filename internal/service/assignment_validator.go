package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
	"mentor-hub/backend/pkg/metrics"
)

// 校验失败提示（原样返回给调用方）
const (
	msgCycleMissing     = "分配周期不存在"
	msgCycleInactive    = "分配周期未激活"
	msgCycleLocked      = "分配周期已锁定"
	msgMentorMissing    = "导师不存在于目录中"
	msgStudentMissing   = "学生不存在于目录中"
	msgCaseloadExceeded = "导师本周期指导人数已达上限（%d）"
)

// AssignmentValidator 分配预校验（只读，无任何写入）
type AssignmentValidator interface {
	Validate(ctx context.Context, mentorExternalID, studentExternalID, cycleID string, role model.AssignmentRole) (*dto.AssignmentValidation, error)
}

type assignmentValidator struct {
	repo     *repository.Repository
	dir      *directory.Resolver
	settings SettingsProvider
	logger   *zap.Logger
}

// NewAssignmentValidator 创建 AssignmentValidator 实例
func NewAssignmentValidator(repo *repository.Repository, dir *directory.Resolver, settings SettingsProvider, logger *zap.Logger) AssignmentValidator {
	return &assignmentValidator{repo: repo, dir: dir, settings: settings, logger: logger}
}

// Validate 依次检查：周期可用、导师与学生在目录中存在、导师负载、
// 以及存储过程 validate_assignment_constraints 中的配对规则。
// 返回 error 仅表示后端故障，业务不通过通过 IsValid=false 表达。
func (v *assignmentValidator) Validate(ctx context.Context, mentorExternalID, studentExternalID, cycleID string, role model.AssignmentRole) (*dto.AssignmentValidation, error) {
	res, err := v.validate(ctx, mentorExternalID, studentExternalID, cycleID, role)
	switch {
	case err != nil:
		metrics.AssignmentValidations.WithLabelValues(metrics.ResultError).Inc()
	case res.IsValid:
		metrics.AssignmentValidations.WithLabelValues(metrics.ResultValid).Inc()
	default:
		metrics.AssignmentValidations.WithLabelValues(metrics.ResultInvalid).Inc()
	}
	return res, err
}

func (v *assignmentValidator) validate(ctx context.Context, mentorExternalID, studentExternalID, cycleID string, role model.AssignmentRole) (*dto.AssignmentValidation, error) {
	if role == "" {
		role = model.AssignmentRolePrimary
	}

	// 1. 周期
	cycle, err := v.repo.Cycle.GetByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid(msgCycleMissing), nil
		}
		v.logger.Error("查询分配周期失败", zap.String("cycle_id", cycleID), zap.Error(err))
		return nil, err
	}
	if cycle.Status != model.CycleActive {
		return invalid(msgCycleInactive), nil
	}
	if cycle.IsLocked {
		return invalid(msgCycleLocked), nil
	}

	// 2. 目录
	settings := v.settings.Settings(ctx)
	src := v.dir.Source(settings.DirectoryOptions())

	if _, err := src.StaffByExternalID(ctx, mentorExternalID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return invalid(msgMentorMissing), nil
		}
		v.logger.Error("查询导师目录失败", zap.String("mentor", mentorExternalID), zap.Error(err))
		return nil, err
	}
	student, err := src.StudentByExternalID(ctx, studentExternalID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return invalid(msgStudentMissing), nil
		}
		v.logger.Error("查询学生目录失败", zap.String("student", studentExternalID), zap.Error(err))
		return nil, err
	}

	// 3. 导师负载
	if settings.EnforceCaseload && settings.MaxCaseload > 0 {
		n, err := v.repo.Assignment.CountActiveByMentor(ctx, mentorExternalID, cycleID)
		if err != nil {
			v.logger.Error("统计导师负载失败", zap.String("mentor", mentorExternalID), zap.Error(err))
			return nil, err
		}
		if n >= int64(settings.MaxCaseload) {
			return invalid(fmt.Sprintf(msgCaseloadExceeded, settings.MaxCaseload)), nil
		}
	}

	// 4. 配对规则
	cr, err := v.repo.Assignment.ValidateConstraints(ctx, mentorExternalID, studentExternalID, cycleID, role)
	if err != nil {
		v.logger.Error("调用分配约束校验失败",
			zap.String("mentor", mentorExternalID),
			zap.String("student", studentExternalID),
			zap.Error(err),
		)
		return nil, err
	}

	res := &dto.AssignmentValidation{
		IsValid:           cr.IsValid,
		StudentDepartment: student.Department,
		StudentProgram:    student.Program,
	}
	if cr.ErrorMessage != nil {
		res.ErrorMessage = *cr.ErrorMessage
	}
	if cr.StudentDepartment != nil && *cr.StudentDepartment != "" {
		res.StudentDepartment = *cr.StudentDepartment
	}
	if cr.StudentProgram != nil && *cr.StudentProgram != "" {
		res.StudentProgram = *cr.StudentProgram
	}
	return res, nil
}

func invalid(msg string) *dto.AssignmentValidation {
	return &dto.AssignmentValidation{IsValid: false, ErrorMessage: msg}
}
