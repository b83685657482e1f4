package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoAssignments = errors.New("该周期暂无分配记录")
	ErrExportGenerateFail  = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAssignments 导出某周期的分配名单；cycleID 为空时取当前周期
	ExportAssignments(ctx context.Context, cycleID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAssignments 导出分配名单为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "分配名单"，首行为周期标题
//   - 列：导师工号 / 学生学号 / 角色 / 状态 / 院系 / 专业 / 生效时间 / 结束时间 / 需复核 / 备注
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAssignments(ctx context.Context, cycleID string) (*bytes.Buffer, string, error) {
	// 1. 定位周期
	var (
		cycle *model.AssignmentCycle
		err   error
	)
	if cycleID == "" {
		cycle, err = s.repo.Cycle.GetActive(ctx)
	} else {
		cycle, err = s.repo.Cycle.GetByID(ctx, cycleID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCycleNotFound
		}
		s.logger.Error("查询分配周期失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询分配
	list, err := s.repo.Assignment.ListAll(ctx, repository.AssignmentFilter{CycleID: cycle.CycleID})
	if err != nil {
		s.logger.Error("查询分配名单失败", zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoAssignments
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "分配名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"导师工号", "学生学号", "角色", "状态", "院系", "专业", "生效时间", "结束时间", "需复核", "备注"}
	widths := []float64{14, 14, 10, 10, 20, 20, 20, 20, 8, 40}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s（%s 至 %s）分配名单",
		cycle.Name, cycle.StartDate.Format("2006-01-02"), cycle.EndDate.Format("2006-01-02")))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range list {
		a := &list[i]
		effectiveTo := "-"
		if a.EffectiveTo != nil {
			effectiveTo = a.EffectiveTo.Format("2006-01-02 15:04")
		}
		attention := ""
		if a.NeedsAttention() {
			attention = "是"
		}

		values := []interface{}{
			a.MentorExternalID,
			a.StudentExternalID,
			roleText(a.Role),
			assignmentStatusText(a.Status),
			metaString(a, model.MetaDepartment),
			metaString(a, model.MetaProgram),
			a.EffectiveFrom.Format("2006-01-02 15:04"),
			effectiveTo,
			attention,
			a.Notes,
		}
		if err := f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Int("row", row), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("分配名单_%s_%s.xlsx", cycle.Name, time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func metaString(a *model.Assignment, key string) string {
	if a.Metadata == nil {
		return ""
	}
	if v, ok := a.Metadata[key].(string); ok {
		return v
	}
	return ""
}

func roleText(r model.AssignmentRole) string {
	if r == model.AssignmentRoleCoMentor {
		return "协同导师"
	}
	return "主导师"
}

func assignmentStatusText(s model.AssignmentStatus) string {
	switch s {
	case model.AssignmentActive:
		return "在任"
	case model.AssignmentPending:
		return "待生效"
	case model.AssignmentCompleted:
		return "已结束"
	case model.AssignmentCancelled:
		return "已取消"
	}
	return string(s)
}
