package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/model"
	"mentor-hub/backend/internal/repository"
)

const maxImportRows = 5000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（学号/姓名/院系代码）")
)

// StudentRow 导入文件中的一行
type StudentRow struct {
	Row            int
	ExternalID     string
	Name           string
	Email          string
	DepartmentCode string
	ProgramCode    string
	SemesterYear   int
}

// ParseStudentSheet 解析学生名单 Excel，第一行为表头，列顺序不限
func ParseStudentSheet(reader io.Reader) ([]StudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	col := parseHeaderIndex(excelRows[0])
	if col["external_id"] < 0 || col["name"] < 0 || col["department"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		idx := col[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []StudentRow
	for i := 1; i < len(excelRows); i++ {
		r := excelRows[i]
		item := StudentRow{
			Row:            i + 1,
			ExternalID:     cell(r, "external_id"),
			Name:           cell(r, "name"),
			Email:          cell(r, "email"),
			DepartmentCode: cell(r, "department"),
			ProgramCode:    cell(r, "program"),
			SemesterYear:   1,
		}
		if y := cell(r, "semester_year"); y != "" {
			if n, err := strconv.Atoi(y); err == nil && n > 0 {
				item.SemesterYear = n
			}
		}

		// 跳过全空行
		if item.ExternalID == "" && item.Name == "" && item.DepartmentCode == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"external_id":   -1,
		"name":          -1,
		"email":         -1,
		"department":    -1,
		"program":       -1,
		"semester_year": -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "学号", "external_id", "register_no":
			idx["external_id"] = i
		case "姓名", "name":
			idx["name"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "院系代码", "department_code", "department":
			idx["department"] = i
		case "专业代码", "program_code", "program":
			idx["program"] = i
		case "年级", "semester_year", "year":
			idx["semester_year"] = i
		}
	}
	return idx
}

// Importer 将学生名单写入实时目录
type Importer struct {
	repo   *repository.Repository
	live   *LiveSource
	logger *zap.Logger
}

// NewImporter 创建 Importer；live 非空时导入后清除目录缓存
func NewImporter(repo *repository.Repository, live *LiveSource, logger *zap.Logger) *Importer {
	return &Importer{repo: repo, live: live, logger: logger}
}

// ImportStudents 校验并按学号 upsert 学生目录
func (im *Importer) ImportStudents(ctx context.Context, rows []StudentRow, operatorID string) (*dto.ImportStudentsResponse, error) {
	resp := &dto.ImportStudentsResponse{Total: len(rows)}

	depts := make(map[string]*model.Department)
	programs := make(map[string]*model.Program)
	seen := make(map[string]int)

	var valid []model.Student
	for _, row := range rows {
		fail := func(reason string) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Reason: reason})
		}

		if row.ExternalID == "" || row.Name == "" || row.DepartmentCode == "" {
			fail("必填字段为空")
			continue
		}
		if first, dup := seen[row.ExternalID]; dup {
			fail(fmt.Sprintf("学号与第 %d 行重复: %s", first, row.ExternalID))
			continue
		}
		seen[row.ExternalID] = row.Row

		dept, ok := depts[row.DepartmentCode]
		if !ok {
			d, err := im.repo.Department.GetByCode(ctx, row.DepartmentCode)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				im.logger.Error("查询院系失败", zap.String("code", row.DepartmentCode), zap.Error(err))
				return nil, err
			}
			dept = d
			depts[row.DepartmentCode] = d
		}
		if dept == nil {
			fail(fmt.Sprintf("院系不存在: %s", row.DepartmentCode))
			continue
		}

		var programID *string
		if row.ProgramCode != "" {
			p, ok := programs[row.ProgramCode]
			if !ok {
				found, err := im.repo.Program.GetByCode(ctx, row.ProgramCode)
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					im.logger.Error("查询专业失败", zap.String("code", row.ProgramCode), zap.Error(err))
					return nil, err
				}
				p = found
				programs[row.ProgramCode] = found
			}
			if p == nil || p.DepartmentID != dept.DepartmentID {
				fail(fmt.Sprintf("专业不存在或不属于该院系: %s", row.ProgramCode))
				continue
			}
			programID = &p.ProgramID
		}

		deptID := dept.DepartmentID
		st := model.Student{
			ExternalID:    row.ExternalID,
			Name:          row.Name,
			Email:         row.Email,
			DepartmentID:  &deptID,
			InstitutionID: dept.InstitutionID,
			ProgramID:     programID,
			SemesterYear:  row.SemesterYear,
			IsActive:      true,
		}
		st.CreatedBy = &operatorID
		st.UpdatedBy = &operatorID
		valid = append(valid, st)
	}

	if len(valid) > 0 {
		if _, err := im.repo.Student.Upsert(ctx, valid); err != nil {
			im.logger.Error("导入学生目录失败", zap.Int("rows", len(valid)), zap.Error(err))
			return nil, err
		}
		resp.Imported = len(valid)

		if im.live != nil {
			if err := im.live.Invalidate(ctx); err != nil {
				im.logger.Warn("清除目录缓存失败", zap.Error(err))
			}
		}
	}

	im.logger.Info("学生目录导入完成",
		zap.Int("total", resp.Total),
		zap.Int("imported", resp.Imported),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}
