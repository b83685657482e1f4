package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mentor-hub/backend/internal/directory"
	"mentor-hub/backend/internal/dto"
	"mentor-hub/backend/internal/service"
	"mentor-hub/backend/pkg/response"
)

// DirectoryHandler 人员目录模块 HTTP 处理器
type DirectoryHandler struct {
	dirSvc service.DirectoryService
}

// NewDirectoryHandler 创建 DirectoryHandler
func NewDirectoryHandler(dirSvc service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{dirSvc: dirSvc}
}

// ListStudents 学生目录
// GET /api/v1/directory/students
func (h *DirectoryHandler) ListStudents(c *gin.Context) {
	var q dto.DirectoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.dirSvc.Students(c.Request.Context(), &q)
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListStaff 教职工目录
// GET /api/v1/directory/staff
func (h *DirectoryHandler) ListStaff(c *gin.Context) {
	var q dto.DirectoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.dirSvc.Staff(c.Request.Context(), &q)
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListDepartments 院系目录
// GET /api/v1/directory/departments
func (h *DirectoryHandler) ListDepartments(c *gin.Context) {
	list, err := h.dirSvc.Departments(c.Request.Context())
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListInstitutions 学校目录
// GET /api/v1/directory/institutions
func (h *DirectoryHandler) ListInstitutions(c *gin.Context) {
	list, err := h.dirSvc.Institutions(c.Request.Context())
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetStudent 按学号查询学生
// GET /api/v1/directory/students/:external_id
func (h *DirectoryHandler) GetStudent(c *gin.Context) {
	st, err := h.dirSvc.Student(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, st)
}

// GetStaff 按工号查询教职工
// GET /api/v1/directory/staff/:external_id
func (h *DirectoryHandler) GetStaff(c *gin.Context) {
	st, err := h.dirSvc.StaffMember(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, st)
}

// Snapshot 一次性返回四类目录数据
// GET /api/v1/directory/snapshot
func (h *DirectoryHandler) Snapshot(c *gin.Context) {
	snap, err := h.dirSvc.Snapshot(c.Request.Context())
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, snap)
}

// ImportStudents 上传 Excel 导入学生名单
// POST /api/v1/directory/students/import
func (h *DirectoryHandler) ImportStudents(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		if bodyTooLarge(c, err) {
			return
		}
		response.BadRequest(c, 13001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	result, err := h.dirSvc.ImportStudents(c.Request.Context(), file, callerID)
	if err != nil {
		h.handleDirectoryError(c, err)
		return
	}

	response.OK(c, result)
}

// handleDirectoryError 统一处理目录模块业务错误
func (h *DirectoryHandler) handleDirectoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDirectoryNotFound):
		response.NotFound(c, 13002, "目录中不存在该人员")
	case errors.Is(err, service.ErrDirectoryImportDemo):
		response.BadRequest(c, 13003, "演示模式下不能导入学生名单")
	case errors.Is(err, service.ErrDirectoryUnavailable):
		response.Unavailable(c, 13004, "学生名单导入不可用")
	case errors.Is(err, directory.ErrImportNoData),
		errors.Is(err, directory.ErrImportTooManyRows),
		errors.Is(err, directory.ErrImportBadHeader):
		response.BadRequest(c, 13005, err.Error())
	default:
		response.InternalError(c, err)
	}
}
