package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/service"
)

// ExportHandler 报表导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportEmployees GET /export/employees?site_id=xxx
func (h *ExportHandler) ExportEmployees(c *gin.Context) {
	siteID := c.Query("site_id")
	if siteID == "" {
		BadRequest(c, "缺少site_id参数")
		return
	}

	f, filename, err := h.svc.ExportEmployeesXLSX(c.Request.Context(), siteID)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败: "+err.Error())
	}
}

// ExportTimesheets GET /export/timesheets?site_id=xxx&date=2006-01-02&format=csv|xlsx
func (h *ExportHandler) ExportTimesheets(c *gin.Context) {
	siteID := c.Query("site_id")
	if siteID == "" {
		BadRequest(c, "缺少site_id参数")
		return
	}
	date := c.Query("date")

	if c.DefaultQuery("format", "csv") == "xlsx" {
		f, filename, err := h.svc.ExportTimesheetsXLSX(c.Request.Context(), siteID, date)
		if err != nil {
			InternalError(c, "导出失败: "+err.Error())
			return
		}
		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
		c.Header("Content-Transfer-Encoding", "binary")
		if err := f.Write(c.Writer); err != nil {
			InternalError(c, "写出文件失败: "+err.Error())
		}
		return
	}

	data, filename, err := h.svc.ExportTimesheetsCSV(c.Request.Context(), siteID, date)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(200, "text/csv; charset=utf-8", data)
}
