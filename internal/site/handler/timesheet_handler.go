package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// TimesheetHandler 工时表处理器
type TimesheetHandler struct {
	svc *service.TimesheetService
}

// NewTimesheetHandler 创建工时表处理器
func NewTimesheetHandler(svc *service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{svc: svc}
}

// List GET /timesheets
func (h *TimesheetHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"site_id":     c.Query("site_id"),
		"asset_id":    c.Query("asset_id"),
		"operator_id": c.Query("operator_id"),
		"date":        c.Query("date"),
		"status":      c.Query("status"),
	}

	timesheets, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取工时表失败: "+err.Error())
		return
	}

	Success(c, NewListResponse(timesheets, page, pageSize, total))
}

// Today GET /timesheets/today?asset_id=xxx
func (h *TimesheetHandler) Today(c *gin.Context) {
	assetID := c.Query("asset_id")
	if assetID == "" {
		BadRequest(c, "缺少asset_id参数")
		return
	}

	ts, err := h.svc.Today(c.Request.Context(), assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 当日尚未填报
			Success(c, nil)
			return
		}
		InternalError(c, "获取当日工时失败: "+err.Error())
		return
	}

	Success(c, ts)
}

// Upsert POST /timesheets
func (h *TimesheetHandler) Upsert(c *gin.Context) {
	var req service.UpsertTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ts, err := h.svc.Upsert(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "设备不存在")
		case errors.Is(err, service.ErrTimesheetLocked):
			Conflict(c, "工时表已锁定")
		default:
			InternalError(c, "保存工时失败: "+err.Error())
		}
		return
	}

	Success(c, ts)
}

// Submit POST /timesheets/:id/submit
func (h *TimesheetHandler) Submit(c *gin.Context) {
	ts, err := h.svc.Submit(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "工时表不存在")
		case errors.Is(err, service.ErrTimesheetLocked):
			Conflict(c, "工时表已锁定")
		default:
			InternalError(c, "提交工时失败: "+err.Error())
		}
		return
	}

	Success(c, ts)
}
