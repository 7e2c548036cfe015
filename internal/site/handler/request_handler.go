package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// RequestHandler 审批请求处理器
type RequestHandler struct {
	svc *service.RequestService
}

// NewRequestHandler 创建审批请求处理器
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// List GET /requests
// tab=incoming/scheduled/archived
func (h *RequestHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"site_id": c.Query("site_id"),
		"type":    c.Query("type"),
		"status":  c.Query("status"),
		"tab":     c.Query("tab"),
	}

	requests, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取请求列表失败: "+err.Error())
		return
	}

	Success(c, NewListResponse(requests, page, pageSize, total))
}

// Get GET /requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "请求不存在")
			return
		}
		InternalError(c, "获取请求失败: "+err.Error())
		return
	}
	Success(c, request)
}

// Create POST /requests
func (h *RequestHandler) Create(c *gin.Context) {
	var req service.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, service.ErrUnknownRequestType) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, "创建失败: "+err.Error())
		return
	}

	Created(c, request)
}

// Approve POST /requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	request, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c))
	if err != nil {
		h.decisionError(c, err, "审批失败")
		return
	}
	Success(c, request)
}

// Reject POST /requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	request, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c))
	if err != nil {
		h.decisionError(c, err, "驳回失败")
		return
	}
	Success(c, request)
}

type scheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"` // RFC3339
}

// Schedule POST /requests/:id/schedule
func (h *RequestHandler) Schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		BadRequest(c, "排期时间格式错误，需要RFC3339")
		return
	}

	request, err := h.svc.Schedule(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c), scheduledAt)
	if err != nil {
		h.decisionError(c, err, "排期失败")
		return
	}

	Success(c, request)
}

// Cancel POST /requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	request, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c))
	if err != nil {
		h.decisionError(c, err, "撤销失败")
		return
	}
	Success(c, request)
}

func (h *RequestHandler) decisionError(c *gin.Context, err error, prefix string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "请求不存在")
	case errors.Is(err, service.ErrRequestDecided):
		Conflict(c, "请求已进入终态")
	case errors.Is(err, service.ErrInvalidTransition):
		Conflict(c, "非法状态流转")
	default:
		InternalError(c, prefix+": "+err.Error())
	}
}
