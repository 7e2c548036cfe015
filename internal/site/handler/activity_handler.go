package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// ActivityHandler 活动与任务处理器
type ActivityHandler struct {
	svc *service.ActivityService
}

// NewActivityHandler 创建活动处理器
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List GET /activities
func (h *ActivityHandler) List(c *gin.Context) {
	activities, err := h.svc.List(c.Request.Context(), c.Query("site_id"))
	if err != nil {
		InternalError(c, "获取活动列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": activities})
}

// Get GET /activities/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "获取活动失败: "+err.Error())
		return
	}
	Success(c, activity)
}

// Create POST /activities
func (h *ActivityHandler) Create(c *gin.Context) {
	var req service.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	activity, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		InternalError(c, "创建活动失败: "+err.Error())
		return
	}

	Created(c, activity)
}

// Update PUT /activities/:id
func (h *ActivityHandler) Update(c *gin.Context) {
	var req service.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	activity, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "更新活动失败: "+err.Error())
		return
	}

	Success(c, activity)
}

// ListTasks GET /activities/:id/tasks
func (h *ActivityHandler) ListTasks(c *gin.Context) {
	tasks, err := h.svc.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "获取任务列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": tasks})
}

// CreateTask POST /activities/:id/tasks
func (h *ActivityHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), c.Param("id"), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "创建任务失败: "+err.Error())
		return
	}

	Created(c, task)
}

type updateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatus PUT /tasks/:id/status
func (h *ActivityHandler) UpdateTaskStatus(c *gin.Context) {
	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	task, err := h.svc.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req.Status, GetUserRole(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "任务不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, task)
}
