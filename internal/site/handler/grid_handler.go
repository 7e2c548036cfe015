package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// GridHandler 网格进度处理器
type GridHandler struct {
	svc *service.GridService
}

// NewGridHandler 创建网格进度处理器
func NewGridHandler(svc *service.GridService) *GridHandler {
	return &GridHandler{svc: svc}
}

// ListCells GET /activities/:id/grid
func (h *GridHandler) ListCells(c *gin.Context) {
	cells, err := h.svc.ListCells(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "获取网格失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": cells})
}

// MarkCells POST /activities/:id/grid/complete
// 批量标记完成，已完成/已锁定单元格静默跳过。
func (h *GridHandler) MarkCells(c *gin.Context) {
	var req service.MarkCellsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.MarkCells(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, result)
}

// Rollup GET /activities/:id/grid/rollup
func (h *GridHandler) Rollup(c *gin.Context) {
	rollup, err := h.svc.Rollup(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "活动不存在")
			return
		}
		InternalError(c, "计算进度失败: "+err.Error())
		return
	}
	Success(c, rollup)
}
