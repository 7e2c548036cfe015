package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// PlantAssetHandler 设备资产处理器
type PlantAssetHandler struct {
	svc *service.PlantAssetService
}

// NewPlantAssetHandler 创建设备资产处理器
func NewPlantAssetHandler(svc *service.PlantAssetService) *PlantAssetHandler {
	return &PlantAssetHandler{svc: svc}
}

// List GET /assets
func (h *PlantAssetHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"site_id":    c.Query("site_id"),
		"category":   c.Query("category"),
		"vas_listed": c.Query("vas_listed"),
		"archived":   c.Query("archived"),
		"search":     c.Query("search"),
	}

	assets, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取设备列表失败: "+err.Error())
		return
	}

	Success(c, NewListResponse(assets, page, pageSize, total))
}

// Get GET /assets/:id
func (h *PlantAssetHandler) Get(c *gin.Context) {
	asset, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "获取设备失败: "+err.Error())
		return
	}
	Success(c, asset)
}

// Create POST /assets
func (h *PlantAssetHandler) Create(c *gin.Context) {
	var req service.CreatePlantAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	asset, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		InternalError(c, "创建设备失败: "+err.Error())
		return
	}

	Created(c, asset)
}

// Update PUT /assets/:id
func (h *PlantAssetHandler) Update(c *gin.Context) {
	var req service.UpdatePlantAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	asset, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "更新设备失败: "+err.Error())
		return
	}

	Success(c, asset)
}

// Archive DELETE /assets/:id
// 软删除，归档后不出现在默认列表。
func (h *PlantAssetHandler) Archive(c *gin.Context) {
	err := h.svc.Archive(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "归档设备失败: "+err.Error())
		return
	}
	Success(c, nil)
}

type vasListingRequest struct {
	Listed bool    `json:"listed"`
	Rate   float64 `json:"rate" binding:"min=0"`
}

// SetVASListing POST /assets/:id/vas
func (h *PlantAssetHandler) SetVASListing(c *gin.Context) {
	var req vasListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	asset, err := h.svc.SetVASListing(c.Request.Context(), c.Param("id"), req.Listed, req.Rate, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "设备不存在")
			return
		}
		InternalError(c, "更新VAS挂牌失败: "+err.Error())
		return
	}

	Success(c, asset)
}
