package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc   *service.UserService
	qrSvc *service.QRCodeService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.UserService, qrSvc *service.QRCodeService) *UserHandler {
	return &UserHandler{svc: svc, qrSvc: qrSvc}
}

// List GET /users
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"site_id": c.Query("site_id"),
		"role":    c.Query("role"),
		"status":  c.Query("status"),
		"search":  c.Query("search"),
	}

	users, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取用户列表失败: "+err.Error())
		return
	}

	Success(c, NewListResponse(users, page, pageSize, total))
}

// Get GET /users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "获取用户失败: "+err.Error())
		return
	}
	Success(c, user)
}

// Create POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		InternalError(c, "创建用户失败: "+err.Error())
		return
	}

	Created(c, user)
}

// Update PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req,
		GetUserRole(c), GetSiteID(c), GetUserID(c), GetUserName(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "用户不存在")
		case errors.Is(err, service.ErrCrossSite):
			Forbidden(c, "不允许跨站点操作")
		default:
			InternalError(c, "更新用户失败: "+err.Error())
		}
		return
	}

	Success(c, user)
}

type deleteUserRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// Delete DELETE /users/:id
// 硬删除，请求体携带操作者PIN做二次确认。
func (h *UserHandler) Delete(c *gin.Context) {
	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "需要提供PIN确认删除")
		return
	}

	err := h.svc.Delete(c.Request.Context(), c.Param("id"), req.PIN,
		GetUserID(c), GetUserRole(c), GetSiteID(c), GetUserName(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "用户不存在")
		case errors.Is(err, service.ErrPINMismatch):
			Forbidden(c, "PIN校验失败")
		case errors.Is(err, service.ErrCrossSite):
			Forbidden(c, "不允许跨站点操作")
		default:
			InternalError(c, "删除用户失败: "+err.Error())
		}
		return
	}

	Success(c, nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword POST /users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		BadRequest(c, err.Error())
		return
	}

	Success(c, nil)
}

// QRCode GET /users/:id/qrcode
// 返回身份卡二维码PNG，内容为 user/{id}。
func (h *UserHandler) QRCode(c *gin.Context) {
	size := 256
	if s := c.Query("size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 64 && v <= 1024 {
			size = v
		}
	}

	card, err := h.qrSvc.Generate(c.Request.Context(), c.Param("id"), size)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "生成二维码失败: "+err.Error())
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(200, "image/png", card.PNG)
}

// ResolveQR GET /qr/resolve?payload=user/{id}
// 扫码端回查用户档案。
func (h *UserHandler) ResolveQR(c *gin.Context) {
	payload := c.Query("payload")
	if payload == "" {
		BadRequest(c, "缺少payload参数")
		return
	}

	user, err := h.qrSvc.Resolve(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, user)
}
