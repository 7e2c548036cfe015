package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
)

// EmployeeHandler 工人档案处理器
type EmployeeHandler struct {
	svc *service.EmployeeService
}

// NewEmployeeHandler 创建工人档案处理器
func NewEmployeeHandler(svc *service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

// List GET /employees
func (h *EmployeeHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"site_id":    c.Query("site_id"),
		"company_id": c.Query("company_id"),
		"trade":      c.Query("trade"),
		"archived":   c.Query("archived"),
		"search":     c.Query("search"),
	}

	employees, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取工人列表失败: "+err.Error())
		return
	}

	Success(c, NewListResponse(employees, page, pageSize, total))
}

// Get GET /employees/:id
func (h *EmployeeHandler) Get(c *gin.Context) {
	emp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工人不存在")
			return
		}
		InternalError(c, "获取工人失败: "+err.Error())
		return
	}
	Success(c, emp)
}

// Create POST /employees
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	emp, err := h.svc.Create(c.Request.Context(), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		InternalError(c, "创建工人失败: "+err.Error())
		return
	}

	Created(c, emp)
}

// Update PUT /employees/:id
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req service.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	emp, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工人不存在")
			return
		}
		InternalError(c, "更新工人失败: "+err.Error())
		return
	}

	Success(c, emp)
}

// RecordInduction POST /employees/:id/induction
func (h *EmployeeHandler) RecordInduction(c *gin.Context) {
	var req service.RecordInductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	emp, err := h.svc.RecordInduction(c.Request.Context(), c.Param("id"), &req, GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工人不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, emp)
}

// ExpiringInductions GET /employees/inductions/expiring
func (h *EmployeeHandler) ExpiringInductions(c *gin.Context) {
	withinDays := 30
	if d := c.Query("within_days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			withinDays = v
		}
	}

	employees, err := h.svc.ExpiringInductions(c.Request.Context(), c.Query("site_id"), withinDays)
	if err != nil {
		InternalError(c, "查询到期培训失败: "+err.Error())
		return
	}

	Success(c, gin.H{"items": employees})
}

// Archive DELETE /employees/:id
func (h *EmployeeHandler) Archive(c *gin.Context) {
	err := h.svc.Archive(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserName(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工人不存在")
			return
		}
		InternalError(c, "归档工人失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// ListCompanies GET /companies
func (h *EmployeeHandler) ListCompanies(c *gin.Context) {
	companies, err := h.svc.ListCompanies(c.Request.Context(), c.Query("site_id"))
	if err != nil {
		InternalError(c, "获取公司列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": companies})
}

// CreateCompany POST /companies
func (h *EmployeeHandler) CreateCompany(c *gin.Context) {
	var company entity.Company
	if err := c.ShouldBindJSON(&company); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if company.Name == "" {
		BadRequest(c, "公司名称不能为空")
		return
	}

	created, err := h.svc.CreateCompany(c.Request.Context(), &company)
	if err != nil {
		InternalError(c, "创建公司失败: "+err.Error())
		return
	}

	Created(c, created)
}
