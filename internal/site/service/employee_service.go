package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"go.uber.org/zap"
)

// EmployeeService 工人档案服务
type EmployeeService struct {
	repo        *repository.EmployeeRepository
	companyRepo *repository.CompanyRepository
	logRepo     *repository.ActivityLogRepository
	logger      *zap.Logger
}

// NewEmployeeService 创建工人档案服务
func NewEmployeeService(repo *repository.EmployeeRepository, companyRepo *repository.CompanyRepository, logRepo *repository.ActivityLogRepository, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{repo: repo, companyRepo: companyRepo, logRepo: logRepo, logger: logger}
}

// CreateEmployeeRequest 创建工人请求
type CreateEmployeeRequest struct {
	SiteID     string `json:"site_id" binding:"required"`
	CompanyID  string `json:"company_id"`
	Name       string `json:"name" binding:"required"`
	Trade      string `json:"trade"`
	Phone      string `json:"phone"`
	EmployeeNo string `json:"employee_no"`
	Notes      string `json:"notes"`
}

// UpdateEmployeeRequest 更新工人请求
type UpdateEmployeeRequest struct {
	CompanyID  *string `json:"company_id"`
	Name       *string `json:"name"`
	Trade      *string `json:"trade"`
	Phone      *string `json:"phone"`
	EmployeeNo *string `json:"employee_no"`
	Locked     *bool   `json:"locked"`
	Archived   *bool   `json:"archived"`
	Notes      *string `json:"notes"`
}

// RecordInductionRequest 登记入场培训
type RecordInductionRequest struct {
	InductionDate string `json:"induction_date" binding:"required"` // 2006-01-02
	ValidMonths   int    `json:"valid_months"`
}

// List 工人列表
func (s *EmployeeService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Employee, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 工人详情
func (s *EmployeeService) Get(ctx context.Context, id string) (*entity.Employee, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建工人档案
func (s *EmployeeService) Create(ctx context.Context, req *CreateEmployeeRequest, operatorID, operatorName string) (*entity.Employee, error) {
	if req.CompanyID != "" {
		if _, err := s.companyRepo.FindByID(ctx, req.CompanyID); err != nil {
			return nil, fmt.Errorf("company not found: %s", req.CompanyID)
		}
	}

	emp := &entity.Employee{
		ID:         uuid.New().String()[:32],
		SiteID:     req.SiteID,
		CompanyID:  req.CompanyID,
		Name:       req.Name,
		Trade:      req.Trade,
		Phone:      req.Phone,
		EmployeeNo: req.EmployeeNo,
		Notes:      req.Notes,
		CreatedBy:  operatorID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, emp); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	s.logRepo.LogActivity(ctx, "employee", emp.ID, emp.EmployeeNo, "create", "", "",
		fmt.Sprintf("创建工人档案 %s", emp.Name), operatorID, operatorName)

	return emp, nil
}

// Update 更新工人档案
func (s *EmployeeService) Update(ctx context.Context, id string, req *UpdateEmployeeRequest, operatorID, operatorName string) (*entity.Employee, error) {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CompanyID != nil {
		emp.CompanyID = *req.CompanyID
	}
	if req.Name != nil {
		emp.Name = *req.Name
	}
	if req.Trade != nil {
		emp.Trade = *req.Trade
	}
	if req.Phone != nil {
		emp.Phone = *req.Phone
	}
	if req.EmployeeNo != nil {
		emp.EmployeeNo = *req.EmployeeNo
	}
	if req.Locked != nil {
		emp.Locked = *req.Locked
	}
	if req.Archived != nil {
		emp.Archived = *req.Archived
	}
	if req.Notes != nil {
		emp.Notes = *req.Notes
	}
	emp.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, emp); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}

	s.logRepo.LogActivity(ctx, "employee", emp.ID, emp.EmployeeNo, "update", "", "",
		fmt.Sprintf("更新工人档案 %s", emp.Name), operatorID, operatorName)

	return emp, nil
}

// RecordInduction 登记入场培训，默认有效期12个月
func (s *EmployeeService) RecordInduction(ctx context.Context, id string, req *RecordInductionRequest, operatorID, operatorName string) (*entity.Employee, error) {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	inductionDate, err := time.Parse("2006-01-02", req.InductionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid induction date: %s", req.InductionDate)
	}

	validMonths := req.ValidMonths
	if validMonths <= 0 {
		validMonths = 12
	}
	expiry := inductionDate.AddDate(0, validMonths, 0)

	emp.InductionDate = &inductionDate
	emp.InductionExpiry = &expiry
	emp.Inducted = true
	emp.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, emp); err != nil {
		return nil, fmt.Errorf("record induction: %w", err)
	}

	s.logRepo.LogActivity(ctx, "employee", emp.ID, emp.EmployeeNo, "induction", "", "",
		fmt.Sprintf("登记入场培训，有效期至 %s", expiry.Format("2006-01-02")), operatorID, operatorName)

	return emp, nil
}

// ExpiringInductions 查询即将到期的入场培训，默认30天窗口
func (s *EmployeeService) ExpiringInductions(ctx context.Context, siteID string, withinDays int) ([]entity.Employee, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	return s.repo.FindExpiringInductions(ctx, siteID, time.Duration(withinDays)*24*time.Hour)
}

// Archive 归档工人档案(软删除)
func (s *EmployeeService) Archive(ctx context.Context, id, operatorID, operatorName string) error {
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	emp.Archived = true
	emp.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, emp); err != nil {
		return fmt.Errorf("archive employee: %w", err)
	}

	s.logRepo.LogActivity(ctx, "employee", emp.ID, emp.EmployeeNo, "archive", "", "",
		fmt.Sprintf("归档工人档案 %s", emp.Name), operatorID, operatorName)

	return nil
}

// ListCompanies 公司列表
func (s *EmployeeService) ListCompanies(ctx context.Context, siteID string) ([]entity.Company, error) {
	return s.companyRepo.FindAll(ctx, siteID)
}

// CreateCompany 创建公司
func (s *EmployeeService) CreateCompany(ctx context.Context, company *entity.Company) (*entity.Company, error) {
	company.ID = uuid.New().String()[:32]
	company.CreatedAt = time.Now()
	company.UpdatedAt = time.Now()
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return company, nil
}
