package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// EmployeeRepository 工人档案仓库
type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindAll 查询工人列表
func (r *EmployeeRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Employee, int64, error) {
	var items []entity.Employee
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Employee{})

	if siteID := filters["site_id"]; siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if companyID := filters["company_id"]; companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if trade := filters["trade"]; trade != "" {
		query = query.Where("trade = ?", trade)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR employee_no ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if filters["archived"] != "true" {
		query = query.Where("archived = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找工人
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*entity.Employee, error) {
	var emp entity.Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &emp, nil
}

// FindExpiringInductions 查询即将过期的入场培训记录
func (r *EmployeeRepository) FindExpiringInductions(ctx context.Context, siteID string, within time.Duration) ([]entity.Employee, error) {
	var items []entity.Employee
	deadline := time.Now().Add(within)
	query := r.db.WithContext(ctx).
		Where("archived = ?", false).
		Where("induction_expiry IS NOT NULL AND induction_expiry <= ?", deadline)
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	err := query.Order("induction_expiry ASC").Find(&items).Error
	return items, err
}

// FindBySite 查询站点所有在册工人（导出用，不分页）
func (r *EmployeeRepository) FindBySite(ctx context.Context, siteID string) ([]entity.Employee, error) {
	var items []entity.Employee
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND archived = ?", siteID, false).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

// Create 创建工人档案
func (r *EmployeeRepository) Create(ctx context.Context, emp *entity.Employee) error {
	return r.db.WithContext(ctx).Create(emp).Error
}

// Update 更新工人档案
func (r *EmployeeRepository) Update(ctx context.Context, emp *entity.Employee) error {
	return r.db.WithContext(ctx).Save(emp).Error
}

// CompanyRepository 分包商仓库
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindAll 查询分包商列表
func (r *CompanyRepository) FindAll(ctx context.Context, siteID string) ([]entity.Company, error) {
	var items []entity.Company
	query := r.db.WithContext(ctx).Model(&entity.Company{})
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找分包商
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

// Create 创建分包商
func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// Update 更新分包商
func (r *CompanyRepository) Update(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}
