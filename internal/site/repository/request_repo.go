package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// RequestRepository 审批请求仓库
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// FindAll 查询请求列表，站点+类型过滤，按创建时间倒序。
// tab: incoming(PENDING) / scheduled / archived
func (r *RequestRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Request, int64, error) {
	var items []entity.Request
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Request{})

	if siteID := filters["site_id"]; siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if reqType := filters["type"]; reqType != "" {
		query = query.Where("type = ?", reqType)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	switch filters["tab"] {
	case "incoming":
		query = query.Where("status = ? AND archived = ?", entity.RequestStatusPending, false)
	case "scheduled":
		query = query.Where("status = ? AND archived = ?", entity.RequestStatusScheduled, false)
	case "archived":
		query = query.Where("archived = ?", true)
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

// FindByID 根据ID查找请求
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	var req entity.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Create 创建请求
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Update 更新请求
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// GenerateCode 生成请求编码 REQ-{year}-{4位}
func (r *RequestRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("REQ-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Request{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "REQ-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("REQ-%s-%04d", year, seq), nil
}
