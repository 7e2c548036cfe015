package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// PlantAssetRepository 设备资产仓库
type PlantAssetRepository struct {
	db *gorm.DB
}

func NewPlantAssetRepository(db *gorm.DB) *PlantAssetRepository {
	return &PlantAssetRepository{db: db}
}

// FindAll 查询设备列表
func (r *PlantAssetRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PlantAsset, int64, error) {
	var items []entity.PlantAsset
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PlantAsset{})

	if siteID := filters["site_id"]; siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if category := filters["category"]; category != "" {
		query = query.Where("category = ?", category)
	}
	if filters["vas_listed"] == "true" {
		query = query.Where("vas_listed = ?", true)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ? OR registration ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
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

// FindByID 根据ID查找设备
func (r *PlantAssetRepository) FindByID(ctx context.Context, id string) (*entity.PlantAsset, error) {
	var asset entity.PlantAsset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// Create 创建设备
func (r *PlantAssetRepository) Create(ctx context.Context, asset *entity.PlantAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// Update 更新设备
func (r *PlantAssetRepository) Update(ctx context.Context, asset *entity.PlantAsset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

// GenerateCode 生成设备编码 PLT-{year}-{4位}
func (r *PlantAssetRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("PLT-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.PlantAsset{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "PLT-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("PLT-%s-%04d", year, seq), nil
}
