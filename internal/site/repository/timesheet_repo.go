package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// TimesheetRepository 设备工时表仓库
type TimesheetRepository struct {
	db *gorm.DB
}

func NewTimesheetRepository(db *gorm.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// FindAll 查询工时表列表
func (r *TimesheetRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AssetTimesheet, int64, error) {
	var items []entity.AssetTimesheet
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AssetTimesheet{})

	if assetID := filters["asset_id"]; assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if operatorID := filters["operator_id"]; operatorID != "" {
		query = query.Where("operator_id = ?", operatorID)
	}
	if siteID := filters["site_id"]; siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if date := filters["date"]; date != "" {
		query = query.Where("date = ?", date)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("date DESC, created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找工时表
func (r *TimesheetRepository) FindByID(ctx context.Context, id string) (*entity.AssetTimesheet, error) {
	var ts entity.AssetTimesheet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ts).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ts, nil
}

// FindByAssetAndDate 查找设备某日的工时表
func (r *TimesheetRepository) FindByAssetAndDate(ctx context.Context, assetID, date string) (*entity.AssetTimesheet, error) {
	var ts entity.AssetTimesheet
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND date = ?", assetID, date).
		First(&ts).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ts, nil
}

// FindByDate 查询某日的全部工时表（导出用）
func (r *TimesheetRepository) FindByDate(ctx context.Context, siteID, date string) ([]entity.AssetTimesheet, error) {
	var items []entity.AssetTimesheet
	query := r.db.WithContext(ctx).Where("date = ?", date)
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	err := query.Order("asset_id ASC").Find(&items).Error
	return items, err
}

// Create 创建工时表
func (r *TimesheetRepository) Create(ctx context.Context, ts *entity.AssetTimesheet) error {
	return r.db.WithContext(ctx).Create(ts).Error
}

// Update 更新工时表
func (r *TimesheetRepository) Update(ctx context.Context, ts *entity.AssetTimesheet) error {
	return r.db.WithContext(ctx).Save(ts).Error
}

// LockSubmittedThrough 批量锁定截至某日(含)所有已提交未锁定的工时表，返回锁定数量
func (r *TimesheetRepository) LockSubmittedThrough(ctx context.Context, date string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.AssetTimesheet{}).
		Where("date <= ? AND status = ?", date, entity.TimesheetStatusSubmitted).
		Updates(map[string]interface{}{
			"status":    entity.TimesheetStatusLocked,
			"locked_at": now,
		})
	return result.RowsAffected, result.Error
}
