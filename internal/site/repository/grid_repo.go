package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// GridRepository 网格进度仓库
type GridRepository struct {
	db *gorm.DB
}

func NewGridRepository(db *gorm.DB) *GridRepository {
	return &GridRepository{db: db}
}

// FindByActivity 查询活动的全部单元格
func (r *GridRepository) FindByActivity(ctx context.Context, activityID string) ([]entity.GridCell, error) {
	var items []entity.GridCell
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("grid_column ASC, grid_row ASC").
		Find(&items).Error
	return items, err
}

// FindCell 查找指定位置的单元格
func (r *GridRepository) FindCell(ctx context.Context, activityID string, column, row int) (*entity.GridCell, error) {
	var cell entity.GridCell
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND grid_column = ? AND grid_row = ?", activityID, column, row).
		First(&cell).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cell, nil
}

// Create 创建单元格
func (r *GridRepository) Create(ctx context.Context, cell *entity.GridCell) error {
	return r.db.WithContext(ctx).Create(cell).Error
}

// Update 更新单元格
func (r *GridRepository) Update(ctx context.Context, cell *entity.GridCell) error {
	return r.db.WithContext(ctx).Save(cell).Error
}

// CountCompleted 统计活动的已完成单元格数量
func (r *GridRepository) CountCompleted(ctx context.Context, activityID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.GridCell{}).
		Where("activity_id = ? AND status = ?", activityID, entity.GridCellStatusCompleted).
		Count(&count).Error
	return count, err
}

// LockCompletedBefore 批量锁定截止时间之前完成的未锁定单元格，返回锁定数量
func (r *GridRepository) LockCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&entity.GridCell{}).
		Where("status = ? AND is_locked = ? AND completed_at < ?", entity.GridCellStatusCompleted, false, cutoff).
		Updates(map[string]interface{}{
			"is_locked": true,
			"locked_at": now,
		})
	return result.RowsAffected, result.Error
}
