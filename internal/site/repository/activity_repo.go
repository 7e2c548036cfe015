package repository

import (
	"context"
	"errors"

	"github.com/gridline/siteops/internal/site/entity"
	"gorm.io/gorm"
)

// ActivityRepository 作业活动与任务仓库
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindAll 查询活动列表
func (r *ActivityRepository) FindAll(ctx context.Context, siteID string) ([]entity.Activity, error) {
	var items []entity.Activity
	query := r.db.WithContext(ctx).Model(&entity.Activity{})
	if siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	err := query.Order("name ASC").Find(&items).Error
	return items, err
}

// FindByID 根据ID查找活动
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*entity.Activity, error) {
	var activity entity.Activity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// Create 创建活动
func (r *ActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// Update 更新活动
func (r *ActivityRepository) Update(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

// FindTaskByID 根据ID查找任务
func (r *ActivityRepository) FindTaskByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// FindTasksByActivity 查询活动下的任务
func (r *ActivityRepository) FindTasksByActivity(ctx context.Context, activityID string) ([]entity.Task, error) {
	var items []entity.Task
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// CreateTask 创建任务
func (r *ActivityRepository) CreateTask(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// UpdateTask 更新任务
func (r *ActivityRepository) UpdateTask(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}
