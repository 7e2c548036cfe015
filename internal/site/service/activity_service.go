package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
)

// ActivityService 现场活动与任务服务
type ActivityService struct {
	repo    *repository.ActivityRepository
	logRepo *repository.ActivityLogRepository
}

// NewActivityService 创建活动服务
func NewActivityService(repo *repository.ActivityRepository, logRepo *repository.ActivityLogRepository) *ActivityService {
	return &ActivityService{repo: repo, logRepo: logRepo}
}

// CreateActivityRequest 创建活动请求
type CreateActivityRequest struct {
	SiteID       string  `json:"site_id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Area         string  `json:"area"`
	ScopeValue   float64 `json:"scope_value" binding:"min=0"`
	ValuePerCell float64 `json:"value_per_cell" binding:"min=0"`
	GridColumns  int     `json:"grid_columns" binding:"min=0"`
	GridRows     int     `json:"grid_rows" binding:"min=0"`
}

// UpdateActivityRequest 更新活动请求
type UpdateActivityRequest struct {
	Name         *string  `json:"name"`
	Area         *string  `json:"area"`
	Status       *string  `json:"status" binding:"omitempty,oneof=active completed archived"`
	ScopeValue   *float64 `json:"scope_value"`
	ValuePerCell *float64 `json:"value_per_cell"`
	GridColumns  *int     `json:"grid_columns"`
	GridRows     *int     `json:"grid_rows"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Name       string `json:"name" binding:"required"`
	AssigneeID string `json:"assignee_id"`
}

// List 站点活动列表
func (s *ActivityService) List(ctx context.Context, siteID string) ([]entity.Activity, error) {
	return s.repo.FindAll(ctx, siteID)
}

// Get 活动详情
func (s *ActivityService) Get(ctx context.Context, id string) (*entity.Activity, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建活动
func (s *ActivityService) Create(ctx context.Context, req *CreateActivityRequest, operatorID, operatorName string) (*entity.Activity, error) {
	activity := &entity.Activity{
		ID:           uuid.New().String()[:32],
		SiteID:       req.SiteID,
		Name:         req.Name,
		Area:         req.Area,
		Status:       "active",
		ScopeValue:   req.ScopeValue,
		ValuePerCell: req.ValuePerCell,
		GridColumns:  req.GridColumns,
		GridRows:     req.GridRows,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	s.logRepo.LogActivity(ctx, "activity", activity.ID, "", "create", "", "active",
		fmt.Sprintf("创建活动 %s", activity.Name), operatorID, operatorName)

	return activity, nil
}

// Update 更新活动
func (s *ActivityService) Update(ctx context.Context, id string, req *UpdateActivityRequest, operatorID, operatorName string) (*entity.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		activity.Name = *req.Name
	}
	if req.Area != nil {
		activity.Area = *req.Area
	}
	if req.Status != nil {
		activity.Status = *req.Status
	}
	if req.ScopeValue != nil {
		activity.ScopeValue = *req.ScopeValue
	}
	if req.ValuePerCell != nil {
		activity.ValuePerCell = *req.ValuePerCell
	}
	if req.GridColumns != nil {
		activity.GridColumns = *req.GridColumns
	}
	if req.GridRows != nil {
		activity.GridRows = *req.GridRows
	}
	activity.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}

	return activity, nil
}

// ListTasks 活动的任务列表
func (s *ActivityService) ListTasks(ctx context.Context, activityID string) ([]entity.Task, error) {
	if _, err := s.repo.FindByID(ctx, activityID); err != nil {
		return nil, err
	}
	return s.repo.FindTasksByActivity(ctx, activityID)
}

// CreateTask 在活动下创建任务
func (s *ActivityService) CreateTask(ctx context.Context, activityID string, req *CreateTaskRequest, operatorID, operatorName string) (*entity.Task, error) {
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	task := &entity.Task{
		ID:         uuid.New().String()[:32],
		ActivityID: activity.ID,
		SiteID:     activity.SiteID,
		Name:       req.Name,
		Status:     entity.TaskStatusOpen,
		AssigneeID: req.AssigneeID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logRepo.LogActivity(ctx, "task", task.ID, "", "create", "", entity.TaskStatusOpen,
		fmt.Sprintf("创建任务 %s", task.Name), operatorID, operatorName)

	return task, nil
}

// UpdateTaskStatus 更新任务状态。locked任务仅master可解锁，其余流转不受限。
func (s *ActivityService) UpdateTaskStatus(ctx context.Context, taskID, status, actorRole string) (*entity.Task, error) {
	switch status {
	case entity.TaskStatusOpen, entity.TaskStatusInProgress, entity.TaskStatusDone, entity.TaskStatusLocked:
	default:
		return nil, fmt.Errorf("unknown task status: %s", status)
	}

	task, err := s.repo.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == entity.TaskStatusLocked && actorRole != entity.RoleMaster {
		return nil, fmt.Errorf("task is locked")
	}

	task.Status = status
	task.UpdatedAt = time.Now()

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return task, nil
}
