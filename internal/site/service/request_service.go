package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/shared/notify"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrRequestDecided 请求已进入终态
	ErrRequestDecided = errors.New("request already decided")
	// ErrInvalidTransition 非法状态流转
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownRequestType 未知请求类型
	ErrUnknownRequestType = errors.New("unknown request type")
)

// RequestService 审批请求服务。
// 审批/驳回时同步清除Activity上的在途标志位，两次写入在同一事务内。
type RequestService struct {
	db           *gorm.DB
	repo         *repository.RequestRepository
	activityRepo *repository.ActivityRepository
	userRepo     *repository.UserRepository
	logRepo      *repository.ActivityLogRepository
	notifier     *notify.Client
	logger       *zap.Logger
}

// NewRequestService 创建审批请求服务
func NewRequestService(db *gorm.DB, repo *repository.RequestRepository, activityRepo *repository.ActivityRepository, userRepo *repository.UserRepository, logRepo *repository.ActivityLogRepository, notifier *notify.Client, logger *zap.Logger) *RequestService {
	return &RequestService{
		db:           db,
		repo:         repo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		logRepo:      logRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// CreateRequestRequest 提交审批请求
type CreateRequestRequest struct {
	Type       string  `json:"type" binding:"required"`
	SiteID     string  `json:"site_id" binding:"required"`
	TaskID     *string `json:"task_id"`
	ActivityID *string `json:"activity_id"`
	Notes      string  `json:"notes"`
}

// Create 提交审批请求，置位Activity对应的在途标志
func (s *RequestService) Create(ctx context.Context, req *CreateRequestRequest, operatorID, operatorName string) (*entity.Request, error) {
	if !entity.ValidRequestType(req.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, req.Type)
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := time.Now()
	request := &entity.Request{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Type:        req.Type,
		Status:      entity.RequestStatusPending,
		SiteID:      req.SiteID,
		TaskID:      req.TaskID,
		ActivityID:  req.ActivityID,
		Notes:       req.Notes,
		RequestedBy: operatorID,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewRequestRepository(tx).Create(ctx, request); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if request.ActivityID != nil {
			if err := s.setRequestedFlag(ctx, tx, *request.ActivityID, req.Type, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logRepo.LogActivity(ctx, "request", request.ID, request.Code, "create", "", entity.RequestStatusPending,
		fmt.Sprintf("提交审批请求 %s (%s)", request.Code, request.Type), operatorID, operatorName)

	sse.PublishRequestUpdate(request.SiteID, request.ID, request.Type, "created")

	return request, nil
}

// List 请求列表，补全活动/任务/请求人名称，查不到回退 N/A
func (s *RequestService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RequestView, int64, error) {
	requests, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}

	views := make([]entity.RequestView, 0, len(requests))
	for _, r := range requests {
		view := entity.RequestView{
			Request:       r,
			ActivityName:  "N/A",
			TaskName:      "N/A",
			RequesterName: "N/A",
		}
		if r.ActivityID != nil {
			if activity, err := s.activityRepo.FindByID(ctx, *r.ActivityID); err == nil {
				view.ActivityName = activity.Name
			}
		}
		if r.TaskID != nil {
			if task, err := s.activityRepo.FindTaskByID(ctx, *r.TaskID); err == nil {
				view.TaskName = task.Name
			}
		}
		if requester, err := s.userRepo.FindByID(ctx, r.RequestedBy); err == nil {
			view.RequesterName = requester.Name
		}
		views = append(views, view)
	}

	return views, total, nil
}

// Get 请求详情
func (s *RequestService) Get(ctx context.Context, id string) (*entity.Request, error) {
	return s.repo.FindByID(ctx, id)
}

// Approve 审批通过。PENDING/SCHEDULED均可审批。
// 终态同时归档，清除Activity在途标志并置已批准标志。
func (s *RequestService) Approve(ctx context.Context, id, operatorID, operatorName string) (*entity.Request, error) {
	return s.decide(ctx, id, entity.RequestStatusApproved, operatorID, operatorName)
}

// Reject 驳回。布线请求被驳回时关联Task置为locked。
func (s *RequestService) Reject(ctx context.Context, id, operatorID, operatorName string) (*entity.Request, error) {
	return s.decide(ctx, id, entity.RequestStatusRejected, operatorID, operatorName)
}

func (s *RequestService) decide(ctx context.Context, id, decision, operatorID, operatorName string) (*entity.Request, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Terminal() || request.Status == entity.RequestStatusCancelled {
		return nil, ErrRequestDecided
	}

	fromStatus := request.Status
	now := time.Now()
	request.Status = decision
	request.Archived = true
	request.DecidedBy = &operatorID
	request.DecidedAt = &now
	request.UpdatedAt = now

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewRequestRepository(tx).Update(ctx, request); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		if request.ActivityID != nil {
			approved := decision == entity.RequestStatusApproved
			if err := s.clearRequestFlags(ctx, tx, *request.ActivityID, request.Type, approved); err != nil {
				return err
			}
		}

		// 布线驳回: 关联任务锁定
		if decision == entity.RequestStatusRejected && request.Type == entity.RequestTypeCabling && request.TaskID != nil {
			activityRepo := repository.NewActivityRepository(tx)
			task, err := activityRepo.FindTaskByID(ctx, *request.TaskID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					s.logger.Warn("cabling reject: task not found, skipping lock",
						zap.String("request_id", request.ID),
						zap.String("task_id", *request.TaskID))
					return nil
				}
				return err
			}
			task.Status = entity.TaskStatusLocked
			task.UpdatedAt = now
			if err := activityRepo.UpdateTask(ctx, task); err != nil {
				return fmt.Errorf("lock task: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "approve"
	if decision == entity.RequestStatusRejected {
		action = "reject"
	}

	s.logRepo.LogActivity(ctx, "request", request.ID, request.Code, action, fromStatus, decision,
		fmt.Sprintf("审批请求 %s: %s", request.Code, decision), operatorID, operatorName)

	sse.PublishRequestUpdate(request.SiteID, request.ID, request.Type, action)

	if s.notifier.Enabled() {
		if err := s.notifier.RequestDecided(ctx, request.Code, request.Type, decision, operatorName); err != nil {
			s.logger.Warn("webhook notify failed", zap.String("request_id", request.ID), zap.Error(err))
		}
	}

	return request, nil
}

// Schedule 排期。仅PENDING可排期，排期后仍可审批。
func (s *RequestService) Schedule(ctx context.Context, id, operatorID, operatorName string, scheduledAt time.Time) (*entity.Request, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != entity.RequestStatusPending {
		return nil, ErrInvalidTransition
	}

	request.Status = entity.RequestStatusScheduled
	request.ScheduledBy = &operatorID
	request.ScheduledAt = &scheduledAt
	request.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("schedule request: %w", err)
	}

	s.logRepo.LogActivity(ctx, "request", request.ID, request.Code, "schedule",
		entity.RequestStatusPending, entity.RequestStatusScheduled,
		fmt.Sprintf("请求 %s 排期至 %s", request.Code, scheduledAt.Format("2006-01-02 15:04")), operatorID, operatorName)

	sse.PublishRequestUpdate(request.SiteID, request.ID, request.Type, "scheduled")

	return request, nil
}

// Cancel 请求人撤销。终态请求不可撤销，撤销后清除在途标志但不归档。
func (s *RequestService) Cancel(ctx context.Context, id, operatorID, operatorName string) (*entity.Request, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Terminal() {
		return nil, ErrRequestDecided
	}
	if request.Status == entity.RequestStatusCancelled {
		return request, nil
	}

	fromStatus := request.Status
	request.Status = entity.RequestStatusCancelled
	request.UpdatedAt = time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewRequestRepository(tx).Update(ctx, request); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		if request.ActivityID != nil {
			if err := s.setRequestedFlag(ctx, tx, *request.ActivityID, request.Type, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logRepo.LogActivity(ctx, "request", request.ID, request.Code, "cancel", fromStatus, entity.RequestStatusCancelled,
		fmt.Sprintf("撤销请求 %s", request.Code), operatorID, operatorName)

	sse.PublishRequestUpdate(request.SiteID, request.ID, request.Type, "cancelled")

	return request, nil
}

// setRequestedFlag 置位/复位Activity上对应类型的在途标志。
// 活动不存在只告警，不阻断请求本身的写入。
func (s *RequestService) setRequestedFlag(ctx context.Context, tx *gorm.DB, activityID, requestType string, requested bool) error {
	activityRepo := repository.NewActivityRepository(tx)
	activity, err := activityRepo.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("request flag update: activity not found",
				zap.String("activity_id", activityID),
				zap.String("type", requestType))
			return nil
		}
		return err
	}

	switch requestType {
	case entity.RequestTypeCabling:
		activity.CablingRequested = requested
	case entity.RequestTypeConcrete:
		activity.ConcreteRequested = requested
	case entity.RequestTypeTermination:
		activity.TerminationRequested = requested
	}
	activity.UpdatedAt = time.Now()

	return activityRepo.Update(ctx, activity)
}

// clearRequestFlags 终态时清除在途标志，批准则同时置已批准标志
func (s *RequestService) clearRequestFlags(ctx context.Context, tx *gorm.DB, activityID, requestType string, approved bool) error {
	activityRepo := repository.NewActivityRepository(tx)
	activity, err := activityRepo.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("request flag clear: activity not found",
				zap.String("activity_id", activityID),
				zap.String("type", requestType))
			return nil
		}
		return err
	}

	switch requestType {
	case entity.RequestTypeCabling:
		activity.CablingRequested = false
		if approved {
			activity.CablingApproved = true
		}
	case entity.RequestTypeConcrete:
		activity.ConcreteRequested = false
		if approved {
			activity.ConcreteApproved = true
		}
	case entity.RequestTypeTermination:
		activity.TerminationRequested = false
		if approved {
			activity.TerminationApproved = true
		}
	}
	activity.UpdatedAt = time.Now()

	return activityRepo.Update(ctx, activity)
}
