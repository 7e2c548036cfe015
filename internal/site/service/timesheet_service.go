package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/sse"
	"go.uber.org/zap"
)

// ErrTimesheetLocked 工时表已锁定不可修改
var ErrTimesheetLocked = errors.New("timesheet is locked")

// 每日锁定时刻 23:55 本地时间
const (
	lockHour   = 23
	lockMinute = 55
)

// TimesheetService 设备工时表服务。
// 每日23:55(站点时区)锁定已提交工时，过零点后新日期自然重开。
type TimesheetService struct {
	repo      *repository.TimesheetRepository
	assetRepo *repository.PlantAssetRepository
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimesheetService 创建工时表服务
func NewTimesheetService(repo *repository.TimesheetRepository, assetRepo *repository.PlantAssetRepository, loc *time.Location, logger *zap.Logger) *TimesheetService {
	if loc == nil {
		loc = time.Local
	}
	return &TimesheetService{
		repo:      repo,
		assetRepo: assetRepo,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// UpsertTimesheetRequest 填报工时请求
type UpsertTimesheetRequest struct {
	AssetID   string  `json:"asset_id" binding:"required"`
	Date      string  `json:"date"` // 缺省为当日
	Hours     float64 `json:"hours" binding:"min=0,max=24"`
	StartHour string  `json:"start_hour"`
	EndHour   string  `json:"end_hour"`
	Notes     string  `json:"notes"`
}

// List 工时表列表
func (s *TimesheetService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AssetTimesheet, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 工时表详情
func (s *TimesheetService) Get(ctx context.Context, id string) (*entity.AssetTimesheet, error) {
	return s.repo.FindByID(ctx, id)
}

// Today 当日某设备的工时表，不存在返回ErrNotFound
func (s *TimesheetService) Today(ctx context.Context, assetID string) (*entity.AssetTimesheet, error) {
	date := s.now().In(s.loc).Format("2006-01-02")
	return s.repo.FindByAssetAndDate(ctx, assetID, date)
}

// Upsert 填报/修改工时。同一设备同一日期只有一条记录，锁定后拒绝修改。
func (s *TimesheetService) Upsert(ctx context.Context, req *UpsertTimesheetRequest, operatorID string) (*entity.AssetTimesheet, error) {
	asset, err := s.assetRepo.FindByID(ctx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("asset not found: %w", err)
	}

	now := s.now().In(s.loc)
	date := req.Date
	if date == "" {
		date = now.Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date: %s", date)
	}
	if s.pastLock(date, now) {
		return nil, ErrTimesheetLocked
	}

	ts, err := s.repo.FindByAssetAndDate(ctx, req.AssetID, date)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		ts = &entity.AssetTimesheet{
			ID:         uuid.New().String()[:32],
			AssetID:    req.AssetID,
			OperatorID: operatorID,
			SiteID:     asset.SiteID,
			Date:       date,
			Hours:      req.Hours,
			StartHour:  req.StartHour,
			EndHour:    req.EndHour,
			Status:     entity.TimesheetStatusUnsubmitted,
			Notes:      req.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, ts); err != nil {
			return nil, fmt.Errorf("create timesheet: %w", err)
		}
		return ts, nil
	}

	if ts.Status == entity.TimesheetStatusLocked {
		return nil, ErrTimesheetLocked
	}

	ts.Hours = req.Hours
	ts.StartHour = req.StartHour
	ts.EndHour = req.EndHour
	ts.Notes = req.Notes
	ts.UpdatedAt = now

	if err := s.repo.Update(ctx, ts); err != nil {
		return nil, fmt.Errorf("update timesheet: %w", err)
	}

	return ts, nil
}

// Submit 提交工时表，锁定前仍可修改再提交
func (s *TimesheetService) Submit(ctx context.Context, id, operatorID string) (*entity.AssetTimesheet, error) {
	ts, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.Status == entity.TimesheetStatusLocked {
		return nil, ErrTimesheetLocked
	}

	now := s.now().In(s.loc)
	if s.pastLock(ts.Date, now) {
		return nil, ErrTimesheetLocked
	}
	ts.Status = entity.TimesheetStatusSubmitted
	ts.SubmittedAt = &now
	ts.UpdatedAt = now

	if err := s.repo.Update(ctx, ts); err != nil {
		return nil, fmt.Errorf("submit timesheet: %w", err)
	}

	sse.PublishTimesheetUpdate(ts.SiteID, ts.ID, "submitted")

	return ts, nil
}

// pastLock 判断某日期的锁定时刻(当日23:55本地时间)是否已到。
// 写入路径直接依据墙钟判定，不等轮询落盘locked状态。
func (s *TimesheetService) pastLock(date string, now time.Time) bool {
	d, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return true
	}
	lockAt := time.Date(d.Year(), d.Month(), d.Day(), lockHour, lockMinute, 0, 0, s.loc)
	return !now.Before(lockAt)
}

// LockPass 锁定一轮: 对锁定时刻已过的日期批量落盘已提交工时的locked状态。
// 23:55前只追补昨日及更早，23:55后连当日一并锁定。
func (s *TimesheetService) LockPass(ctx context.Context) (int64, error) {
	now := s.now().In(s.loc)
	lockAt := time.Date(now.Year(), now.Month(), now.Day(), lockHour, lockMinute, 0, 0, s.loc)
	through := now
	if now.Before(lockAt) {
		through = now.AddDate(0, 0, -1)
	}
	return s.repo.LockSubmittedThrough(ctx, through.Format("2006-01-02"))
}

// RunLockPoller 后台锁定轮询，默认30秒一轮，ctx取消后退出
func (s *TimesheetService) RunLockPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			locked, err := s.LockPass(ctx)
			if err != nil {
				s.logger.Error("timesheet lock pass failed", zap.Error(err))
				continue
			}
			if locked > 0 {
				s.logger.Info("timesheets locked", zap.Int64("count", locked))
			}
		}
	}
}
