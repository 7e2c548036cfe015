package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/sse"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rollupCacheTTL = 60 * time.Second

// GridService 网格进度服务。
// 汇总值: unverifiedTotal = 完成格数 × 每格价值，百分比封顶100，零scope恒为0。
// 已完成单元格在每日截止时刻(默认正午)后由后台轮询批量锁定。
type GridService struct {
	repo         *repository.GridRepository
	activityRepo *repository.ActivityRepository
	rdb          *redis.Client
	cutoffHour   int
	loc          *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

// NewGridService 创建网格进度服务
func NewGridService(repo *repository.GridRepository, activityRepo *repository.ActivityRepository, rdb *redis.Client, cutoffHour int, loc *time.Location, logger *zap.Logger) *GridService {
	if loc == nil {
		loc = time.Local
	}
	return &GridService{
		repo:         repo,
		activityRepo: activityRepo,
		rdb:          rdb,
		cutoffHour:   cutoffHour,
		loc:          loc,
		logger:       logger,
		now:          time.Now,
	}
}

// CellRef 单元格坐标
type CellRef struct {
	Column int `json:"column" binding:"min=0"`
	Row    int `json:"row" binding:"min=0"`
}

// MarkCellsRequest 批量标记完成请求
type MarkCellsRequest struct {
	Cells []CellRef `json:"cells" binding:"required,min=1"`
}

// MarkCellsResult 批量标记结果
type MarkCellsResult struct {
	Marked  int                `json:"marked"`
	Skipped int                `json:"skipped"` // 已完成或已锁定
	Rollup  *entity.GridRollup `json:"rollup"`
}

// ListCells 活动的全部单元格
func (s *GridService) ListCells(ctx context.Context, activityID string) ([]entity.GridCell, error) {
	if _, err := s.activityRepo.FindByID(ctx, activityID); err != nil {
		return nil, err
	}
	return s.repo.FindByActivity(ctx, activityID)
}

// MarkCells 批量标记单元格完成。已完成/已锁定的单元格跳过，只前进不回退。
func (s *GridService) MarkCells(ctx context.Context, activityID string, req *MarkCellsRequest, operatorID string) (*MarkCellsResult, error) {
	activity, err := s.activityRepo.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	result := &MarkCellsResult{}
	now := s.now()

	for _, ref := range req.Cells {
		if activity.GridColumns > 0 && ref.Column >= activity.GridColumns {
			return nil, fmt.Errorf("column %d out of range (grid has %d columns)", ref.Column, activity.GridColumns)
		}
		if activity.GridRows > 0 && ref.Row >= activity.GridRows {
			return nil, fmt.Errorf("row %d out of range (grid has %d rows)", ref.Row, activity.GridRows)
		}

		cell, err := s.repo.FindCell(ctx, activityID, ref.Column, ref.Row)
		if err != nil {
			if err != repository.ErrNotFound {
				return nil, err
			}
			// 首次标记时才落库
			cell = &entity.GridCell{
				ID:         uuid.New().String()[:32],
				ActivityID: activityID,
				GridColumn: ref.Column,
				GridRow:    ref.Row,
				CreatedAt:  now,
			}
			s.completeCell(cell, activity.ValuePerCell, operatorID, now)
			if err := s.repo.Create(ctx, cell); err != nil {
				return nil, fmt.Errorf("create cell: %w", err)
			}
			result.Marked++
			continue
		}

		if cell.Status == entity.GridCellStatusCompleted || cell.IsLocked {
			result.Skipped++
			continue
		}

		s.completeCell(cell, activity.ValuePerCell, operatorID, now)
		if err := s.repo.Update(ctx, cell); err != nil {
			return nil, fmt.Errorf("update cell: %w", err)
		}
		result.Marked++
	}

	// 缓存失效后重算
	s.invalidateRollup(ctx, activityID)
	rollup, err := s.Rollup(ctx, activityID)
	if err != nil {
		return nil, err
	}
	result.Rollup = rollup

	sse.PublishGridUpdate(activity.SiteID, activityID, rollup.CompletedCells)

	return result, nil
}

func (s *GridService) completeCell(cell *entity.GridCell, valuePerCell float64, operatorID string, now time.Time) {
	cell.Status = entity.GridCellStatusCompleted
	cell.CompletedValue = valuePerCell
	cell.CompletedBy = operatorID
	cell.CompletedAt = &now
	cell.UpdatedAt = now
}

// Rollup 进度汇总，Redis缓存60秒
func (s *GridService) Rollup(ctx context.Context, activityID string) (*entity.GridRollup, error) {
	cacheKey := "grid:rollup:" + activityID
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var rollup entity.GridRollup
			if json.Unmarshal([]byte(cached), &rollup) == nil {
				return &rollup, nil
			}
		}
	}

	activity, err := s.activityRepo.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.CountCompleted(ctx, activityID)
	if err != nil {
		return nil, err
	}

	rollup := &entity.GridRollup{
		ActivityID:      activityID,
		TotalCells:      activity.GridColumns * activity.GridRows,
		CompletedCells:  int(completed),
		UnverifiedTotal: float64(completed) * activity.ValuePerCell,
	}
	if activity.ScopeValue > 0 {
		pct := rollup.UnverifiedTotal / activity.ScopeValue * 100
		if pct > 100 {
			pct = 100
		}
		rollup.Percentage = pct
	}

	if s.rdb != nil {
		if data, err := json.Marshal(rollup); err == nil {
			s.rdb.Set(ctx, cacheKey, data, rollupCacheTTL)
		}
	}

	return rollup, nil
}

func (s *GridService) invalidateRollup(ctx context.Context, activityID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, "grid:rollup:"+activityID)
	}
}

// LockPass 锁定一轮: 当前时间过了当日截止时刻后，锁定截止时刻前完成的单元格
func (s *GridService) LockPass(ctx context.Context) (int64, error) {
	now := s.now().In(s.loc)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.cutoffHour, 0, 0, 0, s.loc)
	if now.Before(cutoff) {
		return 0, nil
	}
	return s.repo.LockCompletedBefore(ctx, cutoff)
}

// RunLockPoller 后台锁定轮询，默认60秒一轮，ctx取消后退出
func (s *GridService) RunLockPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
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
				s.logger.Error("grid lock pass failed", zap.Error(err))
				continue
			}
			if locked > 0 {
				s.logger.Info("grid cells locked", zap.Int64("count", locked))
			}
		}
	}
}
