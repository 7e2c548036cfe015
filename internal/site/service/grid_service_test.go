package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newGridService(t *testing.T) (*GridService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	// rdb为nil: 测试走直算路径，不经缓存
	svc := NewGridService(repos.Grid, repos.Activity, nil, 12, time.UTC, zap.NewNop())
	return svc, db
}

func cellRefs(refs ...[2]int) []CellRef {
	out := make([]CellRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, CellRef{Column: r[0], Row: r[1]})
	}
	return out
}

func TestRollupPercentage(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	// 3x2网格，scope 600，每格100: 4格完成 → 400/600 ≈ 66.67%
	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	result, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{
		Cells: cellRefs([2]int{0, 0}, [2]int{1, 0}, [2]int{2, 0}, [2]int{0, 1}),
	}, "user-1")
	if err != nil {
		t.Fatalf("MarkCells failed: %v", err)
	}
	if result.Marked != 4 {
		t.Errorf("Marked = %d, want 4", result.Marked)
	}

	rollup := result.Rollup
	if rollup.CompletedCells != 4 {
		t.Errorf("CompletedCells = %d, want 4", rollup.CompletedCells)
	}
	if rollup.UnverifiedTotal != 400 {
		t.Errorf("UnverifiedTotal = %v, want 400", rollup.UnverifiedTotal)
	}
	if math.Abs(rollup.Percentage-66.666) > 0.01 {
		t.Errorf("Percentage = %v, want ~66.67", rollup.Percentage)
	}
}

func TestMarkCellsSkipsCompleted(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	if _, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{Cells: cellRefs([2]int{0, 0})}, "user-1"); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}

	// 重复标记: 跳过而不报错，进度不回退也不重复计数
	result, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{
		Cells: cellRefs([2]int{0, 0}, [2]int{1, 0}),
	}, "user-1")
	if err != nil {
		t.Fatalf("second mark failed: %v", err)
	}
	if result.Marked != 1 || result.Skipped != 1 {
		t.Errorf("Marked=%d Skipped=%d, want 1/1", result.Marked, result.Skipped)
	}
	if result.Rollup.CompletedCells != 2 {
		t.Errorf("CompletedCells = %d, want 2", result.Rollup.CompletedCells)
	}
}

func TestRollupZeroScope(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-z", "site-1", 0, 100, 2, 2)

	result, err := svc.MarkCells(ctx, "act-z", &MarkCellsRequest{Cells: cellRefs([2]int{0, 0})}, "user-1")
	if err != nil {
		t.Fatalf("MarkCells failed: %v", err)
	}
	if result.Rollup.Percentage != 0 {
		t.Errorf("zero scope Percentage = %v, want 0", result.Rollup.Percentage)
	}
}

func TestRollupCappedAt100(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	// scope 150，每格100: 2格完成 → 200/150 封顶100
	testutil.SeedTestActivity(t, db, "act-c", "site-1", 150, 100, 2, 1)

	result, err := svc.MarkCells(ctx, "act-c", &MarkCellsRequest{
		Cells: cellRefs([2]int{0, 0}, [2]int{1, 0}),
	}, "user-1")
	if err != nil {
		t.Fatalf("MarkCells failed: %v", err)
	}
	if result.Rollup.Percentage != 100 {
		t.Errorf("Percentage = %v, want capped at 100", result.Rollup.Percentage)
	}
}

func TestMarkCellOutOfRange(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	if _, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{Cells: cellRefs([2]int{3, 0})}, "user-1"); err == nil {
		t.Error("column beyond grid must be rejected")
	}
	if _, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{Cells: cellRefs([2]int{0, 2})}, "user-1"); err == nil {
		t.Error("row beyond grid must be rejected")
	}
}

func TestLockPassRespectsCutoff(t *testing.T) {
	svc, db := newGridService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	morning := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return morning }

	if _, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{Cells: cellRefs([2]int{0, 0})}, "user-1"); err != nil {
		t.Fatalf("MarkCells failed: %v", err)
	}

	// 截止时刻(12点)之前不锁
	locked, err := svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 0 {
		t.Errorf("locked %d cells before cutoff, want 0", locked)
	}

	// 过了截止时刻，上午完成的格子被锁定
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 1, 0, 0, time.UTC) }
	locked, err = svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 1 {
		t.Errorf("locked = %d, want 1", locked)
	}

	// 锁定后再标记同一格: 跳过
	result, err := svc.MarkCells(ctx, "act-1", &MarkCellsRequest{Cells: cellRefs([2]int{0, 0})}, "user-1")
	if err != nil {
		t.Fatalf("MarkCells after lock failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("locked cell must be skipped, Skipped=%d", result.Skipped)
	}

	var cell entity.GridCell
	if err := db.Where("activity_id = ? AND grid_column = ? AND grid_row = ?", "act-1", 0, 0).First(&cell).Error; err != nil {
		t.Fatalf("load cell: %v", err)
	}
	if !cell.IsLocked || cell.LockedAt == nil {
		t.Error("cell must be locked with LockedAt set")
	}
}
