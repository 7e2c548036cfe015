package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTimesheetService(t *testing.T) (*TimesheetService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewTimesheetService(repos.Timesheet, repos.PlantAsset, time.UTC, zap.NewNop())
	return svc, db
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	svc, db := newTimesheetService(t)
	ctx := context.Background()

	testutil.SeedTestAsset(t, db, "asset-1", "PLT-2026-0001", "site-1")

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC) }

	ts, err := svc.Upsert(ctx, &UpsertTimesheetRequest{
		AssetID: "asset-1", Hours: 4, StartHour: "07:00", EndHour: "11:00",
	}, "op-1")
	if err != nil {
		t.Fatalf("Upsert create failed: %v", err)
	}
	if ts.Date != "2026-08-31" {
		t.Errorf("Date = %s, want 2026-08-31", ts.Date)
	}
	if ts.Status != entity.TimesheetStatusUnsubmitted {
		t.Errorf("Status = %s, want unsubmitted", ts.Status)
	}

	// 同设备同日再次填报: 更新同一条
	updated, err := svc.Upsert(ctx, &UpsertTimesheetRequest{
		AssetID: "asset-1", Hours: 8, StartHour: "07:00", EndHour: "15:00",
	}, "op-1")
	if err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}
	if updated.ID != ts.ID {
		t.Error("same asset+date must update in place, not create a second row")
	}
	if updated.Hours != 8 {
		t.Errorf("Hours = %v, want 8", updated.Hours)
	}
}

func TestLockAt2355AndMidnightReset(t *testing.T) {
	svc, db := newTimesheetService(t)
	ctx := context.Background()

	testutil.SeedTestAsset(t, db, "asset-1", "PLT-2026-0001", "site-1")

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC) }
	ts, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 8}, "op-1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := svc.Submit(ctx, ts.ID, "op-1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// 23:54 还不锁
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 23, 54, 0, 0, time.UTC) }
	locked, err := svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 0 {
		t.Errorf("locked %d before 23:55, want 0", locked)
	}

	// 23:55 锁定当日已提交
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 23, 55, 0, 0, time.UTC) }
	locked, err = svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 1 {
		t.Errorf("locked = %d, want 1", locked)
	}

	// 锁定后拒绝修改
	if _, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 9}, "op-1"); !errors.Is(err, ErrTimesheetLocked) {
		t.Errorf("edit after lock error = %v, want ErrTimesheetLocked", err)
	}
	if _, err := svc.Submit(ctx, ts.ID, "op-1"); !errors.Is(err, ErrTimesheetLocked) {
		t.Errorf("submit after lock error = %v, want ErrTimesheetLocked", err)
	}

	// 过零点: 新日期开新记录，不受昨日锁定影响
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC) }
	next, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 2}, "op-1")
	if err != nil {
		t.Fatalf("next-day Upsert failed: %v", err)
	}
	if next.ID == ts.ID {
		t.Error("next day must create a fresh timesheet")
	}
	if next.Date != "2026-09-01" || next.Status != entity.TimesheetStatusUnsubmitted {
		t.Errorf("next day timesheet = %s/%s, want 2026-09-01/unsubmitted", next.Date, next.Status)
	}
}

func TestLockPassIgnoresUnsubmitted(t *testing.T) {
	svc, db := newTimesheetService(t)
	ctx := context.Background()

	testutil.SeedTestAsset(t, db, "asset-1", "PLT-2026-0001", "site-1")

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC) }
	ts, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 3}, "op-1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 23, 56, 0, 0, time.UTC) }
	locked, err := svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 0 {
		t.Errorf("unsubmitted timesheet locked, want 0 locked")
	}

	got, err := svc.Get(ctx, ts.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != entity.TimesheetStatusUnsubmitted {
		t.Errorf("Status = %s, want unsubmitted", got.Status)
	}
}

func TestEditRejectedAtLockTimeWithoutPoller(t *testing.T) {
	svc, db := newTimesheetService(t)
	ctx := context.Background()

	testutil.SeedTestAsset(t, db, "asset-1", "PLT-2026-0001", "site-1")

	svc.now = func() time.Time { return time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC) }
	ts, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 6}, "op-1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// 23:56 锁定时刻已过: 即使轮询尚未落盘也直接拒绝
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 23, 56, 0, 0, time.UTC) }
	if _, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 9}, "op-1"); !errors.Is(err, ErrTimesheetLocked) {
		t.Errorf("edit at 23:56 error = %v, want ErrTimesheetLocked", err)
	}
	if _, err := svc.Submit(ctx, ts.ID, "op-1"); !errors.Is(err, ErrTimesheetLocked) {
		t.Errorf("submit at 23:56 error = %v, want ErrTimesheetLocked", err)
	}

	// 次日指定昨日日期填报: 昨日锁定时刻已过，同样拒绝
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	if _, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Date: "2026-08-31", Hours: 9}, "op-1"); !errors.Is(err, ErrTimesheetLocked) {
		t.Errorf("back-dated edit error = %v, want ErrTimesheetLocked", err)
	}

	got, err := svc.Get(ctx, ts.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Hours != 6 {
		t.Errorf("Hours = %v, want 6 (untouched)", got.Hours)
	}
}

func TestLockPassCatchesMissedDay(t *testing.T) {
	svc, db := newTimesheetService(t)
	ctx := context.Background()

	testutil.SeedTestAsset(t, db, "asset-1", "PLT-2026-0001", "site-1")

	// 昨日提交但当晚没有轮询到(如服务重启)
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC) }
	ts, err := svc.Upsert(ctx, &UpsertTimesheetRequest{AssetID: "asset-1", Hours: 8}, "op-1")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := svc.Submit(ctx, ts.ID, "op-1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// 次日白天补锁昨日，当日尚未到23:55不受影响
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	locked, err := svc.LockPass(ctx)
	if err != nil {
		t.Fatalf("LockPass failed: %v", err)
	}
	if locked != 1 {
		t.Errorf("locked = %d, want 1", locked)
	}

	got, err := svc.Get(ctx, ts.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != entity.TimesheetStatusLocked {
		t.Errorf("Status = %s, want locked", got.Status)
	}
}
