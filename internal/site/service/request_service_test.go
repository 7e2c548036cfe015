package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gridline/siteops/internal/shared/notify"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRequestService(t *testing.T) (*RequestService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewRequestService(db, repos.Request, repos.Activity, repos.User, repos.ActivityLog,
		notify.NewClient("", 0), zap.NewNop())
	return svc, repos, db
}

func TestApproveClearsFlagAndArchives(t *testing.T) {
	svc, repos, db := newRequestService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	activityID := "act-1"
	req, err := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeConcrete,
		SiteID:     "site-1",
		ActivityID: &activityID,
	}, "user-1", "Planner One")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	activity, _ := repos.Activity.FindByID(ctx, activityID)
	if !activity.ConcreteRequested {
		t.Fatal("expected ConcreteRequested flag set after create")
	}

	decided, err := svc.Approve(ctx, req.ID, "user-2", "Approver")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if decided.Status != entity.RequestStatusApproved {
		t.Errorf("status = %s, want APPROVED", decided.Status)
	}
	if !decided.Archived {
		t.Error("approved request must be archived")
	}
	if decided.DecidedBy == nil || *decided.DecidedBy != "user-2" {
		t.Error("DecidedBy not recorded")
	}

	activity, _ = repos.Activity.FindByID(ctx, activityID)
	if activity.ConcreteRequested {
		t.Error("ConcreteRequested flag must be cleared on approve")
	}
	if !activity.ConcreteApproved {
		t.Error("ConcreteApproved flag must be set on approve")
	}
}

func TestRejectCablingLocksTask(t *testing.T) {
	svc, repos, db := newRequestService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)
	testutil.SeedTestTask(t, db, "task-1", "act-1", "site-1")

	activityID, taskID := "act-1", "task-1"
	req, err := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeCabling,
		SiteID:     "site-1",
		ActivityID: &activityID,
		TaskID:     &taskID,
	}, "user-1", "Planner One")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	decided, err := svc.Reject(ctx, req.ID, "user-2", "Approver")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if decided.Status != entity.RequestStatusRejected {
		t.Errorf("status = %s, want REJECTED", decided.Status)
	}
	if !decided.Archived {
		t.Error("rejected request must be archived")
	}

	task, _ := repos.Activity.FindTaskByID(ctx, taskID)
	if task.Status != entity.TaskStatusLocked {
		t.Errorf("task status = %s, want locked after cabling reject", task.Status)
	}

	activity, _ := repos.Activity.FindByID(ctx, activityID)
	if activity.CablingRequested {
		t.Error("CablingRequested flag must be cleared on reject")
	}
	if activity.CablingApproved {
		t.Error("CablingApproved must stay false on reject")
	}
}

func TestApproveTwiceRejected(t *testing.T) {
	svc, _, db := newRequestService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)
	activityID := "act-1"
	req, _ := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeTermination,
		SiteID:     "site-1",
		ActivityID: &activityID,
	}, "user-1", "Planner One")

	if _, err := svc.Approve(ctx, req.ID, "user-2", "Approver"); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if _, err := svc.Reject(ctx, req.ID, "user-2", "Approver"); !errors.Is(err, ErrRequestDecided) {
		t.Errorf("second decision error = %v, want ErrRequestDecided", err)
	}
}

func TestApproveWithMissingActivityStillDecides(t *testing.T) {
	svc, _, _ := newRequestService(t)
	ctx := context.Background()

	missing := "no-such-activity"
	req, err := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeConcrete,
		SiteID:     "site-1",
		ActivityID: &missing,
	}, "user-1", "Planner One")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	decided, err := svc.Approve(ctx, req.ID, "user-2", "Approver")
	if err != nil {
		t.Fatalf("Approve with missing activity should not fail: %v", err)
	}
	if decided.Status != entity.RequestStatusApproved || !decided.Archived {
		t.Error("request must still reach approved+archived when activity is gone")
	}
}

func TestScheduleThenApprove(t *testing.T) {
	svc, _, db := newRequestService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)
	activityID := "act-1"
	req, _ := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeConcrete,
		SiteID:     "site-1",
		ActivityID: &activityID,
	}, "user-1", "Planner One")

	scheduled, err := svc.Schedule(ctx, req.ID, "user-2", "Approver", req.RequestedAt.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if scheduled.Status != entity.RequestStatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", scheduled.Status)
	}
	if scheduled.Archived {
		t.Error("scheduled request must not be archived")
	}

	// 排期后仍可审批
	decided, err := svc.Approve(ctx, req.ID, "user-2", "Approver")
	if err != nil {
		t.Fatalf("Approve from SCHEDULED failed: %v", err)
	}
	if decided.Status != entity.RequestStatusApproved {
		t.Errorf("status = %s, want APPROVED", decided.Status)
	}

	// 重复排期被拒
	if _, err := svc.Schedule(ctx, req.ID, "user-2", "Approver", req.RequestedAt.AddDate(0, 0, 5)); err == nil {
		t.Error("scheduling a decided request must fail")
	}
}

func TestCancelClearsFlagWithoutArchiving(t *testing.T) {
	svc, repos, db := newRequestService(t)
	ctx := context.Background()

	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)
	activityID := "act-1"
	req, _ := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeCabling,
		SiteID:     "site-1",
		ActivityID: &activityID,
	}, "user-1", "Planner One")

	cancelled, err := svc.Cancel(ctx, req.ID, "user-1", "Planner One")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != entity.RequestStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.Archived {
		t.Error("cancelled request must not be archived")
	}

	activity, _ := repos.Activity.FindByID(ctx, activityID)
	if activity.CablingRequested {
		t.Error("CablingRequested flag must be cleared on cancel")
	}
}

func TestListEnrichmentFallsBackToNA(t *testing.T) {
	svc, _, _ := newRequestService(t)
	ctx := context.Background()

	missing := "ghost-activity"
	if _, err := svc.Create(ctx, &CreateRequestRequest{
		Type:       entity.RequestTypeConcrete,
		SiteID:     "site-9",
		ActivityID: &missing,
	}, "ghost-user", "Ghost"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	views, total, err := svc.List(ctx, 1, 20, map[string]string{"site_id": "site-9", "tab": "incoming"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(views) != 1 {
		t.Fatalf("got %d views (total %d), want 1", len(views), total)
	}
	if views[0].ActivityName != "N/A" {
		t.Errorf("ActivityName = %q, want N/A", views[0].ActivityName)
	}
	if views[0].RequesterName != "N/A" {
		t.Errorf("RequesterName = %q, want N/A", views[0].RequesterName)
	}
}
