package service

import (
	"context"
	"testing"
	"time"

	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
)

func newEmployeeService(t *testing.T) *EmployeeService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewEmployeeService(repos.Employee, repos.Company, repos.ActivityLog, zap.NewNop())
}

func TestRecordInductionDefaultsTwelveMonths(t *testing.T) {
	svc := newEmployeeService(t)
	ctx := context.Background()

	emp, err := svc.Create(ctx, &CreateEmployeeRequest{
		SiteID: "site-1",
		Name:   "Jo Sparks",
		Trade:  "electrician",
	}, "user-1", "Planner")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if emp.Inducted {
		t.Error("new employee must start uninducted")
	}

	updated, err := svc.RecordInduction(ctx, emp.ID, &RecordInductionRequest{
		InductionDate: "2026-08-01",
	}, "user-1", "Planner")
	if err != nil {
		t.Fatalf("RecordInduction failed: %v", err)
	}
	if !updated.Inducted {
		t.Error("Inducted must be set")
	}
	if updated.InductionExpiry == nil || updated.InductionExpiry.Format("2006-01-02") != "2027-08-01" {
		t.Errorf("expiry = %v, want 2027-08-01", updated.InductionExpiry)
	}
}

func TestExpiringInductionsWindow(t *testing.T) {
	svc := newEmployeeService(t)
	ctx := context.Background()

	soon, err := svc.Create(ctx, &CreateEmployeeRequest{SiteID: "site-1", Name: "Soon"}, "u", "U")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	far, err := svc.Create(ctx, &CreateEmployeeRequest{SiteID: "site-1", Name: "Far"}, "u", "U")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// soon: 10天后到期；far: 11个月后到期
	soonDate := time.Now().AddDate(-1, 0, 10).Format("2006-01-02")
	farDate := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	if _, err := svc.RecordInduction(ctx, soon.ID, &RecordInductionRequest{InductionDate: soonDate}, "u", "U"); err != nil {
		t.Fatalf("RecordInduction failed: %v", err)
	}
	if _, err := svc.RecordInduction(ctx, far.ID, &RecordInductionRequest{InductionDate: farDate}, "u", "U"); err != nil {
		t.Fatalf("RecordInduction failed: %v", err)
	}

	expiring, err := svc.ExpiringInductions(ctx, "site-1", 30)
	if err != nil {
		t.Fatalf("ExpiringInductions failed: %v", err)
	}
	if len(expiring) != 1 {
		t.Fatalf("expiring = %d employees, want 1", len(expiring))
	}
	if expiring[0].ID != soon.ID {
		t.Errorf("expiring employee = %s, want %s", expiring[0].ID, soon.ID)
	}
}

func TestArchiveHidesFromDefaultList(t *testing.T) {
	svc := newEmployeeService(t)
	ctx := context.Background()

	emp, err := svc.Create(ctx, &CreateEmployeeRequest{SiteID: "site-1", Name: "Leaver"}, "u", "U")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Archive(ctx, emp.ID, "u", "U"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	items, total, err := svc.List(ctx, 1, 20, map[string]string{"site_id": "site-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("archived employee still listed: %d items", len(items))
	}

	// archived=true 时可见
	items, _, err = svc.List(ctx, 1, 20, map[string]string{"site_id": "site-1", "archived": "true"})
	if err != nil {
		t.Fatalf("List archived failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("archived filter = %d items, want 1", len(items))
	}
}
