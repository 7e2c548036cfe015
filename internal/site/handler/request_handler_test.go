package handler

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/middleware"
	"github.com/gridline/siteops/internal/shared/notify"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRequestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	svc := service.NewRequestService(db, repos.Request, repos.Activity, repos.User, repos.ActivityLog,
		notify.NewClient("", 0), zap.NewNop())
	h := NewRequestHandler(svc)

	r := testutil.SetupRouter()
	requests := testutil.AuthGroup(r, "/api/v1/requests")
	requests.GET("", h.List)
	requests.GET("/:id", h.Get)
	requests.POST("", h.Create)
	requests.POST("/:id/approve", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Approve)
	requests.POST("/:id/reject", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Reject)
	requests.POST("/:id/cancel", h.Cancel)

	return r, db
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	r, db := setupRequestRouter(t)

	testutil.SeedTestUser(t, db, "sup-1", "Supervisor", "sup@test.com", entity.RoleSupervisor, "site-1", "")
	testutil.SeedTestActivity(t, db, "act-1", "site-1", 600, 100, 3, 2)

	supToken := testutil.GenerateTestToken("sup-1", "Supervisor", "sup@test.com", entity.RoleSupervisor, "site-1")
	plannerToken := testutil.GenerateTestToken("pl-1", "Planner", "pl@test.com", entity.RolePlanner, "site-1")

	// 提交
	w := testutil.DoRequest(r, "POST", "/api/v1/requests", map[string]interface{}{
		"type":        entity.RequestTypeConcrete,
		"site_id":     "site-1",
		"activity_id": "act-1",
		"notes":       "pour bay 3",
	}, supToken)
	if w.Code != 201 {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	requestID := data["id"].(string)
	if data["status"] != entity.RequestStatusPending {
		t.Errorf("status = %v, want PENDING", data["status"])
	}

	// 待审tab可见
	w = testutil.DoRequest(r, "GET", "/api/v1/requests?site_id=site-1&tab=incoming", nil, plannerToken)
	if w.Code != 200 {
		t.Fatalf("list incoming: status = %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("incoming items = %d, want 1", len(items))
	}

	// supervisor不能审批
	w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/requests/%s/approve", requestID), nil, supToken)
	if w.Code != 403 {
		t.Errorf("supervisor approve: status = %d, want 403", w.Code)
	}

	// planner审批通过
	w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/requests/%s/approve", requestID), nil, plannerToken)
	if w.Code != 200 {
		t.Fatalf("approve: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["status"] != entity.RequestStatusApproved || data["archived"] != true {
		t.Errorf("approved request = %v/%v, want APPROVED/archived", data["status"], data["archived"])
	}

	// 待审tab清空，归档tab可见
	w = testutil.DoRequest(r, "GET", "/api/v1/requests?site_id=site-1&tab=incoming", nil, plannerToken)
	resp = testutil.ParseResponse(w)
	items = resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 0 {
		t.Errorf("incoming after approve = %d items, want 0", len(items))
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/requests?site_id=site-1&tab=archived", nil, plannerToken)
	resp = testutil.ParseResponse(w)
	items = resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("archived after approve = %d items, want 1", len(items))
	}

	// 终态后再驳回: 409
	w = testutil.DoRequest(r, "POST", fmt.Sprintf("/api/v1/requests/%s/reject", requestID), nil, plannerToken)
	if w.Code != 409 {
		t.Errorf("reject after approve: status = %d, want 409", w.Code)
	}
}

func TestCreateRequestUnknownType(t *testing.T) {
	r, _ := setupRequestRouter(t)

	token := testutil.DefaultTestToken()
	w := testutil.DoRequest(r, "POST", "/api/v1/requests", map[string]interface{}{
		"type":    "PAINT_REQUEST",
		"site_id": "site-1",
	}, token)
	if w.Code != 400 {
		t.Errorf("unknown type: status = %d, want 400", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Errorf("unknown type: code = %v, want 40000", resp["code"])
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	r, _ := setupRequestRouter(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/requests", nil, "")
	if w.Code != 401 {
		t.Errorf("unauthenticated list: status = %d, want 401", w.Code)
	}
}
