package handler

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/middleware"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
	"github.com/gridline/siteops/internal/site/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUserRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	userSvc := service.NewUserService(repos.User, repos.ActivityLog, zap.NewNop())
	qrSvc := service.NewQRCodeService(repos.User, nil, "", zap.NewNop())
	h := NewUserHandler(userSvc, qrSvc)

	r := testutil.SetupRouter()
	users := testutil.AuthGroup(r, "/api/v1/users")
	users.GET("/:id", h.Get)
	users.GET("/:id/qrcode", h.QRCode)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", middleware.RequireRole(entity.RoleMaster), h.Delete)
	r.GET("/api/v1/qr/resolve", middleware.JWTAuth(testutil.JWTSecret), h.ResolveQR)

	return r, db
}

func TestDeleteUserRequiresPIN(t *testing.T) {
	r, db := setupUserRouter(t)

	// master操作者持PIN 4321
	testutil.SeedTestUser(t, db, "master-1", "Master", "master@test.com", entity.RoleMaster, "site-1", "4321")
	testutil.SeedTestUser(t, db, "victim-1", "Victim", "victim@test.com", entity.RoleSupervisor, "site-1", "")

	token := testutil.GenerateTestToken("master-1", "Master", "master@test.com", entity.RoleMaster, "site-1")

	// 无PIN: 400
	w := testutil.DoRequest(r, "DELETE", "/api/v1/users/victim-1", nil, token)
	if w.Code != 400 {
		t.Errorf("delete without PIN: status = %d, want 400", w.Code)
	}

	// 错误PIN: 403，用户仍在
	w = testutil.DoRequest(r, "DELETE", "/api/v1/users/victim-1", map[string]string{"pin": "0000"}, token)
	if w.Code != 403 {
		t.Errorf("delete with wrong PIN: status = %d, want 403", w.Code)
	}
	var count int64
	db.Model(&entity.User{}).Where("id = ?", "victim-1").Count(&count)
	if count != 1 {
		t.Fatal("user must survive a failed PIN check")
	}

	// 正确PIN: 删除成功
	w = testutil.DoRequest(r, "DELETE", "/api/v1/users/victim-1", map[string]string{"pin": "4321"}, token)
	if w.Code != 200 {
		t.Errorf("delete with correct PIN: status = %d, body = %s", w.Code, w.Body.String())
	}
	db.Model(&entity.User{}).Where("id = ?", "victim-1").Count(&count)
	if count != 0 {
		t.Error("user must be hard-deleted after PIN confirmation")
	}
}

func TestDeleteUserRequiresMasterRole(t *testing.T) {
	r, db := setupUserRouter(t)

	testutil.SeedTestUser(t, db, "planner-1", "Planner", "planner@test.com", entity.RolePlanner, "site-1", "4321")
	testutil.SeedTestUser(t, db, "victim-1", "Victim", "victim@test.com", entity.RoleSupervisor, "site-1", "")

	token := testutil.GenerateTestToken("planner-1", "Planner", "planner@test.com", entity.RolePlanner, "site-1")
	w := testutil.DoRequest(r, "DELETE", "/api/v1/users/victim-1", map[string]string{"pin": "4321"}, token)
	if w.Code != 403 {
		t.Errorf("non-master delete: status = %d, want 403", w.Code)
	}
}

func TestUpdateUserCrossSiteForbidden(t *testing.T) {
	r, db := setupUserRouter(t)

	testutil.SeedTestUser(t, db, "planner-1", "Planner", "planner@test.com", entity.RolePlanner, "site-1", "")
	testutil.SeedTestUser(t, db, "other-1", "Other", "other@test.com", entity.RoleSupervisor, "site-2", "")

	token := testutil.GenerateTestToken("planner-1", "Planner", "planner@test.com", entity.RolePlanner, "site-1")
	w := testutil.DoRequest(r, "PUT", "/api/v1/users/other-1", map[string]string{"name": "Renamed"}, token)
	if w.Code != 403 {
		t.Errorf("cross-site update: status = %d, want 403", w.Code)
	}

	// master不受站点限制
	testutil.SeedTestUser(t, db, "master-1", "Master", "m@test.com", entity.RoleMaster, "site-1", "")
	masterToken := testutil.GenerateTestToken("master-1", "Master", "m@test.com", entity.RoleMaster, "site-1")
	w = testutil.DoRequest(r, "PUT", "/api/v1/users/other-1", map[string]string{"name": "Renamed"}, masterToken)
	if w.Code != 200 {
		t.Errorf("master cross-site update: status = %d, want 200", w.Code)
	}
}

func TestQRCodeAndResolve(t *testing.T) {
	r, db := setupUserRouter(t)

	testutil.SeedTestUser(t, db, "worker-1", "Worker", "worker@test.com", entity.RoleSupervisor, "site-1", "")
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(r, "GET", "/api/v1/users/worker-1/qrcode", nil, token)
	if w.Code != 200 {
		t.Fatalf("qrcode: status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %s, want image/png", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("qrcode body must be non-empty PNG")
	}

	// 扫码回查
	w = testutil.DoRequest(r, "GET", fmt.Sprintf("/api/v1/qr/resolve?payload=user/%s", "worker-1"), nil, token)
	if w.Code != 200 {
		t.Fatalf("resolve: status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data, _ := resp["data"].(map[string]interface{})
	if data["id"] != "worker-1" {
		t.Errorf("resolved id = %v, want worker-1", data["id"])
	}

	// 未知用户: 404
	w = testutil.DoRequest(r, "GET", "/api/v1/users/nobody/qrcode", nil, token)
	if w.Code != 404 {
		t.Errorf("qrcode for missing user: status = %d, want 404", w.Code)
	}
}
