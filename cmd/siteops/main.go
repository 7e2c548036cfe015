package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gridline/siteops/internal/config"
	"github.com/gridline/siteops/internal/middleware"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/handler"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/gridline/siteops/internal/site/service"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting siteops service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Database migration failed", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, token refresh and rollup cache degraded", zap.Error(err))
	}

	// 依赖装配
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	// 后台轮询: 网格锁定、工时表锁定
	pollerCtx, cancelPollers := context.WithCancel(context.Background())
	go services.Grid.RunLockPoller(pollerCtx, 60*time.Second)
	go services.Timesheet.RunLockPoller(pollerCtx, 30*time.Second)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	cancelPollers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func migrate(db *gorm.DB, zapLogger *zap.Logger) error {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Company{},
		&entity.Employee{},
		&entity.PlantAsset{},
		&entity.AssetTimesheet{},
		&entity.Activity{},
		&entity.Task{},
		&entity.Request{},
		&entity.GridCell{},
		&entity.ActivityLog{},
	); err != nil {
		return err
	}

	// AutoMigrate不收紧已有列，补充约束用原始SQL
	migrationSQL := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_timesheet_asset_date ON asset_timesheets(asset_id, date)",
		"CREATE INDEX IF NOT EXISTS idx_requests_archived_status ON requests(archived, status)",
		"CREATE INDEX IF NOT EXISTS idx_grid_cells_locked ON grid_cells(is_locked) WHERE is_locked = false",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}

	zapLogger.Info("Database migration completed")
	return nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// SSE 实时推送（需要认证，支持 query param token）
		sseGroup := v1.Group("/sse")
		sseGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			sseGroup.GET("/events", h.SSE.Stream)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 扫码回查
			authorized.GET("/qr/resolve", h.User.ResolveQR)

			// 用户管理
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.GET("/:id/qrcode", h.User.QRCode)
				users.POST("/me/password", h.User.ChangePassword)
				users.POST("", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.User.Create)
				users.PUT("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.User.Update)
				users.DELETE("/:id", middleware.RequireRole(entity.RoleMaster), h.User.Delete)
			}

			// 工人档案
			employees := authorized.Group("/employees")
			{
				employees.GET("", h.Employee.List)
				employees.GET("/inductions/expiring", h.Employee.ExpiringInductions)
				employees.GET("/:id", h.Employee.Get)
				employees.POST("", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner, entity.RoleSupervisor, entity.RoleHSE), h.Employee.Create)
				employees.PUT("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner, entity.RoleSupervisor, entity.RoleHSE), h.Employee.Update)
				employees.POST("/:id/induction", middleware.RequireRole(entity.RoleMaster, entity.RoleHSE), h.Employee.RecordInduction)
				employees.DELETE("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Employee.Archive)
			}

			// 公司
			companies := authorized.Group("/companies")
			{
				companies.GET("", h.Employee.ListCompanies)
				companies.POST("", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Employee.CreateCompany)
			}

			// 设备资产
			assets := authorized.Group("/assets")
			{
				assets.GET("", h.PlantAsset.List)
				assets.GET("/:id", h.PlantAsset.Get)
				assets.POST("", middleware.RequireRole(entity.RoleMaster, entity.RolePlantManager), h.PlantAsset.Create)
				assets.PUT("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlantManager), h.PlantAsset.Update)
				assets.DELETE("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlantManager), h.PlantAsset.Archive)
				assets.POST("/:id/vas", middleware.RequireRole(entity.RoleMaster, entity.RolePlantManager), h.PlantAsset.SetVASListing)
			}

			// 工时表
			timesheets := authorized.Group("/timesheets")
			{
				timesheets.GET("", h.Timesheet.List)
				timesheets.GET("/today", h.Timesheet.Today)
				timesheets.POST("", h.Timesheet.Upsert)
				timesheets.POST("/:id/submit", h.Timesheet.Submit)
			}

			// 活动与任务
			activities := authorized.Group("/activities")
			{
				activities.GET("", h.Activity.List)
				activities.GET("/:id", h.Activity.Get)
				activities.POST("", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Activity.Create)
				activities.PUT("/:id", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Activity.Update)
				activities.GET("/:id/tasks", h.Activity.ListTasks)
				activities.POST("/:id/tasks", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Activity.CreateTask)

				// 网格进度
				activities.GET("/:id/grid", h.Grid.ListCells)
				activities.GET("/:id/grid/rollup", h.Grid.Rollup)
				activities.POST("/:id/grid/complete", middleware.RequireRole(entity.RoleMaster, entity.RoleSupervisor), h.Grid.MarkCells)
			}

			tasks := authorized.Group("/tasks")
			{
				tasks.PUT("/:id/status", h.Activity.UpdateTaskStatus)
			}

			// 审批请求
			requests := authorized.Group("/requests")
			{
				requests.GET("", h.Request.List)
				requests.GET("/:id", h.Request.Get)
				requests.POST("", h.Request.Create)
				requests.POST("/:id/approve", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Request.Approve)
				requests.POST("/:id/reject", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Request.Reject)
				requests.POST("/:id/schedule", middleware.RequireRole(entity.RoleMaster, entity.RolePlanner), h.Request.Schedule)
				requests.POST("/:id/cancel", h.Request.Cancel)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/employees", h.Export.ExportEmployees)
				export.GET("/timesheets", h.Export.ExportTimesheets)
			}
		}
	}
}
