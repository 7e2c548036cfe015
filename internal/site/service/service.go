package service

import (
	"time"

	"github.com/gridline/siteops/internal/config"
	"github.com/gridline/siteops/internal/shared/notify"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth       *AuthService
	User       *UserService
	Employee   *EmployeeService
	PlantAsset *PlantAssetService
	Timesheet  *TimesheetService
	Activity   *ActivityService
	Request    *RequestService
	Grid       *GridService
	QRCode     *QRCodeService
	Export     *ExportService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化Webhook通知客户端
	notifier := notify.NewClient(cfg.Notify.WebhookURL, cfg.Notify.Timeout)

	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio init failed, object storage disabled", zap.Error(err))
			minioClient = nil
		}
	}

	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		logger.Warn("invalid site timezone, falling back to local",
			zap.String("timezone", cfg.Site.Timezone), zap.Error(err))
		loc = time.Local
	}

	return &Services{
		Auth:       NewAuthService(repos.User, rdb, cfg),
		User:       NewUserService(repos.User, repos.ActivityLog, logger),
		Employee:   NewEmployeeService(repos.Employee, repos.Company, repos.ActivityLog, logger),
		PlantAsset: NewPlantAssetService(repos.PlantAsset, repos.User, repos.ActivityLog, logger),
		Timesheet:  NewTimesheetService(repos.Timesheet, repos.PlantAsset, loc, logger),
		Activity:   NewActivityService(repos.Activity, repos.ActivityLog),
		Request:    NewRequestService(db, repos.Request, repos.Activity, repos.User, repos.ActivityLog, notifier, logger),
		Grid:       NewGridService(repos.Grid, repos.Activity, rdb, cfg.Site.GridLockCutoffHour, loc, logger),
		QRCode:     NewQRCodeService(repos.User, minioClient, cfg.MinIO.Bucket, logger),
		Export:     NewExportService(repos.Employee, repos.Company, repos.Timesheet, repos.PlantAsset, repos.User),
	}
}
