package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"github.com/minio/minio-go/v7"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// qrPayload 身份卡二维码内容格式
func qrPayload(userID string) string {
	return "user/" + userID
}

// QRCodeService 身份卡二维码服务。
// 二维码内容为 user/{id}，扫码端据此换取用户档案。
type QRCodeService struct {
	userRepo    *repository.UserRepository
	minioClient *minio.Client
	bucket      string
	logger      *zap.Logger
}

// NewQRCodeService 创建二维码服务
func NewQRCodeService(userRepo *repository.UserRepository, minioClient *minio.Client, bucket string, logger *zap.Logger) *QRCodeService {
	return &QRCodeService{userRepo: userRepo, minioClient: minioClient, bucket: bucket, logger: logger}
}

// IDCard 身份卡数据
type IDCard struct {
	User    *entity.User `json:"user"`
	Payload string       `json:"payload"`
	PNG     []byte       `json:"-"`
}

// Generate 生成用户身份卡二维码PNG，MinIO可用时同步存档
func (s *QRCodeService) Generate(ctx context.Context, userID string, size int) (*IDCard, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = 256
	}

	payload := qrPayload(user.ID)
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	if s.minioClient != nil {
		objectName := fmt.Sprintf("qrcards/%s.png", user.ID)
		_, err = s.minioClient.PutObject(ctx, s.bucket, objectName,
			bytes.NewReader(png), int64(len(png)),
			minio.PutObjectOptions{ContentType: "image/png"})
		if err != nil {
			// 存档失败不影响下发
			s.logger.Warn("qr card archive failed", zap.String("object", objectName), zap.Error(err))
			return &IDCard{User: user, Payload: payload, PNG: png}, nil
		}
	}

	return &IDCard{User: user, Payload: payload, PNG: png}, nil
}

// Resolve 扫码端回查: 根据二维码内容取用户档案
func (s *QRCodeService) Resolve(ctx context.Context, payload string) (*entity.User, error) {
	var userID string
	if _, err := fmt.Sscanf(payload, "user/%s", &userID); err != nil || userID == "" {
		return nil, fmt.Errorf("invalid qr payload: %s", payload)
	}
	return s.userRepo.FindByID(ctx, userID)
}
