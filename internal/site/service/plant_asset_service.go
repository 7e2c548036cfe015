package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"go.uber.org/zap"
)

// PlantAssetService 设备资产服务
type PlantAssetService struct {
	repo     *repository.PlantAssetRepository
	userRepo *repository.UserRepository
	logRepo  *repository.ActivityLogRepository
	logger   *zap.Logger
}

// NewPlantAssetService 创建设备资产服务
func NewPlantAssetService(repo *repository.PlantAssetRepository, userRepo *repository.UserRepository, logRepo *repository.ActivityLogRepository, logger *zap.Logger) *PlantAssetService {
	return &PlantAssetService{repo: repo, userRepo: userRepo, logRepo: logRepo, logger: logger}
}

// CreatePlantAssetRequest 创建设备请求
type CreatePlantAssetRequest struct {
	SiteID       string  `json:"site_id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category"`
	Registration string  `json:"registration"`
	OperatorID   string  `json:"operator_id"`
	ServiceDue   string  `json:"service_due"` // 2006-01-02
	VASListed    bool    `json:"vas_listed"`
	VASRate      float64 `json:"vas_rate"`
	Notes        string  `json:"notes"`
}

// UpdatePlantAssetRequest 更新设备请求
type UpdatePlantAssetRequest struct {
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	Registration *string  `json:"registration"`
	OperatorID   *string  `json:"operator_id"`
	ServiceDue   *string  `json:"service_due"`
	Locked       *bool    `json:"locked"`
	VASListed    *bool    `json:"vas_listed"`
	VASRate      *float64 `json:"vas_rate"`
	Notes        *string  `json:"notes"`
}

// PlantAssetView 设备列表视图，附带操作员名称
type PlantAssetView struct {
	entity.PlantAsset
	OperatorName string `json:"operator_name"`
}

// List 设备列表，操作员名称逐条补全，查不到则回退 N/A
func (s *PlantAssetService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]PlantAssetView, int64, error) {
	assets, total, err := s.repo.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}

	views := make([]PlantAssetView, 0, len(assets))
	for _, a := range assets {
		view := PlantAssetView{PlantAsset: a, OperatorName: "N/A"}
		if a.OperatorID != "" {
			if op, err := s.userRepo.FindByID(ctx, a.OperatorID); err == nil {
				view.OperatorName = op.Name
			}
		}
		views = append(views, view)
	}

	return views, total, nil
}

// Get 设备详情
func (s *PlantAssetService) Get(ctx context.Context, id string) (*entity.PlantAsset, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建设备，自动生成编号
func (s *PlantAssetService) Create(ctx context.Context, req *CreatePlantAssetRequest, operatorID, operatorName string) (*entity.PlantAsset, error) {
	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	asset := &entity.PlantAsset{
		ID:           uuid.New().String()[:32],
		SiteID:       req.SiteID,
		Code:         code,
		Name:         req.Name,
		Category:     req.Category,
		Registration: req.Registration,
		OperatorID:   req.OperatorID,
		VASListed:    req.VASListed,
		VASRate:      req.VASRate,
		Notes:        req.Notes,
		CreatedBy:    operatorID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if req.ServiceDue != "" {
		due, err := time.Parse("2006-01-02", req.ServiceDue)
		if err != nil {
			return nil, fmt.Errorf("invalid service due date: %s", req.ServiceDue)
		}
		asset.ServiceDue = &due
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	s.logRepo.LogActivity(ctx, "asset", asset.ID, asset.Code, "create", "", "",
		fmt.Sprintf("创建设备 %s (%s)", asset.Name, asset.Code), operatorID, operatorName)

	return asset, nil
}

// Update 更新设备
func (s *PlantAssetService) Update(ctx context.Context, id string, req *UpdatePlantAssetRequest, operatorID, operatorName string) (*entity.PlantAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.Category != nil {
		asset.Category = *req.Category
	}
	if req.Registration != nil {
		asset.Registration = *req.Registration
	}
	if req.OperatorID != nil {
		asset.OperatorID = *req.OperatorID
	}
	if req.ServiceDue != nil {
		if *req.ServiceDue == "" {
			asset.ServiceDue = nil
		} else {
			due, err := time.Parse("2006-01-02", *req.ServiceDue)
			if err != nil {
				return nil, fmt.Errorf("invalid service due date: %s", *req.ServiceDue)
			}
			asset.ServiceDue = &due
		}
	}
	if req.Locked != nil {
		asset.Locked = *req.Locked
	}
	if req.VASListed != nil {
		asset.VASListed = *req.VASListed
	}
	if req.VASRate != nil {
		asset.VASRate = *req.VASRate
	}
	if req.Notes != nil {
		asset.Notes = *req.Notes
	}
	asset.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}

	s.logRepo.LogActivity(ctx, "asset", asset.ID, asset.Code, "update", "", "",
		fmt.Sprintf("更新设备 %s", asset.Name), operatorID, operatorName)

	return asset, nil
}

// Archive 归档设备(软删除)，已归档设备不出现在默认列表
func (s *PlantAssetService) Archive(ctx context.Context, id, operatorID, operatorName string) error {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.Archived {
		return nil
	}
	asset.Archived = true
	asset.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, asset); err != nil {
		return fmt.Errorf("archive asset: %w", err)
	}

	s.logRepo.LogActivity(ctx, "asset", asset.ID, asset.Code, "archive", "", "",
		fmt.Sprintf("归档设备 %s", asset.Name), operatorID, operatorName)

	return nil
}

// SetVASListing 上架/下架设备租赁市场
func (s *PlantAssetService) SetVASListing(ctx context.Context, id string, listed bool, rate float64, operatorID, operatorName string) (*entity.PlantAsset, error) {
	asset, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	asset.VASListed = listed
	if listed && rate > 0 {
		asset.VASRate = rate
	}
	asset.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("update vas listing: %w", err)
	}

	action := "vas_delist"
	if listed {
		action = "vas_list"
	}
	s.logRepo.LogActivity(ctx, "asset", asset.ID, asset.Code, action, "", "",
		fmt.Sprintf("设备 %s VAS挂牌状态: %v", asset.Name, listed), operatorID, operatorName)

	return asset, nil
}
