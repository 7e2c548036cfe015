package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gridline/siteops/internal/site/entity"
	"github.com/gridline/siteops/internal/site/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPINMismatch PIN校验失败
	ErrPINMismatch = errors.New("pin verification failed")
	// ErrCrossSite 跨站点操作被拒绝
	ErrCrossSite = errors.New("cross-site operation not permitted")
)

// UserService 用户服务
type UserService struct {
	repo    *repository.UserRepository
	logRepo *repository.ActivityLogRepository
	logger  *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository, logRepo *repository.ActivityLogRepository, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, logRepo: logRepo, logger: logger}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required,oneof=planner supervisor plant_manager hse master"`
	SiteID    string `json:"site_id" binding:"required"`
	CompanyID string `json:"company_id"`
	Password  string `json:"password" binding:"required,min=8"`
	PIN       string `json:"pin" binding:"omitempty,len=4"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role" binding:"omitempty,oneof=planner supervisor plant_manager hse master"`
	CompanyID *string `json:"company_id"`
	Status    *string `json:"status" binding:"omitempty,oneof=active disabled"`
	PIN       *string `json:"pin" binding:"omitempty,len=4"`
}

// List 用户列表
func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 用户详情
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建用户
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest, operatorID, operatorName string) (*entity.User, error) {
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %s", req.Email)
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var pinHash string
	if req.PIN != "" {
		pinHash, err = HashPassword(req.PIN)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
	}

	user := &entity.User{
		ID:           uuid.New().String()[:32],
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		SiteID:       req.SiteID,
		CompanyID:    req.CompanyID,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		Status:       entity.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logRepo.LogActivity(ctx, "user", user.ID, user.Email, "create", "", entity.UserStatusActive,
		fmt.Sprintf("创建用户 %s (%s)", user.Name, user.Role), operatorID, operatorName)

	return user, nil
}

// Update 更新用户。非master只能修改本站点用户。
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest, actorRole, actorSiteID, operatorID, operatorName string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actorRole != entity.RoleMaster && user.SiteID != actorSiteID {
		return nil, ErrCrossSite
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.CompanyID != nil {
		user.CompanyID = *req.CompanyID
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.PIN != nil && *req.PIN != "" {
		pinHash, err := HashPassword(*req.PIN)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		user.PINHash = pinHash
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logRepo.LogActivity(ctx, "user", user.ID, user.Email, "update", "", "",
		fmt.Sprintf("更新用户 %s", user.Name), operatorID, operatorName)

	return user, nil
}

// ChangePassword 修改密码，需校验旧密码
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("old password incorrect")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	return s.repo.Update(ctx, user)
}

// Delete 删除用户。硬删除，需操作者重输PIN二次确认。
func (s *UserService) Delete(ctx context.Context, id, pin, actorID, actorRole, actorSiteID, operatorName string) error {
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load operator: %w", err)
	}
	if !VerifyPIN(actor.PINHash, pin) {
		return ErrPINMismatch
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if actorRole != entity.RoleMaster && user.SiteID != actorSiteID {
		return ErrCrossSite
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info("user deleted",
		zap.String("user_id", id),
		zap.String("email", user.Email),
		zap.String("operator_id", actorID))

	s.logRepo.LogActivity(ctx, "user", id, user.Email, "delete", user.Status, "",
		fmt.Sprintf("删除用户 %s", user.Name), actorID, operatorName)

	return nil
}
