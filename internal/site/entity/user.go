package entity

import "time"

// User 站点账号。PIN用于删除等高危操作的二次确认。
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Email        string     `json:"email" gorm:"size:200;uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"size:100;not null"`
	Phone        string     `json:"phone" gorm:"size:50"`
	Role         string     `json:"role" gorm:"size:20;not null;index"` // planner/supervisor/plant_manager/hse/master
	SiteID       string     `json:"site_id" gorm:"size:32;not null;index"`
	CompanyID    string     `json:"company_id" gorm:"size:32;index"`
	PasswordHash string     `json:"-" gorm:"size:100;not null"`
	PINHash      string     `json:"-" gorm:"column:pin_hash;size:100"`
	Status       string     `json:"status" gorm:"size:20;default:active"` // active/disabled
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// User roles
const (
	RolePlanner      = "planner"
	RoleSupervisor   = "supervisor"
	RolePlantManager = "plant_manager"
	RoleHSE          = "hse"
	RoleMaster       = "master"
)

// User status
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
