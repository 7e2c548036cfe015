package entity

import "time"

// PlantAsset 工程机械/设备资产。删除为软删除(archived)，VAS为设备租赁市场挂牌。
type PlantAsset struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	SiteID       string     `json:"site_id" gorm:"size:32;not null;index"`
	Code         string     `json:"code" gorm:"size:32;uniqueIndex;not null"` // PLT-2026-0001
	Name         string     `json:"name" gorm:"size:200;not null"`
	Category     string     `json:"category" gorm:"size:50"` // excavator/crane/telehandler/generator/other
	Registration string     `json:"registration" gorm:"size:50"`
	OperatorID   string     `json:"operator_id" gorm:"size:32;index"`
	ServiceDue   *time.Time `json:"service_due"`
	Locked       bool       `json:"locked" gorm:"default:false"`
	Archived     bool       `json:"archived" gorm:"default:false;index"`
	VASListed    bool       `json:"vas_listed" gorm:"column:vas_listed;default:false"`
	VASRate      float64    `json:"vas_rate" gorm:"column:vas_rate;type:decimal(12,2)"`
	Notes        string     `json:"notes" gorm:"type:text"`
	CreatedBy    string     `json:"created_by" gorm:"size:32"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (PlantAsset) TableName() string {
	return "plant_assets"
}

// AssetTimesheet 设备操作员日工时表。
// 状态机: unsubmitted → submitted → locked，23:55锁定，次日零点重开。
type AssetTimesheet struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	AssetID     string     `json:"asset_id" gorm:"size:32;not null;index:idx_timesheet_asset_date"`
	OperatorID  string     `json:"operator_id" gorm:"size:32;not null;index"`
	SiteID      string     `json:"site_id" gorm:"size:32;index"`
	Date        string     `json:"date" gorm:"size:10;not null;index:idx_timesheet_asset_date"` // 2006-01-02
	Hours       float64    `json:"hours" gorm:"type:decimal(5,2)"`
	StartHour   string     `json:"start_hour" gorm:"size:5"`
	EndHour     string     `json:"end_hour" gorm:"size:5"`
	Status      string     `json:"status" gorm:"size:20;default:unsubmitted"` // unsubmitted/submitted/locked
	Notes       string     `json:"notes" gorm:"type:text"`
	SubmittedAt *time.Time `json:"submitted_at"`
	LockedAt    *time.Time `json:"locked_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (AssetTimesheet) TableName() string {
	return "asset_timesheets"
}

// AssetTimesheet 状态
const (
	TimesheetStatusUnsubmitted = "unsubmitted"
	TimesheetStatusSubmitted   = "submitted"
	TimesheetStatusLocked      = "locked"
)
