package entity

import "time"

// Request 跨角色交接审批单(布线/浇筑/端接)。
// 不变式: archived == true 当且仅当 status ∈ {APPROVED, REJECTED}。
// SCHEDULED 只能从 PENDING 进入，仍可审批。
type Request struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:32;uniqueIndex;not null"` // REQ-2026-0001
	Type        string     `json:"type" gorm:"size:30;not null;index:idx_requests_site_type"`
	Status      string     `json:"status" gorm:"size:20;default:PENDING;index"`
	SiteID      string     `json:"site_id" gorm:"size:32;not null;index:idx_requests_site_type"`
	TaskID      *string    `json:"task_id" gorm:"size:32"`
	ActivityID  *string    `json:"activity_id" gorm:"size:32"`
	Archived    bool       `json:"archived" gorm:"default:false;index"`
	Notes       string     `json:"notes" gorm:"type:text"`
	RequestedBy string     `json:"requested_by" gorm:"size:32;not null"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedBy   *string    `json:"decided_by" gorm:"size:32"`
	DecidedAt   *time.Time `json:"decided_at"`
	ScheduledBy *string    `json:"scheduled_by" gorm:"size:32"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Request) TableName() string {
	return "requests"
}

// Request 类型
const (
	RequestTypeCabling     = "CABLING_REQUEST"
	RequestTypeConcrete    = "CONCRETE_REQUEST"
	RequestTypeTermination = "TERMINATION_REQUEST"
)

// Request 状态
const (
	RequestStatusPending   = "PENDING"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusScheduled = "SCHEDULED"
	RequestStatusCancelled = "CANCELLED"
)

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeCabling, RequestTypeConcrete, RequestTypeTermination:
		return true
	}
	return false
}

// Terminal reports whether the request has reached a terminal status.
func (r *Request) Terminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}

// RequestView 列表视图模型，附带补全(enrichment)字段
type RequestView struct {
	Request
	ActivityName  string `json:"activity_name"`
	TaskName      string `json:"task_name"`
	RequesterName string `json:"requester_name"`
}
