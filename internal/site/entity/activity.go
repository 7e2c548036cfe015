package entity

import "time"

// Activity 现场作业活动。请求标志位(cabling/concrete/termination)是
// 在途审批的冗余标记，审批通过/驳回时由请求服务清除。
type Activity struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	SiteID string `json:"site_id" gorm:"size:32;not null;index"`
	Name   string `json:"name" gorm:"size:200;not null"`
	Area   string `json:"area" gorm:"size:100"`
	Status string `json:"status" gorm:"size:20;default:active"` // active/completed/archived

	// 网格进度参数
	ScopeValue   float64 `json:"scope_value" gorm:"type:decimal(12,2)"`
	ValuePerCell float64 `json:"value_per_cell" gorm:"type:decimal(12,2)"`
	GridColumns  int     `json:"grid_columns" gorm:"default:0"`
	GridRows     int     `json:"grid_rows" gorm:"default:0"`

	// 在途请求标志位
	CablingRequested     bool `json:"cabling_requested" gorm:"default:false"`
	CablingApproved      bool `json:"cabling_approved" gorm:"default:false"`
	ConcreteRequested    bool `json:"concrete_requested" gorm:"default:false"`
	ConcreteApproved     bool `json:"concrete_approved" gorm:"default:false"`
	TerminationRequested bool `json:"termination_requested" gorm:"default:false"`
	TerminationApproved  bool `json:"termination_approved" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Activity) TableName() string {
	return "activities"
}

// Task 活动下的工作任务
type Task struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	ActivityID string    `json:"activity_id" gorm:"size:32;not null;index"`
	SiteID     string    `json:"site_id" gorm:"size:32;index"`
	Name       string    `json:"name" gorm:"size:200;not null"`
	Status     string    `json:"status" gorm:"size:20;default:open"` // open/in_progress/done/locked
	AssigneeID string    `json:"assignee_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Task 状态
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusLocked     = "locked"
)
