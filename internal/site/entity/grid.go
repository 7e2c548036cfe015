package entity

import "time"

// GridCell 网格进度单元格。已完成单元格只追加不回退，锁定后不可变。
type GridCell struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	ActivityID     string     `json:"activity_id" gorm:"size:32;not null;uniqueIndex:uq_grid_cell,priority:1"`
	TaskID         string     `json:"task_id" gorm:"size:32;index"`
	GridColumn     int        `json:"column" gorm:"column:grid_column;not null;uniqueIndex:uq_grid_cell,priority:2"`
	GridRow        int        `json:"row" gorm:"column:grid_row;not null;uniqueIndex:uq_grid_cell,priority:3"`
	Status         string     `json:"status" gorm:"size:20;default:pending"` // pending/completed
	CompletedValue float64    `json:"completed_value" gorm:"type:decimal(12,2)"`
	IsLocked       bool       `json:"is_locked" gorm:"default:false"`
	CompletedBy    string     `json:"completed_by" gorm:"size:32"`
	CompletedAt    *time.Time `json:"completed_at"`
	LockedAt       *time.Time `json:"locked_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (GridCell) TableName() string {
	return "grid_cells"
}

// GridCell 状态
const (
	GridCellStatusPending   = "pending"
	GridCellStatusCompleted = "completed"
)

// GridRollup 网格进度汇总
type GridRollup struct {
	ActivityID      string  `json:"activity_id"`
	TotalCells      int     `json:"total_cells"`
	CompletedCells  int     `json:"completed_cells"`
	UnverifiedTotal float64 `json:"unverified_total"`
	Percentage      float64 `json:"percentage"`
}
