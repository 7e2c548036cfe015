package entity

import "time"

// Employee 现场工人档案，含入场培训(induction)记录
type Employee struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	SiteID          string     `json:"site_id" gorm:"size:32;not null;index"`
	CompanyID       string     `json:"company_id" gorm:"size:32;index"`
	Name            string     `json:"name" gorm:"size:100;not null"`
	Trade           string     `json:"trade" gorm:"size:50"` // electrician/rigger/operator/laborer/other
	Phone           string     `json:"phone" gorm:"size:50"`
	EmployeeNo      string     `json:"employee_no" gorm:"size:50"`
	InductionDate   *time.Time `json:"induction_date"`
	InductionExpiry *time.Time `json:"induction_expiry"`
	Inducted        bool       `json:"inducted" gorm:"default:false"`
	Locked          bool       `json:"locked" gorm:"default:false"`
	Archived        bool       `json:"archived" gorm:"default:false;index"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:32"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Employee) TableName() string {
	return "employees"
}

// Company 分包商/公司
type Company struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	ABN       string    `json:"abn" gorm:"size:50"`
	Contact   string    `json:"contact" gorm:"size:100"`
	Phone     string    `json:"phone" gorm:"size:50"`
	SiteID    string    `json:"site_id" gorm:"size:32;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
