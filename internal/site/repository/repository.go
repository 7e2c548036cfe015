package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User        *UserRepository
	Employee    *EmployeeRepository
	Company     *CompanyRepository
	PlantAsset  *PlantAssetRepository
	Timesheet   *TimesheetRepository
	Request     *RequestRepository
	Activity    *ActivityRepository
	Grid        *GridRepository
	ActivityLog *ActivityLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Employee:    NewEmployeeRepository(db),
		Company:     NewCompanyRepository(db),
		PlantAsset:  NewPlantAssetRepository(db),
		Timesheet:   NewTimesheetRepository(db),
		Request:     NewRequestRepository(db),
		Activity:    NewActivityRepository(db),
		Grid:        NewGridRepository(db),
		ActivityLog: NewActivityLogRepository(db),
	}
}
