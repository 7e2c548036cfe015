package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gridline/siteops/internal/site/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 报表导出服务
type ExportService struct {
	employeeRepo  *repository.EmployeeRepository
	companyRepo   *repository.CompanyRepository
	timesheetRepo *repository.TimesheetRepository
	assetRepo     *repository.PlantAssetRepository
	userRepo      *repository.UserRepository
}

// NewExportService 创建导出服务
func NewExportService(employeeRepo *repository.EmployeeRepository, companyRepo *repository.CompanyRepository, timesheetRepo *repository.TimesheetRepository, assetRepo *repository.PlantAssetRepository, userRepo *repository.UserRepository) *ExportService {
	return &ExportService{
		employeeRepo:  employeeRepo,
		companyRepo:   companyRepo,
		timesheetRepo: timesheetRepo,
		assetRepo:     assetRepo,
		userRepo:      userRepo,
	}
}

var employeeExportHeaders = []string{
	"姓名", "工号", "工种", "电话", "公司", "已入场培训", "培训日期", "培训到期", "锁定", "备注",
}

// ExportEmployeesXLSX 导出站点工人花名册为xlsx
func (s *ExportService) ExportEmployeesXLSX(ctx context.Context, siteID string) (*excelize.File, string, error) {
	employees, err := s.employeeRepo.FindBySite(ctx, siteID)
	if err != nil {
		return nil, "", fmt.Errorf("list employees: %w", err)
	}

	// 公司名称查表，查不到回退 N/A
	companyNames := map[string]string{}
	if companies, err := s.companyRepo.FindAll(ctx, siteID); err == nil {
		for _, c := range companies {
			companyNames[c.ID] = c.Name
		}
	}

	f := excelize.NewFile()
	sheet := "Employees"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range employeeExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, emp := range employees {
		row := rowIdx + 2
		company := "N/A"
		if name, ok := companyNames[emp.CompanyID]; ok {
			company = name
		}
		inducted := "否"
		if emp.Inducted {
			inducted = "是"
		}
		locked := "否"
		if emp.Locked {
			locked = "是"
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), emp.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), emp.EmployeeNo)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), emp.Trade)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), emp.Phone)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), company)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), inducted)
		if emp.InductionDate != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), emp.InductionDate.Format("2006-01-02"))
		}
		if emp.InductionExpiry != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), emp.InductionExpiry.Format("2006-01-02"))
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), locked)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), emp.Notes)
	}

	widths := []float64{14, 12, 12, 16, 24, 10, 12, 12, 8, 30}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("employees_%s_%s.xlsx", siteID, time.Now().Format("20060102"))
	return f, filename, nil
}

// ExportTimesheetsCSV 导出某日工时表为CSV
func (s *ExportService) ExportTimesheetsCSV(ctx context.Context, siteID, date string) ([]byte, string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, "", fmt.Errorf("invalid date: %s", date)
	}

	timesheets, err := s.timesheetRepo.FindByDate(ctx, siteID, date)
	if err != nil {
		return nil, "", fmt.Errorf("list timesheets: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "asset_code", "asset_name", "operator", "hours", "start", "end", "status"}); err != nil {
		return nil, "", err
	}

	for _, ts := range timesheets {
		assetCode, assetName := "N/A", "N/A"
		if asset, err := s.assetRepo.FindByID(ctx, ts.AssetID); err == nil {
			assetCode, assetName = asset.Code, asset.Name
		}
		operator := "N/A"
		if user, err := s.userRepo.FindByID(ctx, ts.OperatorID); err == nil {
			operator = user.Name
		}

		record := []string{
			ts.Date,
			assetCode,
			assetName,
			operator,
			strconv.FormatFloat(ts.Hours, 'f', 2, 64),
			ts.StartHour,
			ts.EndHour,
			ts.Status,
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("timesheets_%s_%s.csv", siteID, date)
	return buf.Bytes(), filename, nil
}

// ExportTimesheetsXLSX 导出某日工时表为xlsx
func (s *ExportService) ExportTimesheetsXLSX(ctx context.Context, siteID, date string) (*excelize.File, string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, "", fmt.Errorf("invalid date: %s", date)
	}

	timesheets, err := s.timesheetRepo.FindByDate(ctx, siteID, date)
	if err != nil {
		return nil, "", fmt.Errorf("list timesheets: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Timesheets"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"日期", "设备编号", "设备名称", "操作员", "工时", "开始", "结束", "状态"}
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, ts := range timesheets {
		row := rowIdx + 2
		assetCode, assetName := "N/A", "N/A"
		if asset, err := s.assetRepo.FindByID(ctx, ts.AssetID); err == nil {
			assetCode, assetName = asset.Code, asset.Name
		}
		operator := "N/A"
		if user, err := s.userRepo.FindByID(ctx, ts.OperatorID); err == nil {
			operator = user.Name
		}

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), ts.Date)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), assetCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), assetName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), operator)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), ts.Hours)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), ts.StartHour)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), ts.EndHour)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), ts.Status)
	}

	filename := fmt.Sprintf("timesheets_%s_%s.xlsx", siteID, date)
	return f, filename, nil
}
