package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"jangbu/internal/core"
	"jangbu/internal/stats"
)

const templateSheet = "판매입력"

var templateHeaders = []string{"날짜", "플랫폼", "메뉴", "수량", "금액"}

// Template builds the empty bulk-entry workbook: one sheet with the
// fixed column headers and a sample row. Generation is one-way; nothing
// in the ledger reads workbooks back.
func Template() (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", templateSheet)

	for i, h := range templateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(templateSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write template header: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		f.SetRowStyle(templateSheet, 1, 1, headerStyle)
	}

	sample := []interface{}{core.Today().String(), string(core.PlatformBaemin), "닭강정", 2, 30000}
	for i, v := range sample {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(templateSheet, cell, v); err != nil {
			return nil, fmt.Errorf("write sample row: %w", err)
		}
	}
	return f, nil
}

var statsSheets = []struct {
	name   string
	period core.Period
}{
	{"일별", core.Daily},
	{"주별", core.Weekly},
	{"월별", core.Monthly},
	{"연별", core.Yearly},
}

// StatsWorkbook renders period bucket aggregates into a workbook, one
// sheet per granularity.
func StatsWorkbook(reports []core.DailyReport) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, s := range statsSheets {
		if i == 0 {
			f.SetSheetName("Sheet1", s.name)
		} else {
			f.NewSheet(s.name)
		}
		if err := writeBuckets(f, s.name, stats.PeriodBuckets(reports, s.period)); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeBuckets(f *excelize.File, sheet string, buckets []stats.Bucket) error {
	headers := []interface{}{"기간", "매출액", "판매수량"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write stats header: %w", err)
		}
	}
	for r, b := range buckets {
		row := []interface{}{b.Label, b.TotalAmount.Won, b.TotalCount}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write stats row: %w", err)
			}
		}
	}
	return nil
}
