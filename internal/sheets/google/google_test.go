package google

import (
	"context"
	"testing"

	"jangbu/internal/core"
)

func TestReportRows(t *testing.T) {
	r := core.DailyReport{
		ID:   "r1",
		Date: core.NewDate(2024, 3, 5),
		Entries: []core.PlatformEntry{
			core.NewPlatformEntry("BAEMIN", []core.MenuSale{
				{MenuName: "닭강정", Count: 2, Amount: core.Money{Won: 30000}},
				{MenuName: "콜라", Count: 1, Amount: core.Money{Won: 2000}},
			}, 0.068),
			{
				Platform:            "YOGIYO",
				MenuSales:           []core.MenuSale{},
				PlatformTotalAmount: core.Money{Won: 50000},
				PlatformTotalCount:  1,
				SettlementAmount:    core.Money{Won: 50000},
			},
		},
	}

	rows := reportRows(r)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "2024-03-05" || rows[0][1] != "BAEMIN" || rows[0][2] != "닭강정" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[1][2] != "콜라" || rows[1][4] != int64(2000) {
		t.Fatalf("unexpected second row: %v", rows[1])
	}
	// Legacy-style entry without menu breakdown: single row, empty menu
	// cell, platform totals.
	if rows[2][1] != "YOGIYO" || rows[2][2] != "" || rows[2][4] != int64(50000) {
		t.Fatalf("unexpected flat row: %v", rows[2])
	}
}

func TestAppendReportRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "x", salesSheet: "Sales"}
	r := core.DailyReport{
		ID:   "r1",
		Date: core.NewDate(2024, 3, 5),
		Entries: []core.PlatformEntry{{
			Platform:            "BAEMIN",
			MenuSales:           []core.MenuSale{},
			PlatformTotalAmount: core.Money{Won: 1000},
			PlatformTotalCount:  1,
			SettlementAmount:    core.Money{Won: 1000},
		}},
		TotalAmount: core.Money{Won: 1000},
		TotalCount:  1,
	}
	if _, err := c.AppendReport(context.Background(), r); err == nil {
		t.Fatalf("expected error without an initialized service")
	}
}
