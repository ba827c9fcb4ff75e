package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"jangbu/internal/core"
	"jangbu/internal/ledger"
	"jangbu/internal/store"
)

func report(id, date string, amount int64) core.DailyReport {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.DailyReport{
		ID:   id,
		Date: d,
		Entries: []core.PlatformEntry{{
			Platform:            "BAEMIN",
			MenuSales:           []core.MenuSale{},
			PlatformTotalAmount: core.Money{Won: amount},
			PlatformTotalCount:  1,
			SettlementAmount:    core.Money{Won: amount},
		}},
		TotalAmount: core.Money{Won: amount},
		TotalCount:  1,
		CreatedAt:   1700000000000,
	}
}

func newService(t *testing.T) (*Service, *ledger.Repository, store.Store) {
	t.Helper()
	s := store.NewMemory()
	repo := ledger.NewRepository(s)
	return NewService(repo), repo, s
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)

	if err := repo.SaveReports(ctx, []core.DailyReport{report("a", "2024-03-05", 10000)}); err != nil {
		t.Fatalf("SaveReports: %v", err)
	}
	if err := repo.SaveMenus(ctx, []string{"닭강정", "콜라"}); err != nil {
		t.Fatalf("SaveMenus: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc Backup
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export not decodable: %v", err)
	}
	if len(doc.Reports) != 1 || doc.Reports[0].ID != "a" {
		t.Fatalf("unexpected reports: %+v", doc.Reports)
	}
	if len(doc.CustomMenus) != 2 {
		t.Fatalf("unexpected menus: %v", doc.CustomMenus)
	}
	if len(doc.PlatformConfigs) == 0 {
		t.Fatalf("export must include platform configs")
	}
}

func TestExportEmptyLedgerWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(buf.String(), `"reports": null`) {
		t.Fatalf("empty ledger must export [] for reports:\n%s", buf.String())
	}
}

func TestImportBareArrayMerges(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)

	if err := repo.SaveReports(ctx, []core.DailyReport{report("a", "2024-03-01", 1000)}); err != nil {
		t.Fatalf("SaveReports: %v", err)
	}

	imported, _ := json.Marshal([]core.DailyReport{report("b", "2024-03-02", 2000)})
	result, err := svc.Import(ctx, io.NopCloser(bytes.NewReader(imported)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.ReportsImported != 1 || result.ReportsTotal != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.MenusReplaced || result.ConfigsReplaced {
		t.Fatalf("bare array must not touch configuration: %+v", result)
	}

	reports, err := repo.LoadReports(ctx)
	if err != nil {
		t.Fatalf("LoadReports: %v", err)
	}
	if len(reports) != 2 || reports[0].ID != "b" {
		t.Fatalf("merge result: %+v", reports)
	}
}

func TestImportDuplicateIDImportedWins(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)

	if err := repo.SaveReports(ctx, []core.DailyReport{report("dup", "2024-03-01", 1000)}); err != nil {
		t.Fatalf("SaveReports: %v", err)
	}

	imported, _ := json.Marshal([]core.DailyReport{report("dup", "2024-03-01", 7777)})
	result, err := svc.Import(ctx, io.NopCloser(bytes.NewReader(imported)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.ReportsTotal != 1 {
		t.Fatalf("duplicate id must not grow the set: %+v", result)
	}

	reports, _ := repo.LoadReports(ctx)
	if len(reports) != 1 || reports[0].TotalAmount.Won != 7777 {
		t.Fatalf("imported version must win: %+v", reports)
	}
}

func TestImportFullShapeReplacesConfiguration(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t)

	doc := Backup{
		Reports:     []core.DailyReport{report("a", "2024-03-01", 1000)},
		CustomMenus: []string{"불닭강정"},
		PlatformConfigs: core.PlatformConfigs{
			"BAEMIN": {ID: "BAEMIN", Name: "배달의민족", FeeRate: 0.07},
		},
	}
	raw, _ := json.Marshal(doc)

	result, err := svc.Import(ctx, io.NopCloser(bytes.NewReader(raw)))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !result.MenusReplaced || !result.ConfigsReplaced {
		t.Fatalf("configuration sections must be replaced: %+v", result)
	}

	menus, _ := repo.Menus(ctx)
	if len(menus) != 1 || menus[0] != "불닭강정" {
		t.Fatalf("menus not replaced: %v", menus)
	}
	configs, _ := repo.Platforms(ctx)
	if configs.FeeRate("BAEMIN") != 0.07 {
		t.Fatalf("platform configs not replaced: %+v", configs)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestImportClosesReaderOnAllPaths(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	good := &closeTracker{Reader: strings.NewReader(`[]`)}
	if _, err := svc.Import(ctx, good); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !good.closed {
		t.Fatalf("reader must be closed on success")
	}

	bad := &closeTracker{Reader: strings.NewReader(`{nope`)}
	if _, err := svc.Import(ctx, bad); err == nil {
		t.Fatalf("expected parse error")
	}
	if !bad.closed {
		t.Fatalf("reader must be closed on parse failure")
	}
}

func TestImportRejectsEmptyAndMalformed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	for _, raw := range []string{"", "   ", "not json", `"scalar"`} {
		_, err := svc.Import(ctx, io.NopCloser(strings.NewReader(raw)))
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestImportInvalidPlatformConfigFails(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	raw := []byte(`{"reports":[],"platformConfigs":{"BAEMIN":{"id":"BAEMIN","name":"배달의민족","feeRate":1.5}}}`)
	_, err := svc.Import(ctx, io.NopCloser(bytes.NewReader(raw)))
	if !errors.Is(err, core.ErrInvalidFeeRate) {
		t.Fatalf("expected ErrInvalidFeeRate, got %v", err)
	}
}
