package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jangbu/internal/core"
	"jangbu/internal/export"
	"jangbu/internal/ledger"
	"jangbu/internal/services"
	"jangbu/internal/stats"
	"jangbu/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	repo := ledger.NewRepository(st)
	drafts, err := ledger.NewDraftBuilder(ctx, st)
	if err != nil {
		t.Fatalf("draft builder: %v", err)
	}
	srv := NewServer(":0", Deps{
		Repo:         repo,
		Drafts:       drafts,
		Consolidator: ledger.NewConsolidator(st, repo),
		Settlements:  services.NewSettlementService(ledger.NewFinalizer(repo, drafts), nil),
		Backups:      export.NewService(repo),
	})
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rr.Body.String())
	}
}

func seedReport(t *testing.T, st store.Store, id, date string, amount, count int64) {
	t.Helper()
	ctx := context.Background()
	repo := ledger.NewRepository(st)
	reports, err := repo.LoadReports(ctx)
	if err != nil {
		t.Fatalf("load reports: %v", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	reports = append(reports, core.DailyReport{
		ID:   id,
		Date: d,
		Entries: []core.PlatformEntry{{
			Platform:            core.PlatformStore,
			PlatformTotalAmount: core.Money{Won: amount},
			PlatformTotalCount:  count,
			SettlementAmount:    core.Money{Won: amount},
		}},
		TotalAmount: core.Money{Won: amount},
		TotalCount:  count,
		CreatedAt:   time.Now().UnixMilli(),
	})
	if err := repo.SaveReports(ctx, reports); err != nil {
		t.Fatalf("save reports: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestDraftLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/draft", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get draft status=%d", rr.Code)
	}
	var draft draftResponse
	decodeBody(t, rr, &draft)
	if len(draft.Entries) != 0 || draft.TotalAmount.Won != 0 {
		t.Fatalf("fresh draft not empty: %+v", draft)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/draft/entries",
		`{"platform":"BAEMIN","menuSales":[{"menuName":"닭강정","count":2,"amount":30000}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert entry status=%d body=%s", rr.Code, rr.Body.String())
	}
	var entry core.PlatformEntry
	decodeBody(t, rr, &entry)
	if entry.FeeAmount.Won != 2040 || entry.SettlementAmount.Won != 27960 {
		t.Fatalf("fee not applied: fee=%d settlement=%d", entry.FeeAmount.Won, entry.SettlementAmount.Won)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/draft", "")
	decodeBody(t, rr, &draft)
	if draft.TotalAmount.Won != 30000 || draft.TotalCount != 2 {
		t.Fatalf("draft totals wrong: %+v", draft)
	}
	if len(draft.MenuSummary) != 1 || draft.MenuSummary[0].MenuName != "닭강정" {
		t.Fatalf("menu summary wrong: %+v", draft.MenuSummary)
	}

	rr = doJSON(t, srv, http.MethodPatch, "/api/draft", `{"date":"2024-03-05","memo":"비 오는 날"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch draft status=%d", rr.Code)
	}
	decodeBody(t, rr, &draft)
	if draft.Date != "2024-03-05" || draft.Memo != "비 오는 날" {
		t.Fatalf("patch not applied: %+v", draft)
	}

	rr = doJSON(t, srv, http.MethodPatch, "/api/draft", `{"date":"not-a-date"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/draft", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete draft status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/draft", "")
	decodeBody(t, rr, &draft)
	if len(draft.Entries) != 0 {
		t.Fatalf("draft not cleared: %+v", draft)
	}
}

func TestFinalizeFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/settlements", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty draft, got %d", rr.Code)
	}

	doJSON(t, srv, http.MethodPatch, "/api/draft", `{"date":"2024-03-05"}`)
	rr = doJSON(t, srv, http.MethodPost, "/api/draft/entries",
		`{"platform":"STORE","menuSales":[{"menuName":"후라이드","count":3,"amount":45000}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert entry status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/settlements", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("finalize status=%d body=%s", rr.Code, rr.Body.String())
	}
	var report core.DailyReport
	decodeBody(t, rr, &report)
	if report.ID == "" || report.TotalAmount.Won != 45000 || report.TotalCount != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/settlements", "")
	var reports []core.DailyReport
	decodeBody(t, rr, &reports)
	if len(reports) != 1 || reports[0].ID != report.ID {
		t.Fatalf("settlement list wrong: %+v", reports)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/settlements?limit=0", "")
	decodeBody(t, rr, &reports)
	if len(reports) != 0 {
		t.Fatalf("limit=0 returned %d reports", len(reports))
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/settlements?limit=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/draft", "")
	var draft draftResponse
	decodeBody(t, rr, &draft)
	if len(draft.Entries) != 0 {
		t.Fatalf("draft should be empty after finalize: %+v", draft)
	}
}

func TestScanConsolidatesLegacySources(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()

	legacy := `[{"platform":"BAEMIN","totalAmount":150000,"date":"2024-01-01T00:00:00Z"}]`
	if err := st.Set(ctx, "sales_data", []byte(legacy)); err != nil {
		t.Fatalf("seed legacy key: %v", err)
	}

	rr := doJSON(t, srv, http.MethodPost, "/api/scan", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("scan status=%d body=%s", rr.Code, rr.Body.String())
	}
	var result map[string]int
	decodeBody(t, rr, &result)
	if result["reports"] != 1 {
		t.Fatalf("scan result=%v", result)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/settlements", "")
	var reports []core.DailyReport
	decodeBody(t, rr, &reports)
	if len(reports) != 1 || reports[0].Date.String() != "2024-01-01" {
		t.Fatalf("converted report wrong: %+v", reports)
	}
	if len(reports[0].Entries) != 1 || reports[0].Entries[0].Platform != core.PlatformBaemin {
		t.Fatalf("converted entry wrong: %+v", reports[0].Entries)
	}
}

func TestStatsEndpointsAndCacheFlush(t *testing.T) {
	srv, st := newTestServer(t)
	seedReport(t, st, "r1", "2024-03-04", 100000, 2)
	seedReport(t, st, "r2", "2024-02-10", 50000, 1)

	rr := doJSON(t, srv, http.MethodGet, "/api/stats?period=MONTHLY", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status=%d", rr.Code)
	}
	var buckets []stats.Bucket
	decodeBody(t, rr, &buckets)
	if len(buckets) != 2 || buckets[0].Label != "2024-03" || buckets[0].TotalAmount.Won != 100000 {
		t.Fatalf("buckets wrong: %+v", buckets)
	}
	if _, ok := srv.statsCache.Get("/api/stats?period=MONTHLY"); !ok {
		t.Fatal("stats response was not cached")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/stats?period=bogus", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad period, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/stats/month?year=2024&month=3", "")
	var month monthStatsResponse
	decodeBody(t, rr, &month)
	if month.Total.Won != 100000 {
		t.Fatalf("month total=%d", month.Total.Won)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/stats/home", "")
	var home homeStatsResponse
	decodeBody(t, rr, &home)
	if len(home.Recent) != 2 {
		t.Fatalf("home recent=%d", len(home.Recent))
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/reset", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if _, ok := srv.statsCache.Get("/api/stats?period=MONTHLY"); ok {
		t.Fatal("stats cache survived a mutation")
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/stats?period=MONTHLY", "")
	decodeBody(t, rr, &buckets)
	if len(buckets) != 0 {
		t.Fatalf("stats after reset: %+v", buckets)
	}
}

func TestBackupEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	seedReport(t, st, "r1", "2024-03-04", 100000, 2)

	rr := doJSON(t, srv, http.MethodGet, "/api/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "jangbu-backup-") {
		t.Fatalf("content disposition=%q", cd)
	}
	var doc export.Backup
	decodeBody(t, rr, &doc)
	if len(doc.Reports) != 1 || doc.Reports[0].ID != "r1" {
		t.Fatalf("exported doc wrong: %+v", doc)
	}

	imported := `[{"id":"r9","date":"2024-03-10","entries":[],"totalAmount":70000,"totalCount":1,"createdAt":1}]`
	rr = doJSON(t, srv, http.MethodPost, "/api/import", imported)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	var result map[string]any
	decodeBody(t, rr, &result)
	if result["reportsImported"] != float64(1) || result["reportsTotal"] != float64(2) {
		t.Fatalf("import result=%v", result)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/import", "not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed import, got %d", rr.Code)
	}
}

func TestWorkbookEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	seedReport(t, st, "r1", "2024-03-04", 100000, 2)

	for _, path := range []string{"/api/template.xlsx", "/api/stats.xlsx"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
			t.Fatalf("%s content type=%q", path, ct)
		}
		if rr.Body.Len() == 0 {
			t.Fatalf("%s empty body", path)
		}
	}
}

func TestConfigEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/config/menus", "")
	var menus []string
	decodeBody(t, rr, &menus)
	found := false
	for _, m := range menus {
		if m == "닭강정" {
			found = true
		}
	}
	if !found {
		t.Fatalf("default menus missing seed item: %v", menus)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/config/menus", `["불닭강정","콜라"]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put menus status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/config/menus", "")
	decodeBody(t, rr, &menus)
	if len(menus) != 2 || menus[0] != "불닭강정" {
		t.Fatalf("menus not replaced: %v", menus)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/config/platforms", "")
	var configs core.PlatformConfigs
	decodeBody(t, rr, &configs)
	if configs[core.PlatformBaemin].FeeRate != 0.068 {
		t.Fatalf("default platform configs wrong: %+v", configs)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/config/platforms",
		`{"BAEMIN":{"id":"BAEMIN","name":"배달의민족","feeRate":1.5}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid fee rate, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/config/menus", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "GET, PUT" {
		t.Fatalf("allow header=%q", allow)
	}
}

func TestMutatingMethodsRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader(nil))
		req.RemoteAddr = "203.0.113.9:1234"
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on request 61, got %d", last)
	}
}
