package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"jangbu/internal/core"
	"jangbu/internal/export"
	"jangbu/internal/stats"
)

type draftResponse struct {
	Date        string               `json:"date"`
	Entries     []core.PlatformEntry `json:"entries"`
	Memo        string               `json:"memo"`
	TotalAmount core.Money           `json:"totalAmount"`
	TotalCount  int64                `json:"totalCount"`
	MenuSummary []core.MenuTotal     `json:"menuSummary"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeDraft(w)
	case http.MethodPatch:
		s.patchDraft(w, r)
	case http.MethodDelete:
		if err := s.drafts.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE")
	}
}

func (s *Server) writeDraft(w http.ResponseWriter) {
	d := s.drafts.Draft()
	amount, count := d.Totals()
	entries := d.Entries
	if entries == nil {
		entries = []core.PlatformEntry{}
	}
	summary := s.drafts.MenuSummary()
	if summary == nil {
		summary = []core.MenuTotal{}
	}
	writeJSON(w, http.StatusOK, draftResponse{
		Date:        d.Date.String(),
		Entries:     entries,
		Memo:        d.Memo,
		TotalAmount: amount,
		TotalCount:  count,
		MenuSummary: summary,
	})
}

type draftPatchRequest struct {
	Memo *string `json:"memo"`
	Date *string `json:"date"`
}

func (s *Server) patchDraft(w http.ResponseWriter, r *http.Request) {
	var req draftPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.drafts.SetDate(r.Context(), d); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.Memo != nil {
		if err := s.drafts.SetMemo(r.Context(), *req.Memo); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.writeDraft(w)
}

type upsertEntryRequest struct {
	Platform  core.Platform   `json:"platform"`
	MenuSales []core.MenuSale `json:"menuSales"`
}

func (s *Server) handleDraftEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req upsertEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	configs, err := s.repo.Platforms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entry := core.NewPlatformEntry(req.Platform, req.MenuSales, configs.FeeRate(req.Platform))
	if err := s.drafts.UpsertEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reports, err := s.repo.LoadReports(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			reports = stats.Recent(reports, limit)
		}
		if reports == nil {
			reports = []core.DailyReport{}
		}
		writeJSON(w, http.StatusOK, reports)
	case http.MethodPost:
		report, err := s.settlements.FinalizeDay(r.Context())
		if err != nil {
			if errors.Is(err, core.ErrEmptyDraft) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.flushStats()
		writeJSON(w, http.StatusCreated, report)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	merged, err := s.consolidator.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.flushStats()
	writeJSON(w, http.StatusOK, map[string]int{"reports": len(merged)})
}

// handleStats serves period bucket aggregates, cached per request URI.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	period := core.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = core.Daily
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid period %q", period))
		return
	}

	s.serveCachedJSON(w, r, func() (any, error) {
		reports, err := s.repo.LoadReports(r.Context())
		if err != nil {
			return nil, err
		}
		buckets := stats.PeriodBuckets(reports, period)
		if buckets == nil {
			buckets = []stats.Bucket{}
		}
		return buckets, nil
	})
}

type monthStatsResponse struct {
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Total core.Money `json:"total"`
}

func (s *Server) handleMonthStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = m
	}

	s.serveCachedJSON(w, r, func() (any, error) {
		reports, err := s.repo.LoadReports(r.Context())
		if err != nil {
			return nil, err
		}
		return monthStatsResponse{
			Year:  year,
			Month: month,
			Total: stats.MonthTotal(reports, year, time.Month(month)),
		}, nil
	})
}

func (s *Server) handleMenuStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	s.serveCachedJSON(w, r, func() (any, error) {
		reports, err := s.repo.LoadReports(r.Context())
		if err != nil {
			return nil, err
		}
		rows := stats.MenuSummary(reports)
		if rows == nil {
			rows = []core.MenuTotal{}
		}
		return rows, nil
	})
}

type homeStatsResponse struct {
	CurrentMonthTotal  core.Money         `json:"currentMonthTotal"`
	PreviousMonthTotal core.Money         `json:"previousMonthTotal"`
	Recent             []core.DailyReport `json:"recent"`
}

// handleHomeStats serves the landing metrics: this month, last month,
// and the most recent settlements.
func (s *Server) handleHomeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	s.serveCachedJSON(w, r, func() (any, error) {
		reports, err := s.repo.LoadReports(r.Context())
		if err != nil {
			return nil, err
		}
		now := time.Now()
		prev := now.AddDate(0, -1, 0)
		recent := stats.Recent(reports, 5)
		if recent == nil {
			recent = []core.DailyReport{}
		}
		return homeStatsResponse{
			CurrentMonthTotal:  stats.MonthTotal(reports, now.Year(), now.Month()),
			PreviousMonthTotal: stats.MonthTotal(reports, prev.Year(), prev.Month()),
			Recent:             recent,
		}, nil
	})
}

// serveCachedJSON answers from the stats cache when possible, building
// and caching the marshaled payload otherwise.
func (s *Server) serveCachedJSON(w http.ResponseWriter, r *http.Request, build func() (any, error)) {
	key := r.URL.RequestURI()
	if body, ok := s.statsCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	payload, err := build()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.statsCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleStatsWorkbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	reports, err := s.repo.LoadReports(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	f, err := export.StatsWorkbook(reports)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jangbu-stats.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream stats workbook", "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	filename := fmt.Sprintf("jangbu-backup-%s.json", core.Today().String())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := s.backups.Export(r.Context(), w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream backup", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	result, err := s.backups.Import(r.Context(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.flushStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"reportsImported": result.ReportsImported,
		"reportsTotal":    result.ReportsTotal,
		"menusReplaced":   result.MenusReplaced,
		"configsReplaced": result.ConfigsReplaced,
	})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	f, err := export.Template()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jangbu-template.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream template", "error", err)
	}
}

func (s *Server) handleMenusConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		menus, err := s.repo.Menus(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, menus)
	case http.MethodPut:
		var menus []string
		if err := json.NewDecoder(r.Body).Decode(&menus); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.repo.SaveMenus(r.Context(), menus); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, menus)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (s *Server) handlePlatformsConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.repo.Platforms(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, configs)
	case http.MethodPut:
		var configs core.PlatformConfigs
		if err := json.NewDecoder(r.Body).Decode(&configs); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.repo.SavePlatforms(r.Context(), configs); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, configs)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

// handleReset permanently clears the canonical set. Errors surface to
// the caller; this is an explicit user action.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := s.repo.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.flushStats()
	w.WriteHeader(http.StatusNoContent)
}
