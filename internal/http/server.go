// Package http exposes the ledger over a JSON API: the working draft,
// finalization, consolidation scans, statistics, configuration and
// backup transfer.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jangbu/internal/cache"
	"jangbu/internal/export"
	"jangbu/internal/ledger"
	"jangbu/internal/services"
)

// Deps carries the collaborators the server serves.
type Deps struct {
	Repo         *ledger.Repository
	Drafts       *ledger.DraftBuilder
	Consolidator *ledger.Consolidator
	Settlements  *services.SettlementService
	Backups      *export.Service
}

type Server struct {
	http.Server
	repo         *ledger.Repository
	drafts       *ledger.DraftBuilder
	consolidator *ledger.Consolidator
	settlements  *services.SettlementService
	backups      *export.Service
	rateLimiter  *rateLimiter

	// Cached marshaled statistics responses, keyed by request URI.
	// Every mutating operation flushes it.
	statsCache   *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:         deps.Repo,
		drafts:       deps.Drafts,
		consolidator: deps.Consolidator,
		settlements:  deps.Settlements,
		backups:      deps.Backups,
		rateLimiter:  newRateLimiter(),
		statsCache:   cache.NewLRUCache[[]byte](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/draft", s.withMiddleware(s.handleDraft))
	mux.HandleFunc("/api/draft/entries", s.withMiddleware(s.handleDraftEntries))
	mux.HandleFunc("/api/settlements", s.withMiddleware(s.handleSettlements))
	mux.HandleFunc("/api/scan", s.withMiddleware(s.handleScan))
	mux.HandleFunc("/api/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("/api/stats/month", s.withMiddleware(s.handleMonthStats))
	mux.HandleFunc("/api/stats/menus", s.withMiddleware(s.handleMenuStats))
	mux.HandleFunc("/api/stats/home", s.withMiddleware(s.handleHomeStats))
	mux.HandleFunc("/api/stats.xlsx", s.withMiddleware(s.handleStatsWorkbook))
	mux.HandleFunc("/api/export", s.withMiddleware(s.handleExport))
	mux.HandleFunc("/api/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("/api/template.xlsx", s.withMiddleware(s.handleTemplate))
	mux.HandleFunc("/api/config/menus", s.withMiddleware(s.handleMenusConfig))
	mux.HandleFunc("/api/config/platforms", s.withMiddleware(s.handlePlatformsConfig))
	mux.HandleFunc("/api/reset", s.withMiddleware(s.handleReset))

	return s
}

// withMiddleware adds request logging, rate limiting on mutating
// methods, and baseline security headers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)
		requestID := generateRequestID()

		slog.InfoContext(r.Context(), "Request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", ip)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", ip, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// flushStats drops cached aggregates after any ledger mutation.
func (s *Server) flushStats() {
	s.statsCache.Flush()
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
