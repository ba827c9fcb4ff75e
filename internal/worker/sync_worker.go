// Package worker mirrors finalized settlements to the spreadsheet and
// produces the scheduled backup files.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jangbu/internal/amqp"
	"jangbu/internal/core"
	"jangbu/internal/export"
	"jangbu/internal/ledger"
	"jangbu/internal/sheets"
	"jangbu/internal/store"
)

// SyncWorker appends finalized reports to the spreadsheet. A cursor in
// the store records the createdAt of the newest mirrored report so the
// backlog scan can recover reports whose sync message was lost.
type SyncWorker struct {
	store     store.Store
	repo      *ledger.Repository
	sheets    sheets.ReportWriter
	batchSize int
}

func NewSyncWorker(s store.Store, repo *ledger.Repository, writer sheets.ReportWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     s,
		repo:      repo,
		sheets:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one settlement sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SettlementSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"report_id", msg.ReportID,
		"date", msg.Date)

	reports, err := w.repo.LoadReports(ctx)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	for _, r := range reports {
		if r.ID == msg.ReportID {
			return w.syncReport(ctx, r)
		}
	}

	// The report can legitimately be gone (ledger reset, re-import).
	// Requeueing would spin forever, so acknowledge and move on.
	slog.WarnContext(ctx, "Report in sync message no longer exists, skipping",
		"report_id", msg.ReportID)
	return nil
}

// ProcessBacklog mirrors reports finalized after the cursor, oldest
// first, up to the batch size. It is the recovery path for lost sync
// messages and for reports finalized while the worker was down.
func (w *SyncWorker) ProcessBacklog(ctx context.Context) error {
	cursor, err := w.loadCursor(ctx)
	if err != nil {
		return err
	}

	reports, err := w.repo.LoadReports(ctx)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	pending := make([]core.DailyReport, 0, w.batchSize)
	for _, r := range reports {
		if r.CreatedAt > cursor {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	// Oldest first so a partial batch still leaves a valid cursor.
	ledger.SortByCreatedAt(pending)
	if len(pending) > w.batchSize {
		pending = pending[:w.batchSize]
	}

	slog.InfoContext(ctx, "Processing sync backlog", "count", len(pending))

	synced := 0
	for _, r := range pending {
		if err := w.syncReport(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to sync report, stopping batch",
				"report_id", r.ID, "error", err)
			break
		}
		synced++
	}

	slog.InfoContext(ctx, "Sync backlog pass complete",
		"synced", synced, "pending", len(pending)-synced)
	return nil
}

func (w *SyncWorker) syncReport(ctx context.Context, r core.DailyReport) error {
	ref, err := w.sheets.AppendReport(ctx, r)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.advanceCursor(ctx, r.CreatedAt); err != nil {
		// The append worked; a stale cursor only means a duplicate row
		// on the next backlog pass.
		slog.ErrorContext(ctx, "Failed to advance sync cursor",
			"report_id", r.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored report to spreadsheet",
		"report_id", r.ID,
		"date", r.Date.String(),
		"sheets_ref", ref,
		"total_amount", r.TotalAmount.Won)
	return nil
}

func (w *SyncWorker) loadCursor(ctx context.Context) (int64, error) {
	b, ok, err := w.store.Get(ctx, store.KeySheetCursor)
	if err != nil {
		return 0, fmt.Errorf("load sync cursor: %w", err)
	}
	if !ok {
		return 0, nil
	}
	var cursor int64
	if err := json.Unmarshal(b, &cursor); err != nil {
		slog.WarnContext(ctx, "Sync cursor is corrupt, starting from zero", "error", err)
		return 0, nil
	}
	return cursor, nil
}

func (w *SyncWorker) advanceCursor(ctx context.Context, createdAt int64) error {
	cursor, err := w.loadCursor(ctx)
	if err != nil {
		return err
	}
	if createdAt <= cursor {
		return nil
	}
	b, err := json.Marshal(createdAt)
	if err != nil {
		return err
	}
	return w.store.Set(ctx, store.KeySheetCursor, b)
}

// BackupRunner writes the full backup document to a dated file.
type BackupRunner struct {
	backups *export.Service
	dir     string
}

func NewBackupRunner(backups *export.Service, dir string) *BackupRunner {
	return &BackupRunner{backups: backups, dir: dir}
}

// Run writes today's backup file, replacing an existing one for the
// same day.
func (b *BackupRunner) Run(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(b.dir, fmt.Sprintf("jangbu-backup-%s.json", core.Today().String()))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := b.backups.Export(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}

	slog.InfoContext(ctx, "Daily backup written", "path", path)
	return nil
}
