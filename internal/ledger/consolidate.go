package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"jangbu/internal/core"
	"jangbu/internal/store"
)

// Consolidator folds every legacy storage location into the canonical
// report set. Running it is always safe: it deduplicates by id, keeps
// the canonical sort, and a second run over unchanged sources produces
// a byte-identical set.
type Consolidator struct {
	store store.Store
	repo  *Repository
}

func NewConsolidator(s store.Store, repo *Repository) *Consolidator {
	return &Consolidator{store: s, repo: repo}
}

// Run scans the legacy keys in their fixed order, migrates every
// readable record, merges the result into the canonical set and
// persists it. A source that cannot be read or parsed is logged and
// skipped, never fatal; only the final store write can fail the run.
func (c *Consolidator) Run(ctx context.Context) ([]core.DailyReport, error) {
	working, err := c.repo.LoadReports(ctx)
	if err != nil {
		return nil, err
	}

	for _, key := range store.LegacyReportKeys() {
		b, ok, err := c.store.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "Failed to read legacy source, skipping",
				"source", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			slog.WarnContext(ctx, "Failed to parse legacy source, skipping",
				"source", key, "error", err)
			continue
		}

		converted, skipped := 0, 0
		for i, raw := range items {
			report, ok := MigrateRecord(raw, key)
			if !ok {
				skipped++
				slog.WarnContext(ctx, "Skipping unconvertible legacy record",
					"source", key, "index", i)
				continue
			}
			working = append(working, report)
			converted++
		}
		slog.InfoContext(ctx, "Folded legacy source",
			"source", key, "converted", converted, "skipped", skipped)
	}

	merged := Dedupe(working)
	SortCanonical(merged)

	if err := c.repo.SaveReports(ctx, merged); err != nil {
		return nil, fmt.Errorf("persist consolidated set: %w", err)
	}

	slog.InfoContext(ctx, "Consolidation complete", "reports", len(merged))
	return merged, nil
}
