// Package ledger implements the settlement ledger core: the canonical
// report set, legacy schema migration, consolidation, the working
// draft, and finalization. All persistence goes through the store.Store
// contract; nothing in this package knows what backs it.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"jangbu/internal/core"
	"jangbu/internal/store"
)

// Repository reads and writes the canonical report set and the ledger
// configuration (menu list, platform fee configs).
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// LoadReports returns the canonical set. An absent key yields an empty
// set; a corrupt payload is logged and also treated as empty so a bad
// write can never brick the ledger. Store read failures propagate.
func (r *Repository) LoadReports(ctx context.Context) ([]core.DailyReport, error) {
	b, ok, err := r.store.Get(ctx, store.KeyReports)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var reports []core.DailyReport
	if err := json.Unmarshal(b, &reports); err != nil {
		slog.WarnContext(ctx, "Canonical report set is corrupt, treating as empty",
			"key", store.KeyReports, "error", err)
		return nil, nil
	}
	return reports, nil
}

// SaveReports re-establishes the canonical sort and persists the set.
// The write is the single side effect of every mutating ledger
// operation; a failure here is fatal for that operation.
func (r *Repository) SaveReports(ctx context.Context, reports []core.DailyReport) error {
	SortCanonical(reports)
	b, err := json.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := r.store.Set(ctx, store.KeyReports, b); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}
	return nil
}

// Reset permanently clears the canonical set.
func (r *Repository) Reset(ctx context.Context) error {
	return r.SaveReports(ctx, []core.DailyReport{})
}

// Menus returns the configured menu list, falling back to the seed
// list when nothing has been saved.
func (r *Repository) Menus(ctx context.Context) ([]string, error) {
	b, ok, err := r.store.Get(ctx, store.KeyMenus)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}
	if !ok {
		return core.DefaultMenus(), nil
	}
	var menus []string
	if err := json.Unmarshal(b, &menus); err != nil {
		slog.WarnContext(ctx, "Menu config is corrupt, using defaults", "error", err)
		return core.DefaultMenus(), nil
	}
	return menus, nil
}

func (r *Repository) SaveMenus(ctx context.Context, menus []string) error {
	b, err := json.Marshal(menus)
	if err != nil {
		return fmt.Errorf("encode menus: %w", err)
	}
	if err := r.store.Set(ctx, store.KeyMenus, b); err != nil {
		return fmt.Errorf("save menus: %w", err)
	}
	return nil
}

// Platforms returns the platform fee configuration, seeded with the
// defaults when absent.
func (r *Repository) Platforms(ctx context.Context) (core.PlatformConfigs, error) {
	b, ok, err := r.store.Get(ctx, store.KeyPlatforms)
	if err != nil {
		return nil, fmt.Errorf("load platform configs: %w", err)
	}
	if !ok {
		return core.DefaultPlatformConfigs(), nil
	}
	var configs core.PlatformConfigs
	if err := json.Unmarshal(b, &configs); err != nil {
		slog.WarnContext(ctx, "Platform config is corrupt, using defaults", "error", err)
		return core.DefaultPlatformConfigs(), nil
	}
	return configs, nil
}

func (r *Repository) SavePlatforms(ctx context.Context, configs core.PlatformConfigs) error {
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("platform %s: %w", c.ID, err)
		}
	}
	b, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode platform configs: %w", err)
	}
	if err := r.store.Set(ctx, store.KeyPlatforms, b); err != nil {
		return fmt.Errorf("save platform configs: %w", err)
	}
	return nil
}

// SortCanonical sorts reports by date descending, in place. The sort is
// stable: reports sharing a date keep their pre-sort relative order.
func SortCanonical(reports []core.DailyReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.Time.After(reports[j].Date.Time)
	})
}

// SortByCreatedAt sorts reports by creation time ascending, in place.
func SortByCreatedAt(reports []core.DailyReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt < reports[j].CreatedAt
	})
}

// Dedupe removes reports with duplicate ids. The surviving value is the
// last occurrence, but it keeps the position of the first, so source
// fold order decides both which version wins and where it sits before
// the canonical sort.
func Dedupe(reports []core.DailyReport) []core.DailyReport {
	index := make(map[string]int, len(reports))
	out := make([]core.DailyReport, 0, len(reports))
	for _, r := range reports {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
