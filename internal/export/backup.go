// Package export implements the backup document and spreadsheet
// surfaces: full-ledger JSON export/import and one-way xlsx generation.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"jangbu/internal/core"
	"jangbu/internal/ledger"
)

// Backup is the export document: the full canonical set plus both
// configuration sections.
type Backup struct {
	Reports         []core.DailyReport   `json:"reports"`
	CustomMenus     []string             `json:"customMenus"`
	PlatformConfigs core.PlatformConfigs `json:"platformConfigs"`
}

// ImportResult summarizes what an import changed.
type ImportResult struct {
	ReportsImported int
	ReportsTotal    int
	MenusReplaced   bool
	ConfigsReplaced bool
}

// Service reads and writes backup documents against the ledger.
type Service struct {
	repo *ledger.Repository
}

func NewService(repo *ledger.Repository) *Service {
	return &Service{repo: repo}
}

// Export writes the full backup document as indented JSON.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	reports, err := s.repo.LoadReports(ctx)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []core.DailyReport{}
	}
	menus, err := s.repo.Menus(ctx)
	if err != nil {
		return err
	}
	configs, err := s.repo.Platforms(ctx)
	if err != nil {
		return err
	}

	doc := Backup{Reports: reports, CustomMenus: menus, PlatformConfigs: configs}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Import merges a backup document into the ledger. The input may be a
// bare report array or the full backup shape. Imported reports win on
// id clashes; configuration sections, when present, overwrite the
// stored configuration. The reader is closed on every path.
func (s *Service) Import(ctx context.Context, r io.ReadCloser) (ImportResult, error) {
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import: %w", err)
	}

	doc, err := parseBackup(raw)
	if err != nil {
		return ImportResult{}, err
	}

	current, err := s.repo.LoadReports(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	merged := ledger.Dedupe(append(current, doc.Reports...))
	if err := s.repo.SaveReports(ctx, merged); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{
		ReportsImported: len(doc.Reports),
		ReportsTotal:    len(merged),
	}
	if doc.CustomMenus != nil {
		if err := s.repo.SaveMenus(ctx, doc.CustomMenus); err != nil {
			return result, err
		}
		result.MenusReplaced = true
	}
	if doc.PlatformConfigs != nil {
		if err := s.repo.SavePlatforms(ctx, doc.PlatformConfigs); err != nil {
			return result, err
		}
		result.ConfigsReplaced = true
	}

	slog.InfoContext(ctx, "Backup imported",
		"imported", result.ReportsImported,
		"total", result.ReportsTotal,
		"menus_replaced", result.MenusReplaced,
		"configs_replaced", result.ConfigsReplaced)
	return result, nil
}

// parseBackup accepts either a bare DailyReport array or the full
// backup document.
func parseBackup(raw []byte) (Backup, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Backup{}, fmt.Errorf("import document is empty")
	}
	if trimmed[0] == '[' {
		var reports []core.DailyReport
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return Backup{}, fmt.Errorf("parse report array: %w", err)
		}
		return Backup{Reports: reports}, nil
	}
	var doc Backup
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Backup{}, fmt.Errorf("parse backup document: %w", err)
	}
	return doc, nil
}
