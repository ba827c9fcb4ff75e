// Package store defines the key-value byte store the ledger persists
// into, along with the fixed set of logical keys it uses. Payloads are
// UTF-8 JSON documents; the store itself never interprets them.
package store

import "context"

// Store is the persistence contract. Get reports absence via the bool
// so callers can distinguish "no data yet" from a read failure.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Logical keys for the current storage generation.
const (
	KeyReports   = "kh_sales_v26"
	KeyMenus     = "kh_config_menus_v26"
	KeyPlatforms = "kh_config_platforms_v26"
	KeyDraft     = "kh_draft_v26"

	// KeySheetCursor tracks the newest createdAt already mirrored to
	// the spreadsheet by the sync worker.
	KeySheetCursor = "kh_sheet_cursor_v26"
)

// LegacyReportKeys lists historical report locations in the order the
// consolidation scan visits them. Order matters: when two sources carry
// the same report id, the later source wins. Each key is optional.
func LegacyReportKeys() []string {
	return []string{
		"kh_sales_v24_final",
		"kh_sales_v24",
		"sales_data",
	}
}
