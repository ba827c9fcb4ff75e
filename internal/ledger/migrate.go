package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jangbu/internal/core"
)

// shapeProbe classifies a raw record without committing to a schema.
type shapeProbe struct {
	Entries     []json.RawMessage `json:"entries"`
	Platform    string            `json:"platform"`
	TotalAmount json.RawMessage   `json:"totalAmount"`
}

// flatRecord is the v25 single-platform sale shape: one platform, one
// total, no menu breakdown.
type flatRecord struct {
	ID               string        `json:"id"`
	Date             core.Date     `json:"date"`
	Platform         core.Platform `json:"platform"`
	TotalAmount      core.Money    `json:"totalAmount"`
	FeeAmount        core.Money    `json:"feeAmount"`
	SettlementAmount *core.Money   `json:"settlementAmount"`
	CreatedAt        int64         `json:"createdAt"`
}

// MigrateRecord converts one raw stored record into the canonical
// DailyReport shape. It recognizes two historical shapes: records that
// already carry an entries sequence pass through unchanged, and flat
// v25 sale records are wrapped into a single-entry report. Anything
// else, including records that fail to decode, reports false so a batch
// scan can skip it and keep going.
func MigrateRecord(raw json.RawMessage, sourceKey string) (core.DailyReport, bool) {
	var probe shapeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return core.DailyReport{}, false
	}

	if len(probe.Entries) > 0 {
		var report core.DailyReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return core.DailyReport{}, false
		}
		return report, true
	}

	if probe.Platform != "" && definedJSON(probe.TotalAmount) {
		var rec flatRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return core.DailyReport{}, false
		}
		return convertFlat(rec, sourceKey), true
	}

	return core.DailyReport{}, false
}

// convertFlat wraps a flat sale record into a one-entry report. The
// menu breakdown is unknowable, so menuSales stays empty and the order
// count defaults to 1. The memo records the source key so converted
// rows stay auditable.
func convertFlat(rec flatRecord, sourceKey string) core.DailyReport {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = uuid.NewString()
	}
	date := rec.Date
	if date.IsZero() {
		date = core.Today()
	}
	settlement := rec.TotalAmount
	if rec.SettlementAmount != nil {
		settlement = *rec.SettlementAmount
	}
	createdAt := rec.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	return core.DailyReport{
		ID:   id,
		Date: date,
		Entries: []core.PlatformEntry{{
			Platform:            rec.Platform,
			MenuSales:           []core.MenuSale{},
			PlatformTotalAmount: rec.TotalAmount,
			PlatformTotalCount:  1,
			FeeAmount:           rec.FeeAmount,
			SettlementAmount:    settlement,
		}},
		TotalAmount: rec.TotalAmount,
		TotalCount:  1,
		Memo:        fmt.Sprintf("Converted from legacy data (%s)", sourceKey),
		CreatedAt:   createdAt,
	}
}

// definedJSON reports whether a raw field was present and not null,
// mirroring a JS "!== undefined" check. A stored zero still counts.
func definedJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
