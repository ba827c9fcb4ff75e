package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Period = "DAILY"
	Weekly  Period = "WEEKLY"
	Monthly Period = "MONTHLY"
	Yearly  Period = "YEARLY"
)

type (
	// Period is a statistics bucket granularity.
	Period string

	// Platform identifies a sales channel. The set of platforms is
	// configuration, not a closed enum.
	Platform string

	// MenuSale is one menu line within a platform entry.
	MenuSale struct {
		MenuName string `json:"menuName"`
		Count    int64  `json:"count"`
		Amount   Money  `json:"amount"`
	}

	// PlatformEntry holds one platform's sales for a single day,
	// including the derived fee and settlement amounts.
	PlatformEntry struct {
		Platform            Platform   `json:"platform"`
		MenuSales           []MenuSale `json:"menuSales"`
		PlatformTotalAmount Money      `json:"platformTotalAmount"`
		PlatformTotalCount  int64      `json:"platformTotalCount"`
		FeeAmount           Money      `json:"feeAmount"`
		SettlementAmount    Money      `json:"settlementAmount"`
	}

	// DailyReport is a finalized daily settlement. Once created it is
	// immutable; corrections happen by replacement, never mutation.
	DailyReport struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Entries     []PlatformEntry `json:"entries"`
		TotalAmount Money           `json:"totalAmount"`
		TotalCount  int64           `json:"totalCount"`
		Memo        string          `json:"memo"`
		CreatedAt   int64           `json:"createdAt"` // unix millis
	}

	// Draft is the mutable, unfinalized settlement for one working
	// date. Entries are keyed by platform; re-saving a platform
	// replaces its previous entry.
	Draft struct {
		Date    Date            `json:"date"`
		Entries []PlatformEntry `json:"entries"`
		Memo    string          `json:"memo"`
	}

	// PlatformConfig is the display name and fee rate for a platform.
	PlatformConfig struct {
		ID      Platform `json:"id"`
		Name    string   `json:"name"`
		FeeRate float64  `json:"feeRate"`
	}

	// PlatformConfigs maps platform id to its configuration.
	PlatformConfigs map[Platform]PlatformConfig
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCount      = errors.New("invalid count")
	ErrEmptyMenuName     = errors.New("empty menu name")
	ErrEmptyPlatform     = errors.New("empty platform")
	ErrEmptyDraft        = errors.New("draft has no platform entries")
	ErrInvalidFeeRate    = errors.New("fee rate must be in [0, 1)")
	ErrDuplicatePlatform = errors.New("duplicate platform entry")
)

func (p Period) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (s MenuSale) Validate() error {
	if strings.TrimSpace(s.MenuName) == "" {
		return ErrEmptyMenuName
	}
	if s.Count < 0 {
		return ErrInvalidCount
	}
	return s.Amount.Validate()
}

// NewPlatformEntry builds an entry from raw menu lines, computing the
// derived totals and the fee for the given rate. Lines with neither
// count nor amount are dropped.
func NewPlatformEntry(platform Platform, sales []MenuSale, feeRate float64) PlatformEntry {
	kept := make([]MenuSale, 0, len(sales))
	var amount Money
	var count int64
	for _, s := range sales {
		if s.Count == 0 && s.Amount.Won == 0 {
			continue
		}
		kept = append(kept, s)
		amount = amount.Add(s.Amount)
		count += s.Count
	}
	fee := Fee(amount, feeRate)
	return PlatformEntry{
		Platform:            platform,
		MenuSales:           kept,
		PlatformTotalAmount: amount,
		PlatformTotalCount:  count,
		FeeAmount:           fee,
		SettlementAmount:    amount.Sub(fee),
	}
}

func (e PlatformEntry) Validate() error {
	if strings.TrimSpace(string(e.Platform)) == "" {
		return ErrEmptyPlatform
	}
	for _, s := range e.MenuSales {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if err := e.PlatformTotalAmount.Validate(); err != nil {
		return err
	}
	if e.PlatformTotalCount < 0 {
		return ErrInvalidCount
	}
	// Totals must match the menu breakdown when one exists. Entries
	// migrated from flat legacy records have no breakdown and keep the
	// recorded totals as-is.
	if len(e.MenuSales) > 0 {
		var amount Money
		var count int64
		for _, s := range e.MenuSales {
			amount = amount.Add(s.Amount)
			count += s.Count
		}
		if amount != e.PlatformTotalAmount || count != e.PlatformTotalCount {
			return errors.New("platform totals do not match menu sales")
		}
	}
	if e.SettlementAmount != e.PlatformTotalAmount.Sub(e.FeeAmount) {
		return errors.New("settlement amount does not match total minus fee")
	}
	return nil
}

func (r DailyReport) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("empty report id")
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(r.Entries) == 0 {
		return ErrEmptyDraft
	}
	seen := make(map[Platform]struct{}, len(r.Entries))
	var amount Money
	var count int64
	for _, e := range r.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.Platform]; dup {
			return ErrDuplicatePlatform
		}
		seen[e.Platform] = struct{}{}
		amount = amount.Add(e.PlatformTotalAmount)
		count += e.PlatformTotalCount
	}
	if amount != r.TotalAmount || count != r.TotalCount {
		return errors.New("report totals do not match entries")
	}
	return nil
}

// CreatedTime returns the creation timestamp as time.Time.
func (r DailyReport) CreatedAtTime() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Upsert replaces any existing entry for the same platform, appending
// otherwise. Entry order follows first save order per platform.
func (d *Draft) Upsert(e PlatformEntry) {
	for i := range d.Entries {
		if d.Entries[i].Platform == e.Platform {
			d.Entries[i] = e
			return
		}
	}
	d.Entries = append(d.Entries, e)
}

// EntryFor returns the draft entry for a platform, if present.
func (d Draft) EntryFor(p Platform) (PlatformEntry, bool) {
	for _, e := range d.Entries {
		if e.Platform == p {
			return e, true
		}
	}
	return PlatformEntry{}, false
}

// IsEmpty reports whether the draft has no platform entries. A draft
// with only a memo is still empty for finalization purposes.
func (d Draft) IsEmpty() bool {
	return len(d.Entries) == 0
}

// Totals sums the platform totals across all draft entries.
func (d Draft) Totals() (Money, int64) {
	var amount Money
	var count int64
	for _, e := range d.Entries {
		amount = amount.Add(e.PlatformTotalAmount)
		count += e.PlatformTotalCount
	}
	return amount, count
}

func (c PlatformConfig) Validate() error {
	if strings.TrimSpace(string(c.ID)) == "" {
		return ErrEmptyPlatform
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty platform name")
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return ErrInvalidFeeRate
	}
	return nil
}

// FeeRate returns the configured rate for a platform, zero if unknown.
func (cs PlatformConfigs) FeeRate(p Platform) float64 {
	if c, ok := cs[p]; ok {
		return c.FeeRate
	}
	return 0
}
