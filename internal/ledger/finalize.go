package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jangbu/internal/core"
)

// Finalizer turns the working draft into an immutable DailyReport and
// commits it to the canonical set.
type Finalizer struct {
	repo   *Repository
	drafts *DraftBuilder

	// Injectable for tests; default to the wall clock and random ids.
	now   func() time.Time
	newID func() string
}

func NewFinalizer(repo *Repository, drafts *DraftBuilder) *Finalizer {
	return &Finalizer{
		repo:   repo,
		drafts: drafts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Finalize fails with core.ErrEmptyDraft when the draft holds no
// platform entries; the canonical set is untouched in that case. On
// success the new report is prepended and the set re-sorted, so it
// leads its date group even under clock skew, and the draft checkpoint
// is cleared.
func (f *Finalizer) Finalize(ctx context.Context) (core.DailyReport, error) {
	draft := f.drafts.Draft()
	if draft.IsEmpty() {
		return core.DailyReport{}, core.ErrEmptyDraft
	}

	date := draft.Date
	if date.IsZero() {
		date = core.Today()
	}
	amount, count := draft.Totals()

	report := core.DailyReport{
		ID:          f.newID(),
		Date:        date,
		Entries:     draft.Entries,
		TotalAmount: amount,
		TotalCount:  count,
		Memo:        draft.Memo,
		CreatedAt:   f.now().UnixMilli(),
	}

	reports, err := f.repo.LoadReports(ctx)
	if err != nil {
		return core.DailyReport{}, err
	}
	reports = append([]core.DailyReport{report}, reports...)
	if err := f.repo.SaveReports(ctx, reports); err != nil {
		return core.DailyReport{}, err
	}

	// The settlement is committed at this point. A failed checkpoint
	// removal must not fail the operation: retrying the whole finalize
	// would mint a second report for the same day.
	if err := f.drafts.Clear(ctx); err != nil {
		slog.WarnContext(ctx, "Settlement committed but draft checkpoint not cleared", "error", err)
	}

	slog.InfoContext(ctx, "Daily settlement finalized",
		"report_id", report.ID,
		"date", report.Date.String(),
		"total_amount", report.TotalAmount.Won,
		"total_count", report.TotalCount,
		"platforms", len(report.Entries))

	return report, nil
}
