package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"jangbu/internal/core"
	"jangbu/internal/store"
)

// DraftBuilder holds the single working draft and checkpoints it to the
// store on every mutation so an interrupted day survives a restart.
type DraftBuilder struct {
	mu    sync.Mutex
	store store.Store
	draft core.Draft
}

// NewDraftBuilder restores the draft checkpoint, if any. No checkpoint,
// or a corrupt one, yields an empty draft for the current date.
func NewDraftBuilder(ctx context.Context, s store.Store) (*DraftBuilder, error) {
	b := &DraftBuilder{store: s, draft: emptyDraft()}

	raw, ok, err := s.Get(ctx, store.KeyDraft)
	if err != nil {
		return nil, fmt.Errorf("restore draft checkpoint: %w", err)
	}
	if ok {
		var d core.Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			slog.WarnContext(ctx, "Draft checkpoint is corrupt, starting empty", "error", err)
		} else {
			if d.Date.IsZero() {
				d.Date = core.Today()
			}
			b.draft = d
		}
	}
	return b, nil
}

func emptyDraft() core.Draft {
	return core.Draft{Date: core.Today()}
}

// Draft returns a copy of the current draft.
func (b *DraftBuilder) Draft() core.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *DraftBuilder) snapshot() core.Draft {
	d := b.draft
	d.Entries = append([]core.PlatformEntry(nil), b.draft.Entries...)
	return d
}

// UpsertEntry saves one platform's entry, replacing any previous entry
// for the same platform, and checkpoints the draft.
func (b *DraftBuilder) UpsertEntry(ctx context.Context, e core.PlatformEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Upsert(e)
	return b.checkpoint(ctx)
}

// SetMemo updates the draft memo and checkpoints.
func (b *DraftBuilder) SetMemo(ctx context.Context, memo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Memo = memo
	return b.checkpoint(ctx)
}

// SetDate moves the draft to another working date and checkpoints.
func (b *DraftBuilder) SetDate(ctx context.Context, d core.Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Date = d
	return b.checkpoint(ctx)
}

// Clear discards the draft and removes its checkpoint.
func (b *DraftBuilder) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft = emptyDraft()
	if err := b.store.Remove(ctx, store.KeyDraft); err != nil {
		return fmt.Errorf("remove draft checkpoint: %w", err)
	}
	return nil
}

// MenuSummary aggregates menu lines across every platform entry in the
// draft, ordered by summed amount descending.
func (b *DraftBuilder) MenuSummary() []core.MenuTotal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.SummarizeMenus(b.draft.Entries)
}

func (b *DraftBuilder) checkpoint(ctx context.Context) error {
	raw, err := json.Marshal(b.draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := b.store.Set(ctx, store.KeyDraft, raw); err != nil {
		return fmt.Errorf("checkpoint draft: %w", err)
	}
	return nil
}
