package memory

import (
	"context"
	"fmt"
	"sync"

	"jangbu/internal/core"
)

// Store is an in-process ReportWriter for tests and offline runs.
type Store struct {
	mu    sync.Mutex
	items []core.DailyReport
}

func New() *Store {
	return &Store{}
}

// AppendReport stores the report and returns a synthetic row reference.
func (s *Store) AppendReport(_ context.Context, r core.DailyReport) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []core.DailyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.DailyReport(nil), s.items...)
}
