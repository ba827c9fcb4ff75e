// Package services orchestrates ledger operations across the local
// store and the AMQP sync channel.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"jangbu/internal/core"
	"jangbu/internal/ledger"
)

// SyncPublisher publishes finalized-settlement sync messages.
type SyncPublisher interface {
	PublishSettlementSync(ctx context.Context, reportID, date string) error
}

// SettlementService finalizes the working draft and mirrors the result
// to the spreadsheet worker.
type SettlementService struct {
	finalizer *ledger.Finalizer
	publisher SyncPublisher
}

func NewSettlementService(finalizer *ledger.Finalizer, publisher SyncPublisher) *SettlementService {
	return &SettlementService{
		finalizer: finalizer,
		publisher: publisher,
	}
}

// FinalizeDay commits the draft to the local store first, then
// publishes a sync message. A publish failure never fails the user
// action; the worker's backlog scan picks the report up later.
func (s *SettlementService) FinalizeDay(ctx context.Context) (core.DailyReport, error) {
	report, err := s.finalizer.Finalize(ctx)
	if err != nil {
		return core.DailyReport{}, err
	}

	if err := s.publishSyncMessage(ctx, report); err != nil {
		slog.ErrorContext(ctx, "Failed to publish settlement sync message",
			"report_id", report.ID, "error", err)
	}

	return report, nil
}

func (s *SettlementService) publishSyncMessage(ctx context.Context, r core.DailyReport) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishSettlementSync(ctx, r.ID, r.Date.String())
}

// Close closes the publisher connection when it owns one.
func (s *SettlementService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
