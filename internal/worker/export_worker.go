// Package worker mirrors recorded expenses to the configured export target.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/sheets"
	"outlay/internal/storage"
)

// ExportWorker applies export messages to the spreadsheet target and keeps
// the sync bookkeeping in storage up to date. A periodic sweep re-exports
// expenses whose export message was lost (publish failure, broker restart).
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.Exporter
	batchSize int
	interval  time.Duration
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.Exporter, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
		interval:  interval,
	}
}

// HandleMessage processes one export message from the queue. Returning an
// error requeues the message.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	switch msg.Op {
	case amqp.OpExport:
		return w.exportExpense(ctx, msg.ID)
	case amqp.OpDelete:
		if err := w.exporter.DeleteExpense(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete from export target: %w", err)
		}
		return nil
	default:
		// Validate on the consume path should make this unreachable.
		slog.WarnContext(ctx, "Dropping message with unknown op", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *ExportWorker) exportExpense(ctx context.Context, id int64) error {
	expense, err := w.storage.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before the export ran; nothing to mirror.
		slog.InfoContext(ctx, "Expense gone before export, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	if err := w.exporter.AppendExpense(ctx, expense); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to export target: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// Run sweeps pending expenses on the configured interval until ctx is
// cancelled. It complements the queue-driven path rather than replacing it.
func (w *ExportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Export sweep started",
		"interval", w.interval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Export sweep stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "Export sweep failed", "error", err)
			}
		}
	}
}

// Sweep exports one batch of pending expenses.
func (w *ExportWorker) Sweep(ctx context.Context) error {
	pending, err := w.storage.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending expenses", "count", len(pending))
	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense", "id", p.ID, "error", err)
			// Keep going; the failed one stays marked for later inspection.
		}
	}
	return nil
}
