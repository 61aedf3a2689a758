package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/sheets/memory"
	"outlay/internal/storage"
)

func newTestWorker(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *memory.Exporter) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	exporter := memory.New()
	return NewExportWorker(repo, exporter, 10, time.Second), repo, exporter
}

func storeExpense(t *testing.T, repo *storage.SQLiteRepository) core.Expense {
	t.Helper()
	saved, err := repo.CreateExpense(context.Background(), core.Expense{
		Date:     core.NewDate(2024, 3, 15),
		Amount:   core.Money{Cents: 4250},
		Category: "Food",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return saved
}

func TestHandleExportMessage(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	saved := storeExpense(t, repo)

	if err := w.HandleMessage(ctx, amqp.NewExportMessage(saved.ID, amqp.OpExport)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	exported, ok := exporter.Get(saved.ID)
	if !ok {
		t.Fatalf("expense not exported")
	}
	if exported.Amount.Cents != 4250 || exported.Category != "Food" {
		t.Fatalf("unexpected exported record %+v", exported)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending after export, got %+v", pending)
	}
}

func TestHandleExportOfDeletedExpense(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	saved := storeExpense(t, repo)
	if err := repo.DeleteExpense(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The expense vanished before the message arrived; not an error.
	if err := w.HandleMessage(ctx, amqp.NewExportMessage(saved.ID, amqp.OpExport)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exporter.Len() != 0 {
		t.Fatalf("deleted expense must not be exported")
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	saved := storeExpense(t, repo)

	if err := w.HandleMessage(ctx, amqp.NewExportMessage(saved.ID, amqp.OpExport)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewExportMessage(saved.ID, amqp.OpDelete)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exporter.Len() != 0 {
		t.Fatalf("expected exported row removed")
	}
}

type failingExporter struct{}

func (failingExporter) AppendExpense(context.Context, core.Expense) error {
	return errors.New("target unavailable")
}

func (failingExporter) DeleteExpense(context.Context, int64) error {
	return errors.New("target unavailable")
}

func TestExportFailureMarksSyncError(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	w := NewExportWorker(repo, failingExporter{}, 10, time.Second)
	ctx := context.Background()
	saved := storeExpense(t, repo)

	if err := w.HandleMessage(ctx, amqp.NewExportMessage(saved.ID, amqp.OpExport)); err == nil {
		t.Fatalf("expected error from failing target")
	}

	// The expense leaves the pending set: it is marked errored, not retried
	// blindly by every sweep.
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected expense marked with sync error, got pending %+v", pending)
	}
}

func TestSweepExportsPending(t *testing.T) {
	w, repo, exporter := newTestWorker(t)
	ctx := context.Background()
	first := storeExpense(t, repo)
	second := storeExpense(t, repo)

	if err := w.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if exporter.Len() != 2 {
		t.Fatalf("expected both expenses exported, got %d", exporter.Len())
	}
	if _, ok := exporter.Get(first.ID); !ok {
		t.Fatalf("first expense missing")
	}
	if _, ok := exporter.Get(second.ID); !ok {
		t.Fatalf("second expense missing")
	}

	// A second sweep finds nothing to do.
	if err := w.Sweep(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if exporter.Len() != 2 {
		t.Fatalf("sweep must be idempotent")
	}
}
