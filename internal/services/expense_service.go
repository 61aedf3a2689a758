// Package services provides business logic and orchestration.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/storage"
)

// ExportPublisher sends export messages to the queue. *amqp.Client
// implements it; tests substitute a recorder.
type ExportPublisher interface {
	Publish(ctx context.Context, msg *amqp.ExportMessage) error
}

// ExpenseService orchestrates expense writes: storage first, then a
// best-effort export message. A nil publisher means local-only mode.
type ExpenseService struct {
	storage   *storage.SQLiteRepository
	publisher ExportPublisher
}

func NewExpenseService(storage *storage.SQLiteRepository, publisher ExportPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
	}
}

// Create validates and saves an expense, then queues it for export.
// A publish failure is logged but does not fail the request; the expense
// stays pending and the worker's periodic sweep picks it up later.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, saved.ID, amqp.OpExport)
	return saved, nil
}

// Delete removes an expense and queues the matching export deletion.
func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, id, amqp.OpDelete)
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, id int64, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewExportMessage(id, op)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", id, "op", op, "error", err)
	}
}
