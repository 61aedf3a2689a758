package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"outlay/internal/amqp"
	"outlay/internal/core"
	"outlay/internal/storage"
)

type recordingPublisher struct {
	messages []*amqp.ExportMessage
	fail     bool
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.ExportMessage) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newTestService(t *testing.T, pub ExportPublisher) *ExpenseService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "outlay.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewExpenseService(repo, pub)
}

func validExpense() core.Expense {
	return core.Expense{
		Date:     core.NewDate(2024, 3, 15),
		Amount:   core.Money{Cents: 4250},
		Category: "Food",
	}
}

func TestCreatePublishesExportMessage(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)

	saved, err := svc.Create(context.Background(), validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.ID != saved.ID || msg.Op != amqp.OpExport {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	svc := newTestService(t, &recordingPublisher{fail: true})

	saved, err := svc.Create(context.Background(), validExpense())
	if err != nil {
		t.Fatalf("create must not fail on publish error: %v", err)
	}
	if saved.ID == 0 {
		t.Fatalf("expected stored expense")
	}
}

func TestCreateInvalidDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)

	_, err := svc.Create(context.Background(), core.Expense{})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("invalid expense must not be published")
	}
}

func TestDeletePublishesDeleteMessage(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, pub)
	ctx := context.Background()

	saved, err := svc.Create(ctx, validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	last := pub.messages[len(pub.messages)-1]
	if last.ID != saved.ID || last.Op != amqp.OpDelete {
		t.Fatalf("unexpected message %+v", last)
	}

	// Unknown ids surface NotFound and publish nothing.
	before := len(pub.messages)
	if err := svc.Delete(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.messages) != before {
		t.Fatalf("failed delete must not be published")
	}
}

func TestNilPublisherIsLocalOnly(t *testing.T) {
	svc := newTestService(t, nil)

	saved, err := svc.Create(context.Background(), validExpense())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
