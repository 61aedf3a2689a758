// Package sheets defines the ports for mirroring expenses to an external
// spreadsheet.
package sheets

import (
	"context"

	"outlay/internal/core"
)

// Exporter mirrors expense records to an external target. Implementations
// must be idempotent per expense id so requeued messages are safe.
type Exporter interface {
	// AppendExpense writes one expense row to the target.
	AppendExpense(ctx context.Context, e core.Expense) error

	// DeleteExpense removes the row for the given expense id. Deleting an
	// id that was never exported is not an error.
	DeleteExpense(ctx context.Context, id int64) error
}
