// Package memory provides an in-process Exporter used in local mode and tests.
package memory

import (
	"context"
	"sync"

	"outlay/internal/core"
	ports "outlay/internal/sheets"
)

// Exporter keeps exported expenses in memory, keyed by id.
type Exporter struct {
	mu   sync.Mutex
	rows map[int64]core.Expense
}

var _ ports.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{rows: make(map[int64]core.Expense)}
}

func (m *Exporter) AppendExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.ID] = e
	return nil
}

func (m *Exporter) DeleteExpense(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Get returns the exported expense for an id, if present.
func (m *Exporter) Get(id int64) (core.Expense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	return e, ok
}

// Len returns the number of exported rows.
func (m *Exporter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
