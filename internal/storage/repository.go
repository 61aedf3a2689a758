// Package storage persists expenses in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"outlay/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an expense id does not exist.
var ErrNotFound = errors.New("expense not found")

// SyncStatus values for the export outbox.
const (
	SyncPending = "pending"
	SyncDone    = "done"
	SyncError   = "error"
)

// PendingSyncExpense is the minimal record the export worker needs to queue
// an expense for syncing.
type PendingSyncExpense struct {
	ID        int64
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if necessary) the database at dbPath
// and brings the schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const expenseColumns = "id, date, amount_cents, category, merchant, payment_method, note"

// CreateExpense validates and inserts one expense, returning the stored
// record with its assigned id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (date, amount_cents, category, merchant, payment_method, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date.String(), e.Amount.Cents, e.Category, e.Merchant, e.PaymentMethod, e.Note)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"date", e.Date.String(),
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return e, nil
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// ListExpenses returns expenses matching the filter, newest first
// (date descending, id descending as tiebreak). Zero-value filter fields
// impose no constraint.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE 1=1"
	var args []any
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, f.To.String())
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses rows: %w", err)
	}
	return out, nil
}

// DeleteExpense hard-deletes one expense. Unknown ids return ErrNotFound.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d rows: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// TotalsByCategory sums amounts per category over one calendar month.
// A month with no expenses yields an empty map.
func (r *SQLiteRepository) TotalsByCategory(ctx context.Context, year, month int) (map[string]core.Money, error) {
	from, to := core.MonthRange(year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents)
		FROM expenses
		WHERE date >= ? AND date < ?
		GROUP BY category`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("totals by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]core.Money)
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals[category] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("totals by category rows: %w", err)
	}
	return totals, nil
}

// MonthOverview returns the month total plus per-category rows, largest
// category first, for the dashboard partial.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}

	totals, err := r.TotalsByCategory(ctx, year, month)
	if err != nil {
		return overview, err
	}
	for name, amount := range totals {
		overview.Total.Cents += amount.Cents
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: amount,
		})
	}
	sort.Slice(overview.ByCategory, func(i, j int) bool {
		a, b := overview.ByCategory[i], overview.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return overview, nil
}

// TotalsByMonth sums amounts per "YYYY-MM" month key across all expenses,
// ascending in time. Feeds the dashboard spending chart.
func (r *SQLiteRepository) TotalsByMonth(ctx context.Context) ([]core.MonthAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month, SUM(amount_cents)
		FROM expenses
		GROUP BY month
		ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("totals by month: %w", err)
	}
	defer rows.Close()

	var out []core.MonthAmount
	for rows.Next() {
		var ma core.MonthAmount
		if err := rows.Scan(&ma.Month, &ma.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		out = append(out, ma)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("totals by month rows: %w", err)
	}
	return out, nil
}

// MonthlyCategoryTotals returns the per-category per-month spend matrix,
// ordered by category then month. This is the series the insights engine
// consumes.
func (r *SQLiteRepository) MonthlyCategoryTotals(ctx context.Context) ([]core.CategoryMonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, substr(date, 1, 7) AS month, SUM(amount_cents)
		FROM expenses
		GROUP BY category, month
		ORDER BY category ASC, month ASC`)
	if err != nil {
		return nil, fmt.Errorf("monthly category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryMonthTotal
	for rows.Next() {
		var cmt core.CategoryMonthTotal
		if err := rows.Scan(&cmt.Category, &cmt.Month, &cmt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category month total: %w", err)
		}
		out = append(out, cmt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly category totals rows: %w", err)
	}
	return out, nil
}

// PendingSync returns expenses still waiting to be exported, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM expenses
		WHERE sync_status = ?
		ORDER BY id ASC
		LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncExpense
	for rows.Next() {
		var p PendingSyncExpense
		var createdAt string
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync expense: %w", err)
		}
		// SQLite stores CURRENT_TIMESTAMP as "YYYY-MM-DD HH:MM:SS" text.
		if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			p.CreatedAt = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending sync rows: %w", err)
	}
	return out, nil
}

// MarkSynced records a successful export of the expense.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed export attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET sync_status = ?, synced_at = CURRENT_TIMESTAMP
		WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sync status %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set sync status %d rows: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var date string
	if err := row.Scan(&e.ID, &date, &e.Amount.Cents, &e.Category,
		&e.Merchant, &e.PaymentMethod, &e.Note); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}
