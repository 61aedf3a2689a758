package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"outlay/internal/core"
	"outlay/internal/storage"
)

type expenseRow struct {
	ID       int64
	Date     string
	Amount   string
	Category string
	Merchant string
	Payment  string
	Note     string
}

type expensesPage struct {
	Expenses []expenseRow
	Total    string
	Category string
	From     string
	To       string
	Warning  string
}

func toExpenseRows(expenses []core.Expense) []expenseRow {
	rows := make([]expenseRow, len(expenses))
	for i, e := range expenses {
		rows[i] = expenseRow{
			ID:       e.ID,
			Date:     e.Date.String(),
			Amount:   e.Amount.Format(),
			Category: e.Category,
			Merchant: e.Merchant,
			Payment:  e.PaymentMethod,
			Note:     e.Note,
		}
	}
	return rows
}

// handleExpenses lists expenses (GET) or creates one (POST).
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListExpenses renders the filtered expense list. Filters are
// conjunctive; blank fields impose no constraint. An unparsable date is
// reported as a warning and ignored rather than failing the page.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := expensesPage{
		Category: sanitizeInput(q.Get("category")),
		From:     sanitizeInput(q.Get("from")),
		To:       sanitizeInput(q.Get("to")),
	}

	filter := core.Filter{Category: page.Category}
	if page.From != "" {
		d, err := core.ParseDate(page.From)
		if err != nil {
			page.Warning = "Invalid start date, expected YYYY-MM-DD."
			page.From = ""
		} else {
			filter.From = d
		}
	}
	if page.To != "" {
		d, err := core.ParseDate(page.To)
		if err != nil {
			page.Warning = "Invalid end date, expected YYYY-MM-DD."
			page.To = ""
		} else {
			filter.To = d
		}
	}

	expenses, err := s.reader.ListExpenses(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}

	var total core.Money
	for _, e := range expenses {
		total.Cents += e.Amount.Cents
	}
	page.Expenses = toExpenseRows(expenses)
	page.Total = total.Format()

	s.render(w, r, "expenses.html", page)
}

type addPage struct {
	Today string
	Error string
	// Preserved form values on validation failure
	Date     string
	Amount   string
	Category string
	Merchant string
	Payment  string
	Note     string
}

// handleAddForm renders the expense entry form.
func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.render(w, r, "add.html", addPage{Today: time.Now().Format(core.DateLayout)})
}

// handleCreateExpense validates the submitted form and stores the expense.
// Validation failures re-render the form with a 422 and the entered values.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form failed", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	page := addPage{
		Today:    time.Now().Format(core.DateLayout),
		Date:     sanitizeInput(r.Form.Get("date")),
		Amount:   sanitizeInput(r.Form.Get("amount")),
		Category: sanitizeInput(r.Form.Get("category")),
		Merchant: sanitizeInput(r.Form.Get("merchant")),
		Payment:  sanitizeInput(r.Form.Get("payment_method")),
		Note:     sanitizeInput(r.Form.Get("note")),
	}

	fail := func(msg string) {
		page.Error = msg
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "add.html", page)
	}

	date, err := core.ParseDate(page.Date)
	if err != nil {
		fail("Invalid date, expected YYYY-MM-DD.")
		return
	}
	cents, err := core.ParseDecimalToCents(page.Amount)
	if err != nil {
		fail("Amount must be a positive number.")
		return
	}

	expense := core.Expense{
		Date:          date,
		Amount:        core.Money{Cents: cents},
		Category:      page.Category,
		Merchant:      page.Merchant,
		PaymentMethod: page.Payment,
		Note:          page.Note,
	}
	if err := expense.Validate(); err != nil {
		fail("Invalid expense: " + err.Error())
		return
	}

	saved, err := s.writer.Create(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expense failed", "error", err,
			"category", expense.Category, "amount_cents", expense.Amount.Cents)
		http.Error(w, "failed to save expense", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", saved.ID,
		"category", saved.Category,
		"amount_cents", saved.Amount.Cents)

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

// handleDeleteExpense hard-deletes one expense by id.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(r.Form.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid expense id", http.StatusBadRequest)
		return
	}

	if err := s.writer.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "expense not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "Delete expense failed", "error", err, "expense_id", id)
		http.Error(w, "failed to delete expense", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}
