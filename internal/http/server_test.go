package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"outlay/internal/core"
	"outlay/internal/insights"
	"outlay/internal/services"
	"outlay/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := services.NewExpenseService(repo, nil)
	s := NewServer(":0", repo, svc, insights.Options{})
	t.Cleanup(func() { s.limiter.Stop() })
	return s, repo
}

func seedExpense(t *testing.T, repo *storage.SQLiteRepository, date string, cents int64, category string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	saved, err := repo.CreateExpense(context.Background(), core.Expense{
		Date:     d,
		Amount:   core.Money{Cents: cents},
		Category: category,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return saved
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpenseForm(t *testing.T) {
	s, repo := newTestServer(t)

	rec := postForm(t, s, "/expenses", url.Values{
		"date":     {"2024-03-10"},
		"amount":   {"42.50"},
		"category": {"groceries"},
		"merchant": {"corner shop"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusSeeOther, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/expenses" {
		t.Fatalf("redirect location = %q, want /expenses", loc)
	}

	expenses, err := repo.ListExpenses(context.Background(), core.Filter{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("stored %d expenses, want 1", len(expenses))
	}
	if expenses[0].Amount.Cents != 4250 {
		t.Fatalf("amount = %d cents, want 4250", expenses[0].Amount.Cents)
	}
	if expenses[0].Merchant != "corner shop" {
		t.Fatalf("merchant = %q", expenses[0].Merchant)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		form url.Values
	}{
		{"bad date", url.Values{"date": {"2024-13-01"}, "amount": {"10"}, "category": {"food"}}},
		{"bad amount", url.Values{"date": {"2024-03-10"}, "amount": {"abc"}, "category": {"food"}}},
		{"zero amount", url.Values{"date": {"2024-03-10"}, "amount": {"0"}, "category": {"food"}}},
		{"empty category", url.Values{"date": {"2024-03-10"}, "amount": {"10"}, "category": {"  "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(t, s, "/expenses", tc.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
		})
	}
}

func TestCreateFormKeepsValuesOnError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postForm(t, s, "/expenses", url.Values{
		"date":     {"2024-03-10"},
		"amount":   {"not-a-number"},
		"category": {"groceries"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "not-a-number") || !strings.Contains(body, "groceries") {
		t.Fatalf("re-rendered form lost submitted values")
	}
}

func TestListExpensesFilters(t *testing.T) {
	s, repo := newTestServer(t)
	seedExpense(t, repo, "2024-01-15", 1000, "food")
	seedExpense(t, repo, "2024-02-15", 2000, "travel")

	rec := get(t, s, "/expenses?category=food")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "2024-01-15") {
		t.Fatalf("filtered list missing matching expense")
	}
	if strings.Contains(body, "2024-02-15") {
		t.Fatalf("filtered list contains non-matching expense")
	}
}

func TestListExpensesBadDateWarns(t *testing.T) {
	s, repo := newTestServer(t)
	seedExpense(t, repo, "2024-01-15", 1000, "food")

	rec := get(t, s, "/expenses?from=nope")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Invalid start date") {
		t.Fatalf("expected warning in body")
	}
	if !strings.Contains(body, "2024-01-15") {
		t.Fatalf("bad filter should be ignored, not hide results")
	}
}

func TestDeleteExpense(t *testing.T) {
	s, repo := newTestServer(t)
	e := seedExpense(t, repo, "2024-01-15", 1000, "food")

	rec := postForm(t, s, "/expenses/delete", url.Values{"id": {formatID(e.ID)}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	rec = postForm(t, s, "/expenses/delete", url.Values{"id": {formatID(e.ID)}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDeleteRejectsBadID(t *testing.T) {
	s, _ := newTestServer(t)

	for _, id := range []string{"", "abc", "-1", "0"} {
		rec := postForm(t, s, "/expenses/delete", url.Values{"id": {id}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestDashboard(t *testing.T) {
	s, repo := newTestServer(t)
	seedExpense(t, repo, "2024-03-10", 4250, "groceries")

	rec := get(t, s, "/?year=2024&month=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "42.50") || !strings.Contains(body, "groceries") {
		t.Fatalf("dashboard missing month overview data")
	}
}

func TestInsightsPage(t *testing.T) {
	s, repo := newTestServer(t)
	seedExpense(t, repo, "2024-01-10", 10000, "groceries")
	seedExpense(t, repo, "2024-02-10", 12000, "groceries")

	rec := get(t, s, "/insights")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "groceries") {
		t.Fatalf("insights page missing category")
	}
	// Linear trend over 100.00, 120.00 projects 140.00 next month.
	if !strings.Contains(body, "140.00") {
		t.Fatalf("insights page missing forecast value")
	}
}

func TestInsightsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/insights")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not enough data") {
		t.Fatalf("empty insights page should say so")
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := get(t, s, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
