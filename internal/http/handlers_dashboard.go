package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"outlay/internal/core"
)

type categoryBar struct {
	Name   string
	Amount string
	Width  int // percent of the largest category
}

type monthBar struct {
	Month  string
	Amount string
	Width  int
}

type dashboardPage struct {
	Year       int
	Month      int
	MonthTotal string
	ByCategory []categoryBar
	ByMonth    []monthBar
	Recent     []expenseRow
}

// handleDashboard renders the landing page: the selected month's overview,
// the all-time monthly spend chart, and the ten most recent expenses.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	page := dashboardPage{Year: year, Month: month}

	ov, err := s.reader.MonthOverview(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month overview failed", "error", err, "year", year, "month", month)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	page.MonthTotal = ov.Total.Format()

	var maxCents int64
	for _, c := range ov.ByCategory {
		if c.Amount.Cents > maxCents {
			maxCents = c.Amount.Cents
		}
	}
	for _, c := range ov.ByCategory {
		page.ByCategory = append(page.ByCategory, categoryBar{
			Name:   c.Name,
			Amount: c.Amount.Format(),
			Width:  barWidth(c.Amount.Cents, maxCents),
		})
	}

	months, err := s.reader.TotalsByMonth(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Month totals failed", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	maxCents = 0
	for _, m := range months {
		if m.Amount.Cents > maxCents {
			maxCents = m.Amount.Cents
		}
	}
	for _, m := range months {
		page.ByMonth = append(page.ByMonth, monthBar{
			Month:  m.Month,
			Amount: m.Amount.Format(),
			Width:  barWidth(m.Amount.Cents, maxCents),
		})
	}

	recent, err := s.reader.ListExpenses(r.Context(), core.Filter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "Recent expenses failed", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	if len(recent) > 10 {
		recent = recent[:10]
	}
	page.Recent = toExpenseRows(recent)

	s.render(w, r, "index.html", page)
}

// barWidth maps an amount to a rounded percent of the largest bar,
// keeping tiny non-zero values visible.
func barWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
