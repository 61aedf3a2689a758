package http

import (
	"log/slog"
	"net/http"

	"outlay/internal/insights"
)

type insightsCategory struct {
	Category  string
	Total     string
	LastMonth string
	Forecast  string
	SoftCap   string
	Anomaly   bool
	Tip       string
	Notes     []string
}

type insightsPage struct {
	Total       string
	Months      int
	TopCategory string
	Categories  []insightsCategory
	Suggestions []string
	Empty       bool
}

// handleInsights recomputes the full insights report from the store and
// renders it. Nothing is cached; the report always reflects current data.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	series, err := s.reader.MonthlyCategoryTotals(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Load monthly totals for insights failed", "error", err)
		http.Error(w, "failed to load insights", http.StatusInternalServerError)
		return
	}

	report := insights.ComputeFromSeries(series, s.insightOpts)

	page := insightsPage{
		Total:       report.Summary.Total.Format(),
		Months:      report.Summary.Months,
		TopCategory: report.Summary.TopCategory,
		Suggestions: report.Suggestions,
		Empty:       len(report.Categories) == 0,
	}
	for _, cs := range report.Categories {
		page.Categories = append(page.Categories, insightsCategory{
			Category:  cs.Category,
			Total:     cs.Total.Format(),
			LastMonth: cs.LastMonth.Format(),
			Forecast:  cs.Forecast.Format(),
			SoftCap:   cs.SoftCap.Format(),
			Anomaly:   cs.Anomaly,
			Tip:       cs.Tip,
			Notes:     cs.Notes,
		})
	}

	s.render(w, r, "insights.html", page)
}
