// Package insights derives spending analytics from expense records.
//
// The engine is a pure function of its input: it groups amounts by category
// and calendar month, fits a linear trend per category to forecast the next
// month's spend, flags months that run well above the trailing average, and
// attaches a saving tip per category. It performs no I/O and never fails on
// valid domain data.
package insights

import (
	"fmt"
	"math"
	"sort"

	"outlay/internal/core"
)

// Options tunes the engine. Zero values fall back to defaults, so an empty
// Options is always safe to pass.
type Options struct {
	// AnomalyMultiplier flags the latest month when its total exceeds the
	// trailing average of prior months by this factor. Default 1.5.
	AnomalyMultiplier float64

	// CapMargin multiplies the forecast to produce the suggested soft cap.
	// Default 1.10.
	CapMargin float64
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		AnomalyMultiplier: 1.5,
		CapMargin:         1.10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AnomalyMultiplier <= 0 {
		o.AnomalyMultiplier = d.AnomalyMultiplier
	}
	if o.CapMargin <= 0 {
		o.CapMargin = d.CapMargin
	}
	return o
}

type (
	// MonthTotal is one point of a category's monthly series.
	MonthTotal struct {
		Month string // "YYYY-MM"
		Total core.Money
	}

	// CategorySummary is the derived view of one category. It is recomputed
	// on every request and never persisted.
	CategorySummary struct {
		Category  string
		Months    []MonthTotal // ascending in time, gaps filled with zero
		Total     core.Money
		LastMonth core.Money
		Forecast  core.Money
		SoftCap   core.Money
		Anomaly   bool
		ZScore    float64
		NoHistory bool // set when the category has no observed months
		Tip       string
		Notes     []string
	}

	// Summary aggregates the whole report.
	Summary struct {
		Total       core.Money
		Months      int // distinct months across all categories
		TopCategory string
	}

	Report struct {
		Summary     Summary
		Categories  []CategorySummary // sorted by category name
		Suggestions []string
	}
)

// Compute builds the full insights report for the given expenses.
func Compute(expenses []core.Expense, opts Options) Report {
	byCategory := make(map[string]map[string]int64) // category -> month key -> cents
	for _, e := range expenses {
		key := e.Date.MonthKey()
		m := byCategory[e.Category]
		if m == nil {
			m = make(map[string]int64)
			byCategory[e.Category] = m
		}
		m[key] += e.Amount.Cents
	}
	return compute(byCategory, opts)
}

// ComputeFromSeries builds the report from pre-aggregated per-category
// monthly totals, as produced by the store's MonthlyCategoryTotals.
func ComputeFromSeries(series []core.CategoryMonthTotal, opts Options) Report {
	byCategory := make(map[string]map[string]int64)
	for _, cmt := range series {
		m := byCategory[cmt.Category]
		if m == nil {
			m = make(map[string]int64)
			byCategory[cmt.Category] = m
		}
		m[cmt.Month] += cmt.Total.Cents
	}
	return compute(byCategory, opts)
}

func compute(byCategory map[string]map[string]int64, opts Options) Report {
	opts = opts.withDefaults()

	if len(byCategory) == 0 {
		return Report{
			Suggestions: []string{"Add expenses to unlock insights."},
		}
	}

	allMonths := make(map[string]struct{})
	var totalCents int64
	for _, byMonth := range byCategory {
		for key, cents := range byMonth {
			allMonths[key] = struct{}{}
			totalCents += cents
		}
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{
		Summary: Summary{
			Total:  core.Money{Cents: totalCents},
			Months: len(allMonths),
		},
	}

	var topTotal int64
	for _, name := range names {
		cs := summarizeCategory(name, byCategory[name], opts)
		if cs.Total.Cents > topTotal {
			topTotal = cs.Total.Cents
			report.Summary.TopCategory = name
		}
		report.Categories = append(report.Categories, cs)
	}

	report.Suggestions = globalSuggestions(report.Categories, byCategory)
	return report
}

// summarizeCategory computes the per-category analytics over its monthly
// totals. Months inside the category's observed span with no spend count
// as zero, so the series is evenly spaced for the trend fit.
func summarizeCategory(name string, byMonth map[string]int64, opts Options) CategorySummary {
	cs := CategorySummary{Category: name, Tip: TipFor(name)}

	cs.Months = fillMonthSeries(byMonth)
	if len(cs.Months) == 0 {
		cs.NoHistory = true
		return cs
	}

	series := make([]float64, len(cs.Months))
	for i, mt := range cs.Months {
		series[i] = float64(mt.Total.Cents)
		cs.Total.Cents += mt.Total.Cents
	}
	last := series[len(series)-1]
	prior := series[:len(series)-1]
	cs.LastMonth = core.Money{Cents: int64(last)}

	forecast := forecastNext(series)
	cs.Forecast = core.Money{Cents: roundCents(forecast)}
	cs.SoftCap = core.Money{Cents: roundCents(forecast * opts.CapMargin)}

	if len(prior) > 0 {
		avg := mean(prior)
		cs.Anomaly = last > avg*opts.AnomalyMultiplier
		cs.ZScore = zscore(last, prior)
	}

	cs.Notes = categoryNotes(cs, forecast)
	return cs
}

// forecastNext extrapolates the series one month ahead.
//
// Two or more points: ordinary least squares on month index vs total,
// evaluated one step past the last observed month, clamped at zero.
// One point: no trend exists, so the forecast is that observation.
// Empty series: zero (callers mark it NoHistory instead of extrapolating).
func forecastNext(series []float64) float64 {
	n := len(series)
	switch n {
	case 0:
		return 0
	case 1:
		return series[0]
	}

	meanX := float64(n-1) / 2
	meanY := mean(series)
	var num, den float64
	for i, y := range series {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	slope := num / den
	intercept := meanY - slope*meanX
	forecast := slope*float64(n) + intercept
	return math.Max(0, forecast)
}

// fillMonthSeries expands the sparse month map into an ascending series,
// padding interior gaps with zero totals.
func fillMonthSeries(byMonth map[string]int64) []MonthTotal {
	if len(byMonth) == 0 {
		return nil
	}
	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []MonthTotal
	for key := keys[0]; ; key = nextMonthKey(key) {
		out = append(out, MonthTotal{Month: key, Total: core.Money{Cents: byMonth[key]}})
		if key == keys[len(keys)-1] {
			break
		}
	}
	return out
}

func nextMonthKey(key string) string {
	var year, month int
	fmt.Sscanf(key, "%d-%d", &year, &month)
	month++
	if month > 12 {
		month = 1
		year++
	}
	return fmt.Sprintf("%04d-%02d", year, month)
}

func categoryNotes(cs CategorySummary, forecast float64) []string {
	var notes []string
	last := float64(cs.LastMonth.Cents)
	switch {
	case forecast > 0 && last > forecast*1.1:
		notes = append(notes, fmt.Sprintf(
			"Last month in %s ran above trend. Aim for %s next month.",
			cs.Category, cs.SoftCap.Format()))
	case forecast > 0:
		notes = append(notes, fmt.Sprintf(
			"Stay on track in %s. Expected spend next month: %s.",
			cs.Category, cs.Forecast.Format()))
	}
	if cs.ZScore >= 1.5 {
		notes = append(notes, fmt.Sprintf(
			"Possible spike in %s last month (z~%.1f). Review big charges.",
			cs.Category, cs.ZScore))
	}
	return notes
}

// globalSuggestions emits report-level advice: soft caps for the two
// categories with the highest forecast, and a warning when the last
// quarter's average monthly spend exceeds the previous quarter's by >10%.
func globalSuggestions(categories []CategorySummary, byCategory map[string]map[string]int64) []string {
	var suggestions []string

	top := make([]CategorySummary, len(categories))
	copy(top, categories)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Forecast.Cents > top[j].Forecast.Cents
	})
	for i := 0; i < len(top) && i < 2; i++ {
		if top[i].Forecast.Cents <= 0 {
			break
		}
		suggestions = append(suggestions, fmt.Sprintf(
			"Set a monthly soft cap for %s around %s.",
			top[i].Category, top[i].SoftCap.Format()))
	}

	monthTotals := make(map[string]int64)
	for _, byMonth := range byCategory {
		for key, cents := range byMonth {
			monthTotals[key] += cents
		}
	}
	months := make([]string, 0, len(monthTotals))
	for key := range monthTotals {
		months = append(months, key)
	}
	sort.Strings(months)
	if len(months) >= 6 {
		var recent, earlier float64
		for _, key := range months[len(months)-3:] {
			recent += float64(monthTotals[key])
		}
		for _, key := range months[len(months)-6 : len(months)-3] {
			earlier += float64(monthTotals[key])
		}
		if recent/3 > (earlier/3)*1.1 {
			suggestions = append(suggestions,
				"Overall spending has risen 10%+ in the last quarter vs the previous. Consider a temporary 5-10% cut across variable categories.")
		}
	}

	return suggestions
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func zscore(value float64, arr []float64) float64 {
	if len(arr) == 0 {
		return 0
	}
	m := mean(arr)
	var variance float64
	if len(arr) > 1 {
		for _, x := range arr {
			variance += (x - m) * (x - m)
		}
		variance /= float64(len(arr))
	}
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return (value - m) / std
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
