package insights

import "strings"

// categoryTips maps lower-cased category names to canned saving ideas.
var categoryTips = map[string]string{
	"groceries":     "Plan weekly meals, buy generics, and avoid frequent small trips.",
	"food":          "Plan weekly meals, buy generics, and avoid frequent small trips.",
	"dining":        "Batch-cook on weekends and set a dining-out cap per week.",
	"transport":     "Combine errands into one trip and compare fuel apps.",
	"shopping":      "Use a 24-hour rule for non-essentials; track return windows.",
	"entertainment": "Rotate subscriptions monthly; look for student discounts.",
	"rent":          "Renegotiate at renewal, or find a roommate if reasonable.",
	"utilities":     "Set thermostat schedules and check for energy-efficient plans.",
	"travel":        "Book mid-week, and set far-in-advance fare alerts.",
	"health":        "Use in-network providers; buy eligible essentials in bulk.",
	"other":         "Set a monthly misc cap and move leftover funds to savings.",
}

const genericTip = "Track this category for a month, then set a realistic cap."

// TipFor returns a canned saving tip for a category. Lookup is
// case-insensitive and ignores surrounding whitespace; unknown categories
// get a generic fallback.
func TipFor(category string) string {
	if tip, ok := categoryTips[strings.ToLower(strings.TrimSpace(category))]; ok {
		return tip
	}
	return genericTip
}
