package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthAmount represents an amount aggregated by "YYYY-MM" month key.
type MonthAmount struct {
	Month  string
	Amount Money
}

// CategoryMonthTotal is one cell of the category-by-month spend matrix.
type CategoryMonthTotal struct {
	Category string
	Month    string // "YYYY-MM"
	Total    Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}
