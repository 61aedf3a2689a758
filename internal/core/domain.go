package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Date is a calendar date (year-month-day). The time of day is always
	// midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is one user-entered spending record.
	Expense struct {
		ID            int64
		Date          Date
		Amount        Money
		Category      string
		Merchant      string
		PaymentMethod string
		Note          string
	}

	// Filter narrows a listing. Zero-value fields impose no constraint;
	// set fields are combined with AND.
	Filter struct {
		Category string
		From     Date
		To       Date
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
)

const DateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// MonthKey returns the "YYYY-MM" key used for monthly grouping.
// Lexicographic order of keys matches chronological order.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.Year(), d.Month())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Category) > 64 {
		return errors.New("category too long (max 64 characters)")
	}
	if len(e.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

// MonthRange returns the first day of the given month and the first day of
// the next month, the half-open interval used by month aggregations.
func MonthRange(year, month int) (Date, Date) {
	start := NewDate(year, month, 1)
	return start, Date{Time: start.AddDate(0, 1, 0)}
}
