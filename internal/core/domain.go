package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Investments    Category = "Investments"
	Grocery        Category = "Grocery"
	Bills          Category = "Bills"
	Entertainment  Category = "Entertainment"
	Transportation Category = "Transportation"
	Healthcare     Category = "Healthcare"
	Other          Category = "Other"
)

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is one immutable entry in a user's expense log. ID is empty
	// until the store assigns one on creation.
	Expense struct {
		ID          string
		Category    Category
		Value       Money
		Description string
		Date        Date
	}

	// Profile is the per-user financial document. TotalBalance moves only
	// through expense add/delete or an explicit edit.
	Profile struct {
		TotalBalance  Money
		MonthlyIncome Money
		FirstName     string
		LastName      string
	}

	// ProfileUpdate is a partial edit with merge semantics: nil fields keep
	// their persisted values.
	ProfileUpdate struct {
		TotalBalance  *Money
		MonthlyIncome *Money
		FirstName     *string
		LastName      *string
	}

	// HealthMetrics is the per-user health document. Fields are edited
	// independently, there are no cross-field invariants.
	HealthMetrics struct {
		DailySteps int
		HeartRate  int
		SleepHours float64
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// Categories lists every accepted expense category in display order.
func Categories() []Category {
	return []Category{Investments, Grocery, Bills, Entertainment, Transportation, Healthcare, Other}
}

func (c Category) Valid() bool {
	switch c {
	case Investments, Grocery, Bills, Entertainment, Transportation, Healthcare, Other:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a Date at UTC midnight for year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
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

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
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
	if err := e.Value.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(e.Category)) == "" || !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// IsZero reports whether the update carries no fields at all.
func (u ProfileUpdate) IsZero() bool {
	return u.TotalBalance == nil && u.MonthlyIncome == nil && u.FirstName == nil && u.LastName == nil
}

// Apply overlays the update onto p, leaving absent fields untouched.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.TotalBalance != nil {
		p.TotalBalance = *u.TotalBalance
	}
	if u.MonthlyIncome != nil {
		p.MonthlyIncome = *u.MonthlyIncome
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
}
