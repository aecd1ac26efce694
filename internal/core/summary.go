package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount

	// PercentChange is the month-over-month change versus the previous
	// calendar month. Nil when the previous month total is zero.
	PercentChange *float64
}

// FilterExpenses keeps expenses falling in the given calendar year and month.
// An empty category includes all categories, otherwise only exact matches.
func FilterExpenses(items []Expense, year, month int, category Category) []Expense {
	out := make([]Expense, 0, len(items))
	for _, e := range items {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SumExpenses totals the value of the given expenses.
func SumExpenses(items []Expense) Money {
	var cents int64
	for _, e := range items {
		cents += e.Value.Cents
	}
	return Money{Cents: cents}
}

// PercentChange computes (cur-prev)/prev*100, or nil when prev is zero so a
// missing baseline is never reported as 0% or infinity.
func PercentChange(prev, cur Money) *float64 {
	if prev.Cents == 0 {
		return nil
	}
	pct := float64(cur.Cents-prev.Cents) / float64(prev.Cents) * 100
	return &pct
}

// PreviousMonth returns the calendar month preceding year/month.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

/// SummarizeMonth builds the month view consumed by the dashboard: total,
// per-category totals, and change versus the previous month.
func SummarizeMonth(items []Expense, year, month int) MonthSummary {
	current := FilterExpenses(items, year, month, "")
	prevYear, prevMonth := PreviousMonth(year, month)
	previous := FilterExpenses(items, prevYear, prevMonth, "")

	summary := MonthSummary{
		Year:  year,
		Month: month,
		Total: SumExpenses(current),
	}

	totals := make(map[Category]int64)
	for _, e := range current {
		totals[e.Category] += e.Value.Cents
	}
	for _, c := range Categories() {
		if cents, ok := totals[c]; ok {
			summary.ByCategory = append(summary.ByCategory, CategoryAmount{
				Category: c,
				Amount:   Money{Cents: cents},
			})
		}
	}

	summary.PercentChange = PercentChange(SumExpenses(previous), summary.Total)
	return summary
}
