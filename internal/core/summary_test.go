package core

import "testing"

func sampleExpenses() []Expense {
	return []Expense{
		{ID: "a", Category: Grocery, Value: Money{Cents: 4000}, Date: NewDate(2023, 12, 28)},
		{ID: "b", Category: Bills, Value: Money{Cents: 6000}, Date: NewDate(2023, 12, 30)},
		{ID: "c", Category: Grocery, Value: Money{Cents: 2500}, Date: NewDate(2024, 1, 2)},
		{ID: "d", Category: Entertainment, Value: Money{Cents: 1500}, Date: NewDate(2024, 1, 15)},
		{ID: "e", Category: Grocery, Value: Money{Cents: 1000}, Date: NewDate(2024, 2, 1)},
	}
}

func TestFilterExpensesByYearMonth(t *testing.T) {
	got := FilterExpenses(sampleExpenses(), 2024, 1, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses for 2024-01, got %d", len(got))
	}
	for _, e := range got {
		if e.Date.Year() != 2024 || e.Date.Month() != 1 {
			t.Fatalf("expense %s outside filter window", e.ID)
		}
	}
}

func TestFilterExpensesByCategory(t *testing.T) {
	got := FilterExpenses(sampleExpenses(), 2024, 1, Grocery)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected only expense c, got %+v", got)
	}
}

func TestSumExpenses(t *testing.T) {
	if got := SumExpenses(sampleExpenses()); got.Cents != 15000 {
		t.Fatalf("expected 15000, got %d", got.Cents)
	}
	if got := SumExpenses(nil); got.Cents != 0 {
		t.Fatalf("expected 0 for empty, got %d", got.Cents)
	}
}

func TestPercentChange(t *testing.T) {
	if got := PercentChange(Money{Cents: 0}, Money{Cents: 5000}); got != nil {
		t.Fatalf("zero previous must yield nil, got %v", *got)
	}
	got := PercentChange(Money{Cents: 10000}, Money{Cents: 15000})
	if got == nil || *got != 50.0 {
		t.Fatalf("expected +50.0, got %v", got)
	}
	got = PercentChange(Money{Cents: 10000}, Money{Cents: 7500})
	if got == nil || *got != -25.0 {
		t.Fatalf("expected -25.0, got %v", got)
	}
}

func TestPreviousMonth(t *testing.T) {
	if y, m := PreviousMonth(2024, 1); y != 2023 || m != 12 {
		t.Fatalf("expected 2023-12, got %d-%d", y, m)
	}
	if y, m := PreviousMonth(2024, 6); y != 2024 || m != 5 {
		t.Fatalf("expected 2024-05, got %d-%d", y, m)
	}
}

func TestSummarizeMonth(t *testing.T) {
	s := SummarizeMonth(sampleExpenses(), 2024, 1)
	if s.Total.Cents != 4000 {
		t.Fatalf("expected total 4000, got %d", s.Total.Cents)
	}
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(s.ByCategory))
	}
	// Previous month (2023-12) totals 10000: (4000-10000)/10000 = -60%.
	if s.PercentChange == nil || *s.PercentChange != -60.0 {
		t.Fatalf("expected -60.0 change, got %v", s.PercentChange)
	}

	// No December 2023 history before it, so change is absent.
	s = SummarizeMonth(sampleExpenses(), 2023, 12)
	if s.PercentChange != nil {
		t.Fatalf("expected nil change with empty previous month, got %v", *s.PercentChange)
	}
}
