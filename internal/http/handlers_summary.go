package http

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Catarin0/lifta/internal/core"
)

type categoryAmountBody struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type summaryResponse struct {
	Year          int                  `json:"year"`
	Month         int                  `json:"month"`
	Total         string               `json:"total"`
	ByCategory    []categoryAmountBody `json:"by_category"`
	PercentChange *float64             `json:"percent_change"`

	TotalBalance  string `json:"total_balance"`
	MonthlyIncome string `json:"monthly_income"`

	Expenses []expenseResponse `json:"expenses"`
}

// handleSummary builds the dashboard view for one month: the month's
// expenses, per-category totals, change versus the previous month, and the
// profile headline numbers. Profile and expenses load concurrently.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	year, month := parseYearMonth(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	if month < 1 || month > 12 {
		respondError(w, http.StatusUnprocessableEntity, "Month must be between 1 and 12")
		return
	}
	if category != "" && !core.Category(category).Valid() {
		respondError(w, http.StatusUnprocessableEntity, "Unknown category")
		return
	}

	key := summaryCacheKey(session.UserID, s.epoch(session.UserID), year, month, category)
	if cached, ok := s.summaryCache.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	var (
		profile *core.Profile
		items   []core.Expense
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		profile, err = s.store.GetProfile(ctx, session.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.store.ListExpenses(ctx, session.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		respondStoreError(w, r, err)
		return
	}

	summary := core.SummarizeMonth(items, year, month)
	visible := core.FilterExpenses(items, year, month, core.Category(category))

	resp := summaryResponse{
		Year:          year,
		Month:         month,
		Total:         summary.Total.String(),
		ByCategory:    make([]categoryAmountBody, 0, len(summary.ByCategory)),
		PercentChange: summary.PercentChange,
		Expenses:      make([]expenseResponse, 0, len(visible)),
	}
	for _, ca := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountBody{
			Category: ca.Category.String(),
			Amount:   ca.Amount.String(),
		})
	}
	for _, e := range visible {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	if profile != nil {
		resp.TotalBalance = profile.TotalBalance.String()
		resp.MonthlyIncome = profile.MonthlyIncome.String()
	}

	s.summaryCache.Set(key, resp)
	respondJSON(w, http.StatusOK, resp)
}

// summaryCacheKey includes the user's mutation epoch so stale entries fall
// out of reach immediately after any write.
func summaryCacheKey(userID string, epoch uint64, year, month int, category string) string {
	return userID + ":" + strconv.FormatUint(epoch, 10) + ":" +
		strconv.Itoa(year) + ":" + strconv.Itoa(month) + ":" + category
}
