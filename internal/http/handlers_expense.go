package http

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Catarin0/lifta/internal/core"
)

type expenseResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

type createExpenseRequest struct {
	Category    string `json:"category"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// handleListExpenses returns the user's expenses, newest first. Optional
// year, month, and category query parameters narrow the result.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	items, err := s.store.ListExpenses(r.Context(), session.UserID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	q := r.URL.Query()
	if q.Has("year") || q.Has("month") {
		year, month := parseYearMonth(r)
		items = core.FilterExpenses(items, year, month, core.Category(strings.TrimSpace(q.Get("category"))))
	} else if c := strings.TrimSpace(q.Get("category")); c != "" {
		filtered := make([]core.Expense, 0, len(items))
		for _, e := range items {
			if e.Category == core.Category(c) {
				filtered = append(filtered, e)
			}
		}
		items = filtered
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date.Time)
	})

	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req createExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Value)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Amount must be a positive decimal like 12.34")
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Date must be YYYY-MM-DD")
		return
	}

	expense := core.Expense{
		Category:    core.Category(strings.TrimSpace(req.Category)),
		Value:       core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Date:        date,
	}

	id, err := s.store.AddExpense(r.Context(), session.UserID, expense)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.bumpEpoch(session.UserID)

	expense.ID = id
	respondJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusUnprocessableEntity, "Missing expense id")
		return
	}

	if err := s.store.DeleteExpense(r.Context(), session.UserID, id); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.bumpEpoch(session.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Category:    e.Category.String(),
		Value:       e.Value.String(),
		Description: e.Description,
		Date:        e.Date.ISO(),
	}
}
