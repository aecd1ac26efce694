package http

import (
	"net/http"

	"github.com/Catarin0/lifta/internal/core"
)

type profileResponse struct {
	TotalBalance  string `json:"total_balance"`
	MonthlyIncome string `json:"monthly_income"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
}

// profileRequest carries a partial edit: absent fields keep their stored
// values. Amounts travel as decimal strings so no float ever touches money.
type profileRequest struct {
	TotalBalance  *string `json:"total_balance"`
	MonthlyIncome *string `json:"monthly_income"`
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	profile, err := s.store.GetProfile(r.Context(), session.UserID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if profile == nil {
		// A brand-new account simply has no profile yet.
		respondJSON(w, http.StatusOK, nil)
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		TotalBalance:  profile.TotalBalance.String(),
		MonthlyIncome: profile.MonthlyIncome.String(),
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
	})
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}
	if update.IsZero() {
		respondError(w, http.StatusUnprocessableEntity, "Nothing to update")
		return
	}

	if err := s.store.SaveProfile(r.Context(), session.UserID, update); err != nil {
		respondStoreError(w, r, err)
		return
	}

	s.bumpEpoch(session.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (req profileRequest) toUpdate() (core.ProfileUpdate, error) {
	var update core.ProfileUpdate

	if req.TotalBalance != nil {
		cents, err := core.ParseSignedDecimalToCents(*req.TotalBalance)
		if err != nil {
			return core.ProfileUpdate{}, err
		}
		update.TotalBalance = &core.Money{Cents: cents}
	}
	if req.MonthlyIncome != nil {
		cents, err := core.ParseSignedDecimalToCents(*req.MonthlyIncome)
		if err != nil {
			return core.ProfileUpdate{}, err
		}
		update.MonthlyIncome = &core.Money{Cents: cents}
	}
	if req.FirstName != nil {
		name := sanitizeInput(*req.FirstName)
		update.FirstName = &name
	}
	if req.LastName != nil {
		name := sanitizeInput(*req.LastName)
		update.LastName = &name
	}

	return update, nil
}
