package http

import (
	"net/http"

	"github.com/Catarin0/lifta/internal/core"
)

type healthMetricsBody struct {
	DailySteps int     `json:"daily_steps"`
	HeartRate  int     `json:"heart_rate"`
	SleepHours float64 `json:"sleep_hours"`
}

func (s *Server) handleGetHealthMetrics(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	metrics, err := s.store.GetHealthMetrics(r.Context(), session.UserID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	if metrics == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}

	respondJSON(w, http.StatusOK, healthMetricsBody{
		DailySteps: metrics.DailySteps,
		HeartRate:  metrics.HeartRate,
		SleepHours: metrics.SleepHours,
	})
}

func (s *Server) handleSaveHealthMetrics(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req healthMetricsBody
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DailySteps < 0 || req.HeartRate < 0 || req.SleepHours < 0 {
		respondError(w, http.StatusUnprocessableEntity, "Health metrics cannot be negative")
		return
	}

	metrics := core.HealthMetrics{
		DailySteps: req.DailySteps,
		HeartRate:  req.HeartRate,
		SleepHours: req.SleepHours,
	}
	if err := s.store.SaveHealthMetrics(r.Context(), session.UserID, metrics); err != nil {
		respondStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
