package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Catarin0/lifta/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.auth.SignUp(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		respondAuthError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponse{
		UserID: session.UserID,
		Email:  session.Email,
		Token:  session.Token,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.auth.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		respondAuthError(w, r, err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		UserID: session.UserID,
		Email:  session.Email,
		Token:  session.Token,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(r.Context(), extractToken(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleSession reports the session for the presented token, or null when
// there is none. An absent session is a normal state, not an error.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := s.auth.CurrentUser(r.Context(), extractToken(r))
	if session == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{
		UserID: session.UserID,
		Email:  session.Email,
	})
}

// respondAuthError surfaces auth messages verbatim: they are written to be
// shown to the user and never reveal which credential was wrong.
func respondAuthError(w http.ResponseWriter, r *http.Request, err error, status int) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		respondError(w, status, authErr.Message)
		return
	}
	slog.ErrorContext(r.Context(), "Auth operation failed", "error", err, "url", r.URL.Path)
	respondError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
