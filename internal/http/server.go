package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Catarin0/lifta/internal/auth"
	"github.com/Catarin0/lifta/internal/cache"
	"github.com/Catarin0/lifta/internal/ledger"
)

type ctxKey string

const sessionKey ctxKey = "session"

type Server struct {
	http.Server
	auth        *auth.Service
	store       ledger.Ledger
	rateLimiter *rateLimiter

	// Summary responses are cached per (user, epoch, year, month, category);
	// bumping the user's epoch on mutation invalidates every cached month.
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager

	epochMu sync.Mutex
	epochs  map[string]uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, store ledger.Ledger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:         authSvc,
		store:        store,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[summaryResponse](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
		epochs:       make(map[string]uint64),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.withSecurityHeaders(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/signin", s.withSecurityHeaders(s.handleSignIn))
	mux.HandleFunc("POST /api/auth/signout", s.withSecurityHeaders(s.handleSignOut))
	mux.HandleFunc("GET /api/auth/session", s.withSecurityHeaders(s.handleSession))

	mux.HandleFunc("GET /api/profile", s.withSecurityHeaders(s.requireAuth(s.handleGetProfile)))
	mux.HandleFunc("PUT /api/profile", s.withSecurityHeaders(s.requireAuth(s.handleSaveProfile)))

	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.requireAuth(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.requireAuth(s.handleCreateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.requireAuth(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/health", s.withSecurityHeaders(s.requireAuth(s.handleGetHealthMetrics)))
	mux.HandleFunc("PUT /api/health", s.withSecurityHeaders(s.requireAuth(s.handleSaveHealthMetrics)))

	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.requireAuth(s.handleSummary)))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKey("request_id"), requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireAuth resolves the Bearer token into a session, rejecting the
// request when none is valid.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.auth.CurrentUser(r.Context(), extractToken(r))
		if session == nil {
			respondError(w, http.StatusUnauthorized, "Missing or invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, session)
		next(w, r.WithContext(ctx))
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// sessionFrom returns the authenticated session placed by requireAuth.
func sessionFrom(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionKey).(*auth.Session)
	return session
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// epoch returns the user's cache generation.
func (s *Server) epoch(userID string) uint64 {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	return s.epochs[userID]
}

// bumpEpoch invalidates every cached summary for the user.
func (s *Server) bumpEpoch(userID string) {
	s.epochMu.Lock()
	defer s.epochMu.Unlock()
	s.epochs[userID]++
}
