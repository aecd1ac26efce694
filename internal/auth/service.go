package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Catarin0/lifta/internal/core"
	"github.com/Catarin0/lifta/internal/ledger"
	"github.com/Catarin0/lifta/internal/storage"
)

// Error carries a message safe to show directly in the UI. Credential
// failures never reveal which of email or password was wrong.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	errInvalidCredentials = &Error{Message: "Invalid email or password"}
	errEmailTaken         = &Error{Message: "Email is already registered"}
	errWeakPassword       = &Error{Message: "Password must be at least 6 characters"}
	errBadEmail           = &Error{Message: "Enter a valid email address"}
)

// Session identifies an authenticated user.
type Session struct {
	UserID string
	Email  string
	Token  string
}

// UserStore is the identity persistence surface, implemented by the SQLite
// repository.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	GetUser(ctx context.Context, id string) (*storage.User, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs users up and in, issues HS256 session tokens, and feeds the
// session-change Notifier. Sign-up eagerly creates the zero-valued profile
// and health documents so a new account never has a missing document.
type Service struct {
	users    UserStore
	docs     ledger.Ledger
	notifier *Notifier
	secret   []byte
	ttl      time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

func NewService(users UserStore, docs ledger.Ledger, secret string, ttl time.Duration) *Service {
	return &Service{
		users:    users,
		docs:     docs,
		notifier: NewNotifier(),
		secret:   []byte(secret),
		ttl:      ttl,
		revoked:  make(map[string]time.Time),
	}
}

// Notifier exposes the push-style session stream the presentation layer
// subscribes to.
func (s *Service) Notifier() *Notifier {
	return s.notifier
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(email) < 3 {
		return nil, errBadEmail
	}
	if len(password) < 6 {
		return nil, errWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if errors.Is(err, storage.ErrEmailTaken) {
		return nil, errEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Eager document bootstrap: zero balances and metrics from day one.
	if err := s.docs.SaveProfile(ctx, user.ID, core.ProfileUpdate{}); err != nil {
		slog.ErrorContext(ctx, "Failed to bootstrap profile document",
			"user_id", user.ID, "error", err)
	}
	if err := s.docs.SaveHealthMetrics(ctx, user.ID, core.HealthMetrics{}); err != nil {
		slog.ErrorContext(ctx, "Failed to bootstrap health document",
			"user_id", user.ID, "error", err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID)
	s.notifier.publish(session)
	return session, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User signed in", "user_id", user.ID)
	s.notifier.publish(session)
	return session, nil
}

// SignOut revokes the token. Revoking an already-invalid token is a no-op.
func (s *Service) SignOut(ctx context.Context, token string) {
	c, ok := s.parse(token)
	if ok {
		s.mu.Lock()
		s.revoked[c.ID] = c.ExpiresAt.Time
		s.pruneLocked()
		s.mu.Unlock()
		slog.InfoContext(ctx, "User signed out", "user_id", c.Subject)
	}
	s.notifier.publish(nil)
}

// CurrentUser resolves the session behind a token, or nil when the token is
// missing, expired, or revoked. Absence of a session is not an error.
func (s *Service) CurrentUser(_ context.Context, token string) *Session {
	c, ok := s.parse(token)
	if !ok {
		return nil
	}

	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		return nil
	}

	return &Session{UserID: c.Subject, Email: c.Email, Token: token}
}

func (s *Service) issue(user *storage.User) (*Session, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{UserID: user.ID, Email: user.Email, Token: signed}, nil
}

func (s *Service) parse(token string) (*claims, bool) {
	if token == "" {
		return nil, false
	}
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || c.Subject == "" {
		return nil, false
	}
	return c, true
}

// pruneLocked drops revocation entries for tokens that have expired anyway.
func (s *Service) pruneLocked() {
	now := time.Now()
	for jti, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, jti)
		}
	}
}
