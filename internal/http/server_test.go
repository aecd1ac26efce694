package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Catarin0/lifta/internal/auth"
	"github.com/Catarin0/lifta/internal/ledger/memory"
	"github.com/Catarin0/lifta/internal/storage"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*storage.User
	byID    map[string]*storage.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byEmail: make(map[string]*storage.User),
		byID:    make(map[string]*storage.User),
	}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, passwordHash string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return nil, storage.ErrEmailTaken
	}
	u := &storage.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	f.byEmail[email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	authSvc := auth.NewService(newFakeUsers(), store, "test-secret-key", time.Hour)
	srv := NewServer(":0", authSvc, store)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func doJSON(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// signUp registers a fresh user and returns the session token.
func signUp(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rr := doJSON(srv, http.MethodPost, "/api/auth/signup", `{"email":"`+email+`","password":"hunter22"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("signup returned empty token")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	srv := newTestServer(t)

	token := signUp(t, srv, "ada@example.com")
	if token == "" {
		t.Fatal("missing token")
	}

	// Duplicate email is rejected with a shown-to-user message
	rr := doJSON(srv, http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"hunter22"}`, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "already registered") {
		t.Fatalf("expected duplicate message, got %s", rr.Body.String())
	}

	// Wrong password never reveals which credential failed
	rr = doJSON(srv, http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"wrong"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad signin status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid email or password") {
		t.Fatalf("unexpected signin error body: %s", rr.Body.String())
	}

	rr = doJSON(srv, http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"hunter22"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("signin status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSessionEndpointAndSignOut(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	rr := doJSON(srv, http.MethodGet, "/api/auth/session", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("session status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ada@example.com") {
		t.Fatalf("session body missing email: %s", rr.Body.String())
	}

	rr = doJSON(srv, http.MethodPost, "/api/auth/signout", "", token)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("signout status=%d", rr.Code)
	}

	// Revoked token now resolves to no session
	rr = doJSON(srv, http.MethodGet, "/api/auth/session", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("session status=%d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "null" {
		t.Fatalf("expected null session, got %s", rr.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/expenses"},
		{http.MethodGet, "/api/summary"},
		{http.MethodPut, "/api/health"},
	} {
		rr := doJSON(srv, tc.method, tc.path, "{}", "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status=%d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestExpenseLifecycleReconcilesBalance(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	rr := doJSON(srv, http.MethodPut, "/api/profile", `{"total_balance":"1000.00"}`, token)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("set balance status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(srv, http.MethodPost, "/api/expenses",
		`{"category":"Grocery","value":"40.00","description":"market","date":"2024-01-15"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	var first expenseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode expense: %v", err)
	}
	if first.ID == "" {
		t.Fatal("created expense missing id")
	}

	rr = doJSON(srv, http.MethodPost, "/api/expenses",
		`{"category":"Bills","value":"60.00","date":"2024-01-20"}`, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create second expense status=%d", rr.Code)
	}

	var profile profileResponse
	rr = doJSON(srv, http.MethodGet, "/api/profile", "", token)
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.TotalBalance != "900.00" {
		t.Fatalf("balance after adds = %s, want 900.00", profile.TotalBalance)
	}

	// Newest first
	rr = doJSON(srv, http.MethodGet, "/api/expenses", "", token)
	var items []expenseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 || items[0].Date != "2024-01-20" {
		t.Fatalf("unexpected list order: %+v", items)
	}

	rr = doJSON(srv, http.MethodDelete, "/api/expenses/"+first.ID, "", token)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = doJSON(srv, http.MethodGet, "/api/profile", "", token)
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.TotalBalance != "940.00" {
		t.Fatalf("balance after delete = %s, want 940.00", profile.TotalBalance)
	}

	rr = doJSON(srv, http.MethodDelete, "/api/expenses/"+first.ID, "", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	for name, body := range map[string]string{
		"bad amount":   `{"category":"Grocery","value":"abc","date":"2024-01-15"}`,
		"zero amount":  `{"category":"Grocery","value":"0","date":"2024-01-15"}`,
		"bad date":     `{"category":"Grocery","value":"10.00","date":"15/01/2024"}`,
		"bad category": `{"category":"Rocketry","value":"10.00","date":"2024-01-15"}`,
		"long desc":    `{"category":"Other","value":"10.00","date":"2024-01-15","description":"` + strings.Repeat("x", 201) + `"}`,
	} {
		rr := doJSON(srv, http.MethodPost, "/api/expenses", body, token)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d, want 422", name, rr.Code)
		}
	}

	// Nothing was written
	rr := doJSON(srv, http.MethodGet, "/api/expenses", "", token)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rr.Body.String())
	}
}

func TestProfileMergeKeepsAbsentFields(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	doJSON(srv, http.MethodPut, "/api/profile", `{"first_name":"Ada","last_name":"Lovelace"}`, token)
	doJSON(srv, http.MethodPut, "/api/profile", `{"monthly_income":"2500.00"}`, token)

	rr := doJSON(srv, http.MethodGet, "/api/profile", "", token)
	var profile profileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.FirstName != "Ada" || profile.LastName != "Lovelace" {
		t.Fatalf("names lost on merge: %+v", profile)
	}
	if profile.MonthlyIncome != "2500.00" {
		t.Fatalf("income = %s, want 2500.00", profile.MonthlyIncome)
	}
}

func TestHealthMetricsRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	rr := doJSON(srv, http.MethodPut, "/api/health", `{"daily_steps":8000,"heart_rate":62,"sleep_hours":7.5}`, token)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("save health status=%d", rr.Code)
	}

	rr = doJSON(srv, http.MethodGet, "/api/health", "", token)
	var metrics healthMetricsBody
	if err := json.Unmarshal(rr.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if metrics.DailySteps != 8000 || metrics.HeartRate != 62 || metrics.SleepHours != 7.5 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}

	rr = doJSON(srv, http.MethodPut, "/api/health", `{"daily_steps":-1}`, token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative metrics status=%d", rr.Code)
	}
}

func TestSummaryMonthView(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	doJSON(srv, http.MethodPut, "/api/profile", `{"total_balance":"1000.00"}`, token)
	doJSON(srv, http.MethodPost, "/api/expenses", `{"category":"Grocery","value":"100.00","date":"2023-12-10"}`, token)
	doJSON(srv, http.MethodPost, "/api/expenses", `{"category":"Grocery","value":"90.00","date":"2024-01-05"}`, token)
	doJSON(srv, http.MethodPost, "/api/expenses", `{"category":"Bills","value":"60.00","date":"2024-01-12"}`, token)

	rr := doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=1", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.Total != "150.00" {
		t.Fatalf("total = %s, want 150.00", resp.Total)
	}
	if resp.PercentChange == nil || *resp.PercentChange != 50.0 {
		t.Fatalf("percent change = %v, want 50", resp.PercentChange)
	}
	if len(resp.Expenses) != 2 {
		t.Fatalf("expenses in month = %d, want 2", len(resp.Expenses))
	}
	if resp.TotalBalance != "750.00" {
		t.Fatalf("total balance = %s, want 750.00", resp.TotalBalance)
	}

	// December has no November baseline
	rr = doJSON(srv, http.MethodGet, "/api/summary?year=2023&month=12", "", token)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.PercentChange != nil {
		t.Fatalf("percent change without baseline = %v, want null", *resp.PercentChange)
	}

	// Category filter narrows the visible expenses, not the totals
	rr = doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=1&category=Bills", "", token)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(resp.Expenses) != 1 || resp.Expenses[0].Category != "Bills" {
		t.Fatalf("filtered expenses: %+v", resp.Expenses)
	}
	if resp.Total != "150.00" {
		t.Fatalf("filtered total = %s, want 150.00", resp.Total)
	}
}

func TestSummaryCacheInvalidatedOnMutation(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	doJSON(srv, http.MethodPost, "/api/expenses", `{"category":"Grocery","value":"10.00","date":"2024-03-01"}`, token)

	rr := doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=3", "", token)
	var resp summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.Total != "10.00" {
		t.Fatalf("total = %s, want 10.00", resp.Total)
	}

	// A second write must be visible immediately despite the cached view
	doJSON(srv, http.MethodPost, "/api/expenses", `{"category":"Grocery","value":"5.00","date":"2024-03-02"}`, token)

	rr = doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=3", "", token)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.Total != "15.00" {
		t.Fatalf("total after second write = %s, want 15.00", resp.Total)
	}
}

func TestSummaryRejectsBadQuery(t *testing.T) {
	srv := newTestServer(t)
	token := signUp(t, srv, "ada@example.com")

	rr := doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=13", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("month=13 status=%d", rr.Code)
	}
	rr = doJSON(srv, http.MethodGet, "/api/summary?year=2024&month=1&category=Nope", "", token)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad category status=%d", rr.Code)
	}
}
