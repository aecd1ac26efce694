package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Catarin0/lifta/internal/core"
	"github.com/Catarin0/lifta/internal/ledger"
)

type userDocs struct {
	profile    *core.Profile
	baseCents  int64
	expenses   map[string]core.Expense
	health     *core.HealthMetrics
	order    []string // insertion order, for stable listings
}

// Store is an in-memory Ledger. Mutations hold a single mutex, so the
// expense write and the balance write are observed together or not at all.
type Store struct {
	mu    sync.Mutex
	users map[string]*userDocs
}

func New() *Store {
	return &Store{users: make(map[string]*userDocs)}
}

func (s *Store) docs(userID string) *userDocs {
	d, ok := s.users[userID]
	if !ok {
		d = &userDocs{expenses: make(map[string]core.Expense)}
		s.users[userID] = d
	}
	return d
}

func (s *Store) GetProfile(_ context.Context, userID string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[userID]
	if !ok || d.profile == nil {
		return nil, nil
	}
	p := *d.profile
	return &p, nil
}

func (s *Store) SaveProfile(_ context.Context, userID string, update core.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs(userID)
	if d.profile == nil {
		d.profile = &core.Profile{}
	}
	update.Apply(d.profile)
	if update.TotalBalance != nil {
		// Explicit balance edit resets the expense-free baseline.
		d.baseCents = d.profile.TotalBalance.Cents + sumCents(d.expenses)
	}
	return nil
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]core.Expense, 0, len(d.expenses))
	for _, id := range d.order {
		if e, ok := d.expenses[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) AddExpense(_ context.Context, userID string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs(userID)
	if d.profile == nil {
		d.profile = &core.Profile{}
	}
	e.ID = uuid.NewString()
	d.expenses[e.ID] = e
	d.order = append(d.order, e.ID)
	d.profile.TotalBalance.Cents -= e.Value.Cents
	return e.ID, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID string, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[userID]
	if !ok {
		return ledger.ErrExpenseNotFound
	}
	e, ok := d.expenses[expenseID]
	if !ok {
		return ledger.ErrExpenseNotFound
	}
	delete(d.expenses, expenseID)
	d.profile.TotalBalance.Cents += e.Value.Cents
	return nil
}

func (s *Store) GetHealthMetrics(_ context.Context, userID string) (*core.HealthMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.users[userID]
	if !ok || d.health == nil {
		return nil, nil
	}
	m := *d.health
	return &m, nil
}

func (s *Store) SaveHealthMetrics(_ context.Context, userID string, m core.HealthMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs(userID)
	d.health = &m
	return nil
}

func sumCents(items map[string]core.Expense) int64 {
	var total int64
	for _, e := range items {
		total += e.Value.Cents
	}
	return total
}

var _ ledger.Ledger = (*Store)(nil)
