package ledger

import (
	"context"
	"errors"

	"github.com/Catarin0/lifta/internal/core"
)

var (
	// ErrExpenseNotFound is returned by DeleteExpense for unknown ids.
	ErrExpenseNotFound = errors.New("expense not found")
)

// Ports for the per-user document store.
type (
	// ProfileStore owns the singleton financial profile document.
	ProfileStore interface {
		// GetProfile returns (nil, nil) when the user has no profile yet;
		// absence is a normal state for brand-new accounts.
		GetProfile(ctx context.Context, userID string) (*core.Profile, error)

		// SaveProfile is a merge upsert: fields absent from the update keep
		// their persisted values, a missing document is created.
		SaveProfile(ctx context.Context, userID string, update core.ProfileUpdate) error
	}

	// ExpenseStore owns the append/delete expense log and keeps the profile
	// balance reconciled with it on every mutation.
	ExpenseStore interface {
		// ListExpenses returns the full set, unordered. Callers sort and
		// filter as needed.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)

		// AddExpense validates, persists the expense under a generated id,
		// and decrements the profile balance by its value. Nothing is
		// written when validation fails.
		AddExpense(ctx context.Context, userID string, e core.Expense) (string, error)

		// DeleteExpense removes the expense and restores its value to the
		// profile balance. Returns ErrExpenseNotFound for unknown ids.
		DeleteExpense(ctx context.Context, userID string, expenseID string) error
	}

	// HealthStore owns the singleton health metrics document.
	HealthStore interface {
		GetHealthMetrics(ctx context.Context, userID string) (*core.HealthMetrics, error)
		SaveHealthMetrics(ctx context.Context, userID string, m core.HealthMetrics) error
	}

	// Ledger is the full store surface consumed by the HTTP layer.
	Ledger interface {
		ProfileStore
		ExpenseStore
		HealthStore
	}
)
