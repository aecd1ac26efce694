package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Catarin0/lifta/internal/core"
	"github.com/Catarin0/lifta/internal/ledger"
)

// SQLiteRepository is the persistent Ledger. Each add/delete mutates the
// expense row and the profile balance inside one transaction, so the two
// writes are observed together or not at all.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetProfile implements ledger.ProfileStore. A missing row is not an error.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (*core.Profile, error) {
	var p core.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT total_balance_cents, monthly_income_cents, first_name, last_name
		 FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.TotalBalance.Cents, &p.MonthlyIncome.Cents, &p.FirstName, &p.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// SaveProfile implements ledger.ProfileStore with merge-upsert semantics.
// An explicit TotalBalance edit also resets the expense-free baseline so the
// reconciliation invariant stays checkable.
func (r *SQLiteRepository) SaveProfile(ctx context.Context, userID string, update core.ProfileUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	defer tx.Rollback()

	if err := ensureProfile(ctx, tx, userID); err != nil {
		return err
	}

	var p core.Profile
	err = tx.QueryRowContext(ctx,
		`SELECT total_balance_cents, monthly_income_cents, first_name, last_name
		 FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.TotalBalance.Cents, &p.MonthlyIncome.Cents, &p.FirstName, &p.LastName)
	if err != nil {
		return fmt.Errorf("read profile for merge: %w", err)
	}

	update.Apply(&p)

	if update.TotalBalance != nil {
		var sum int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(value_cents), 0) FROM expenses WHERE user_id = ?`, userID).
			Scan(&sum); err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		base := p.TotalBalance.Cents + sum
		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET base_balance_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
			base, userID); err != nil {
			return fmt.Errorf("update base balance: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles
		 SET total_balance_cents = ?, monthly_income_cents = ?, first_name = ?, last_name = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		p.TotalBalance.Cents, p.MonthlyIncome.Cents, p.FirstName, p.LastName, userID); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save profile: %w", err)
	}
	return nil
}

// ListExpenses implements ledger.ExpenseStore. Returns the full set, no
// pagination; callers filter and sort.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, value_cents, description, expense_date
		 FROM expenses WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			rawDate string
		)
		if err := rows.Scan(&e.ID, &e.Category, &e.Value.Cents, &e.Description, &rawDate); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		d, err := core.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", rawDate, err)
		}
		e.Date = d
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// AddExpense implements ledger.ExpenseStore. Validation happens before any
// write; the insert and the balance decrement share one transaction.
func (r *SQLiteRepository) AddExpense(ctx context.Context, userID string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin add expense: %w", err)
	}
	defer tx.Rollback()

	if err := ensureProfile(ctx, tx, userID); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category, value_cents, description, expense_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, e.Category.String(), e.Value.Cents, e.Description, e.Date.ISO()); err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles
		 SET total_balance_cents = total_balance_cents - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		e.Value.Cents, userID); err != nil {
		return "", fmt.Errorf("decrement balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit add expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", userID,
		"category", e.Category.String(),
		"value_cents", e.Value.Cents,
		"date", e.Date.ISO())

	return id, nil
}

// DeleteExpense implements ledger.ExpenseStore. Unknown ids fail with
// ledger.ErrExpenseNotFound and leave the balance untouched.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID string, expenseID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete expense: %w", err)
	}
	defer tx.Rollback()

	var valueCents int64
	err = tx.QueryRowContext(ctx,
		`SELECT value_cents FROM expenses WHERE id = ? AND user_id = ?`,
		expenseID, userID).Scan(&valueCents)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrExpenseNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles
		 SET total_balance_cents = total_balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		valueCents, userID); err != nil {
		return fmt.Errorf("restore balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted",
		"id", expenseID,
		"user_id", userID,
		"value_cents", valueCents)

	return nil
}

// GetHealthMetrics implements ledger.HealthStore.
func (r *SQLiteRepository) GetHealthMetrics(ctx context.Context, userID string) (*core.HealthMetrics, error) {
	var m core.HealthMetrics
	err := r.db.QueryRowContext(ctx,
		`SELECT daily_steps, heart_rate, sleep_hours FROM health_metrics WHERE user_id = ?`, userID).
		Scan(&m.DailySteps, &m.HeartRate, &m.SleepHours)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get health metrics: %w", err)
	}
	return &m, nil
}

// SaveHealthMetrics implements ledger.HealthStore as a plain upsert.
func (r *SQLiteRepository) SaveHealthMetrics(ctx context.Context, userID string, m core.HealthMetrics) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO health_metrics (user_id, daily_steps, heart_rate, sleep_hours)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     daily_steps = excluded.daily_steps,
		     heart_rate = excluded.heart_rate,
		     sleep_hours = excluded.sleep_hours,
		     updated_at = CURRENT_TIMESTAMP`,
		userID, m.DailySteps, m.HeartRate, m.SleepHours)
	if err != nil {
		return fmt.Errorf("save health metrics: %w", err)
	}
	return nil
}

// ensureProfile creates the zero-valued profile row when missing, so a brand
// new account always has a document to reconcile against.
func ensureProfile(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (user_id) VALUES (?)`, userID); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

var _ ledger.Ledger = (*SQLiteRepository)(nil)
