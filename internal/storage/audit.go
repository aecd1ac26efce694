package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// BalanceSnapshot is the auditor's view of one user's reconciliation state.
// Drift means the running total no longer equals base - sum(expenses).
type BalanceSnapshot struct {
	UserID     string
	TotalCents int64
	BaseCents  int64
	SumCents   int64
}

// Drift returns how far the running total is from the derived value.
// Zero means the reconciliation invariant holds.
func (s BalanceSnapshot) Drift() int64 {
	return s.TotalCents - (s.BaseCents - s.SumCents)
}

// ListProfileUserIDs returns every user id owning a profile document.
func (r *SQLiteRepository) ListProfileUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("list profile user ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return out, nil
}

// GetBalanceSnapshot reads the profile balances together with the derived
// expense sum in one transaction so the auditor sees a consistent cut.
func (r *SQLiteRepository) GetBalanceSnapshot(ctx context.Context, userID string) (*BalanceSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	snap := &BalanceSnapshot{UserID: userID}
	err = tx.QueryRowContext(ctx,
		`SELECT total_balance_cents, base_balance_cents FROM profiles WHERE user_id = ?`, userID).
		Scan(&snap.TotalCents, &snap.BaseCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile balances: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value_cents), 0) FROM expenses WHERE user_id = ?`, userID).
		Scan(&snap.SumCents); err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}

	return snap, nil
}

// RepairBalance rewrites the running total from the derived value
// base - sum(expenses) and returns the corrected snapshot.
func (r *SQLiteRepository) RepairBalance(ctx context.Context, userID string) (*BalanceSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin repair: %w", err)
	}
	defer tx.Rollback()

	snap := &BalanceSnapshot{UserID: userID}
	err = tx.QueryRowContext(ctx,
		`SELECT base_balance_cents FROM profiles WHERE user_id = ?`, userID).
		Scan(&snap.BaseCents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read base balance: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value_cents), 0) FROM expenses WHERE user_id = ?`, userID).
		Scan(&snap.SumCents); err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}

	snap.TotalCents = snap.BaseCents - snap.SumCents
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET total_balance_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		snap.TotalCents, userID); err != nil {
		return nil, fmt.Errorf("write repaired balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit repair: %w", err)
	}

	slog.InfoContext(ctx, "Balance repaired from derived value",
		"user_id", userID,
		"total_cents", snap.TotalCents,
		"sum_cents", snap.SumCents)

	return snap, nil
}
