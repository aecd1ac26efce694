package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Catarin0/lifta/internal/amqp"
	"github.com/Catarin0/lifta/internal/storage"
)

// AuditStore is the storage surface the auditor needs, satisfied by
// *storage.SQLiteRepository.
type AuditStore interface {
	ListProfileUserIDs(ctx context.Context) ([]string, error)
	GetBalanceSnapshot(ctx context.Context, userID string) (*storage.BalanceSnapshot, error)
	RepairBalance(ctx context.Context, userID string) (*storage.BalanceSnapshot, error)
}

// AuditWorker verifies the reconciliation invariant
// total = base - sum(expenses) and repairs drifted profiles. It reacts to
// balance events and additionally sweeps all users periodically in case
// events were lost.
type AuditWorker struct {
	store       AuditStore
	concurrency int
}

func NewAuditWorker(store AuditStore, concurrency int) *AuditWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AuditWorker{store: store, concurrency: concurrency}
}

// HandleBalanceEvent re-checks the single user named by an event.
func (w *AuditWorker) HandleBalanceEvent(ctx context.Context, msg *amqp.BalanceEventMessage) error {
	slog.InfoContext(ctx, "Auditing balance after event",
		"user_id", msg.UserID,
		"op", msg.Op,
		"expense_id", msg.ExpenseID)

	return w.AuditUser(ctx, msg.UserID)
}

// AuditUser checks one user and repairs on drift. A missing profile is not
// an error; the event may refer to an account deleted since.
func (w *AuditWorker) AuditUser(ctx context.Context, userID string) error {
	snap, err := w.store.GetBalanceSnapshot(ctx, userID)
	if err != nil {
		return fmt.Errorf("snapshot user %s: %w", userID, err)
	}
	if snap == nil {
		slog.WarnContext(ctx, "Audit skipped, profile missing", "user_id", userID)
		return nil
	}

	drift := snap.Drift()
	if drift == 0 {
		return nil
	}

	slog.ErrorContext(ctx, "Balance drift detected",
		"user_id", userID,
		"total_cents", snap.TotalCents,
		"base_cents", snap.BaseCents,
		"sum_cents", snap.SumCents,
		"drift_cents", drift)

	if _, err := w.store.RepairBalance(ctx, userID); err != nil {
		return fmt.Errorf("repair user %s: %w", userID, err)
	}
	return nil
}

// AuditAll sweeps every profile with bounded fan-out.
func (w *AuditWorker) AuditAll(ctx context.Context) error {
	userIDs, err := w.store.ListProfileUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Starting audit sweep", "users", len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			return w.AuditUser(gctx, userID)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("audit sweep: %w", err)
	}

	slog.InfoContext(ctx, "Audit sweep completed", "users", len(userIDs))
	return nil
}
