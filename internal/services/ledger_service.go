package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Catarin0/lifta/internal/amqp"
	"github.com/Catarin0/lifta/internal/core"
	"github.com/Catarin0/lifta/internal/ledger"
)

// EventPublisher is the outbound audit-event surface, satisfied by
// *amqp.Client.
type EventPublisher interface {
	PublishBalanceEvent(ctx context.Context, msg *amqp.BalanceEventMessage) error
	Close() error
}

// LedgerService wraps a Ledger and emits a balance-change event after every
// successful expense mutation. Events are best effort: the mutation is
// already durable, a lost event only delays the audit sweep.
type LedgerService struct {
	store     ledger.Ledger
	publisher EventPublisher
}

func NewLedgerService(store ledger.Ledger, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

func (s *LedgerService) GetProfile(ctx context.Context, userID string) (*core.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

func (s *LedgerService) SaveProfile(ctx context.Context, userID string, update core.ProfileUpdate) error {
	return s.store.SaveProfile(ctx, userID, update)
}

func (s *LedgerService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

// AddExpense persists the expense, then publishes the audit event.
func (s *LedgerService) AddExpense(ctx context.Context, userID string, e core.Expense) (string, error) {
	id, err := s.store.AddExpense(ctx, userID, e)
	if err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}

	s.publish(ctx, amqp.NewBalanceEventMessage(userID, id, amqp.OpAdd, -e.Value.Cents))
	return id, nil
}

// DeleteExpense removes the expense, then publishes the audit event.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID string, expenseID string) error {
	if err := s.store.DeleteExpense(ctx, userID, expenseID); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewBalanceEventMessage(userID, expenseID, amqp.OpDelete, 0))
	return nil
}

func (s *LedgerService) GetHealthMetrics(ctx context.Context, userID string) (*core.HealthMetrics, error) {
	return s.store.GetHealthMetrics(ctx, userID)
}

func (s *LedgerService) SaveHealthMetrics(ctx context.Context, userID string, m core.HealthMetrics) error {
	return s.store.SaveHealthMetrics(ctx, userID, m)
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.BalanceEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBalanceEvent(ctx, msg); err != nil {
		// Don't fail the request, the mutation is committed.
		slog.ErrorContext(ctx, "Failed to publish balance event",
			"user_id", msg.UserID,
			"op", msg.Op,
			"error", err)
	}
}

// Close releases the event publisher. The underlying store is owned by the
// caller and closed separately.
func (s *LedgerService) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}

var _ ledger.Ledger = (*LedgerService)(nil)
