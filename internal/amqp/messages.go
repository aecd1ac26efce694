package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpAdd    = "add"
	OpDelete = "delete"
)

// BalanceEventMessage records one balance mutation. The auditor uses it to
// re-check the reconciliation invariant for the named user; the mutation
// itself is already durable when the event is published.
type BalanceEventMessage struct {
	UserID     string    `json:"user_id"`
	ExpenseID  string    `json:"expense_id"`
	Op         string    `json:"op"`
	DeltaCents int64     `json:"delta_cents"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewBalanceEventMessage(userID, expenseID, op string, deltaCents int64) *BalanceEventMessage {
	return &BalanceEventMessage{
		UserID:     userID,
		ExpenseID:  expenseID,
		Op:         op,
		DeltaCents: deltaCents,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BalanceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceEventMessageFromJSON creates a message from JSON bytes
func BalanceEventMessageFromJSON(data []byte) (*BalanceEventMessage, error) {
	var msg BalanceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
