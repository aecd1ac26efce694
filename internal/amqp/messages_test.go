package amqp

import (
	"testing"
	"time"
)

func TestBalanceEventMessageJSON(t *testing.T) {
	msg := NewBalanceEventMessage("u1", "e1", OpAdd, -4000)
	if msg.Timestamp.IsZero() {
		t.Fatalf("expected timestamp set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := BalanceEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != "u1" || got.ExpenseID != "e1" || got.Op != OpAdd || got.DeltaCents != -4000 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if !got.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestBalanceEventMessageFromJSONInvalid(t *testing.T) {
	if _, err := BalanceEventMessageFromJSON([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
