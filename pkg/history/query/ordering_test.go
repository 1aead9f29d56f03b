package query

import (
	"errors"
	"testing"

	"mercator-hq/chronicle/pkg/history"
)

func usageMessage(t *testing.T, err error) string {
	t.Helper()
	var usage *history.UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected UsageError, got %T: %v", err, err)
	}
	return usage.Message
}

func TestOrdering_Pairing(t *testing.T) {
	var o Ordering[history.Field]

	if err := o.OrderBy(history.FieldStartTime); err != nil {
		t.Fatalf("OrderBy() failed: %v", err)
	}
	if err := o.Desc(); err != nil {
		t.Fatalf("Desc() failed: %v", err)
	}
	if err := o.OrderBy(history.FieldID); err != nil {
		t.Fatalf("OrderBy() failed: %v", err)
	}
	if err := o.Asc(); err != nil {
		t.Fatalf("Asc() failed: %v", err)
	}
	if err := o.Complete(); err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	want := []Entry[history.Field]{
		{Key: history.FieldStartTime, Direction: history.Descending},
		{Key: history.FieldID, Direction: history.Ascending},
	}
	got := o.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOrdering_Errors(t *testing.T) {
	t.Run("direction without key", func(t *testing.T) {
		var o Ordering[string]
		msg := usageMessage(t, o.Asc())
		if msg != "You should call any of the orderBy methods first before specifying a direction: currentOrderingProperty is null" {
			t.Errorf("Message = %q", msg)
		}
	})

	t.Run("second direction", func(t *testing.T) {
		var o Ordering[string]
		_ = o.OrderBy("a")
		_ = o.Asc()
		msg := usageMessage(t, o.Desc())
		if msg != "Invalid query: can specify only one direction desc() or asc() for an ordering constraint: direction is DESC" {
			t.Errorf("Message = %q", msg)
		}
	})

	t.Run("second key while pending", func(t *testing.T) {
		var o Ordering[string]
		_ = o.OrderBy("a")
		msg := usageMessage(t, o.OrderBy("b"))
		if msg != "Invalid query: call asc() or desc() after using orderByXX(): direction is null" {
			t.Errorf("Message = %q", msg)
		}
	})

	t.Run("complete with pending key", func(t *testing.T) {
		var o Ordering[string]
		_ = o.OrderBy("a")
		msg := usageMessage(t, o.Complete())
		if msg != "Invalid query: call asc() or desc() after using orderByXX(): direction is null" {
			t.Errorf("Message = %q", msg)
		}
		if o.Len() != 0 {
			t.Errorf("pending key must not be committed, Len() = %d", o.Len())
		}
	})
}
