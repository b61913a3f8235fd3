package booking

import "testing"

func TestTransitionGraphIsLinear(t *testing.T) {
	order := []Status{
		StatusPending,
		StatusQuoted,
		StatusConfirmed,
		StatusInProgress,
		StatusCompleted,
		StatusConfirmedByCustomer,
		StatusReviewed,
	}
	for i := 0; i < len(order)-1; i++ {
		b := &Booking{Status: order[i]}
		if !b.CanTransitionTo(order[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", order[i], order[i+1])
		}
		// skipping a status is never allowed
		for j := i + 2; j < len(order); j++ {
			if b.CanTransitionTo(order[j]) {
				t.Fatalf("expected %s -> %s to be rejected", order[i], order[j])
			}
		}
	}
}

func TestCancelledReachableFromNonTerminal(t *testing.T) {
	for s := range map[Status]struct{}{
		StatusPending: {}, StatusQuoted: {}, StatusConfirmed: {},
		StatusInProgress: {}, StatusCompleted: {}, StatusConfirmedByCustomer: {},
	} {
		b := &Booking{Status: s}
		if !b.CanTransitionTo(StatusCancelled) {
			t.Fatalf("expected %s -> CANCELLED to be allowed", s)
		}
	}
	for _, s := range []Status{StatusReviewed, StatusCancelled} {
		b := &Booking{Status: s}
		if b.CanTransitionTo(StatusCancelled) {
			t.Fatalf("expected terminal %s to reject CANCELLED", s)
		}
	}
}

func TestTransitionToRejectsBackwards(t *testing.T) {
	b := &Booking{Status: StatusConfirmed}
	if err := b.TransitionTo(StatusQuoted); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if b.Status != StatusConfirmed {
		t.Fatalf("status must not change on rejected transition")
	}
}

func TestCounterpart(t *testing.T) {
	tid := "transport-1"
	b := &Booking{CustomerID: "customer-1", TransportID: &tid}
	if got := b.Counterpart("customer-1"); got != "transport-1" {
		t.Fatalf("expected transport-1, got %s", got)
	}
	if got := b.Counterpart("transport-1"); got != "customer-1" {
		t.Fatalf("expected customer-1, got %s", got)
	}
	unassigned := &Booking{CustomerID: "customer-1"}
	if got := unassigned.Counterpart("customer-1"); got != "" {
		t.Fatalf("expected empty counterpart, got %s", got)
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusReviewed.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Fatal("REVIEWED and CANCELLED must be terminal")
	}
	if StatusCompleted.IsTerminal() {
		t.Fatal("COMPLETED must not be terminal")
	}
}
