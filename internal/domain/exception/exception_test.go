package exception

import (
	"testing"
	"time"
)

func TestEscalateRaisesPriority(t *testing.T) {
	e := &Exception{Status: StatusPending, Priority: PriorityMedium}
	high := PriorityHigh
	if err := e.Escalate(&high); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if e.Status != StatusEscalated || e.Priority != PriorityHigh {
		t.Fatalf("expected ESCALATED/HIGH, got %s/%s", e.Status, e.Priority)
	}
}

func TestEscalateNeverLowersPriority(t *testing.T) {
	e := &Exception{Status: StatusInProgress, Priority: PriorityUrgent}
	low := PriorityLow
	if err := e.Escalate(&low); err != ErrPriorityLowered {
		t.Fatalf("expected ErrPriorityLowered, got %v", err)
	}
	if e.Priority != PriorityUrgent || e.Status != StatusInProgress {
		t.Fatal("failed escalation must not mutate the exception")
	}
}

func TestReEscalateOnlyWithHigherPriority(t *testing.T) {
	e := &Exception{Status: StatusEscalated, Priority: PriorityHigh}
	if err := e.Escalate(nil); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	urgent := PriorityUrgent
	if err := e.Escalate(&urgent); err != nil {
		t.Fatalf("Escalate with raise: %v", err)
	}
	if e.Priority != PriorityUrgent {
		t.Fatalf("expected URGENT, got %s", e.Priority)
	}
}

func TestResolveWritesOnce(t *testing.T) {
	now := time.Now().UTC()
	e := &Exception{Status: StatusInProgress, Priority: PriorityMedium}
	if err := e.Resolve("rerouted driver", "manager-1", now); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := e.Resolve("other notes", "manager-2", now); err != ErrAlreadyResolved {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if *e.ResolutionNotes != "rerouted driver" || *e.ResolvedBy != "manager-1" {
		t.Fatal("resolution fields must be immutable after close")
	}
	if err := e.Escalate(nil); err != ErrInvalidTransition {
		t.Fatalf("expected escalate after resolve to fail, got %v", err)
	}
}

func TestPriorityOrder(t *testing.T) {
	ordered := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	for i, p := range ordered {
		for j, q := range ordered {
			if got := p.AtLeast(q); got != (i >= j) {
				t.Fatalf("%s.AtLeast(%s) = %v", p, q, got)
			}
		}
	}
}
