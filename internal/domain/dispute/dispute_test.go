package dispute

import (
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusUnderReview},
		{StatusPending, StatusEscalated},
		{StatusUnderReview, StatusEscalated},
		{StatusUnderReview, StatusResolved},
		{StatusUnderReview, StatusRejected},
		{StatusEscalated, StatusResolved},
		{StatusEscalated, StatusRejected},
	}
	for _, tc := range allowed {
		d := &Dispute{Status: tc.from}
		if !d.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusPending, StatusResolved},
		{StatusPending, StatusRejected},
		{StatusResolved, StatusUnderReview},
		{StatusRejected, StatusEscalated},
		{StatusEscalated, StatusUnderReview},
	}
	for _, tc := range denied {
		d := &Dispute{Status: tc.from}
		if d.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestResolveWritesOnce(t *testing.T) {
	now := time.Now().UTC()
	d := &Dispute{Status: StatusUnderReview}
	if err := d.Resolve(StatusResolved, "refund issued", "manager-1", now); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.ResolutionNotes == nil || *d.ResolutionNotes != "refund issued" {
		t.Fatal("resolution notes not recorded")
	}
	if d.ResolvedBy == nil || *d.ResolvedBy != "manager-1" {
		t.Fatal("resolver not recorded")
	}
	if err := d.Resolve(StatusRejected, "changed my mind", "manager-2", now); err == nil {
		t.Fatal("expected second resolve to fail")
	}
	if *d.ResolutionNotes != "refund issued" || d.Status != StatusResolved {
		t.Fatal("resolution fields must be immutable after close")
	}
}

func TestResolveRequiresReviewState(t *testing.T) {
	d := &Dispute{Status: StatusPending}
	if err := d.Resolve(StatusResolved, "n", "m", time.Now().UTC()); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := d.Resolve(StatusUnderReview, "n", "m", time.Now().UTC()); err != ErrInvalidTransition {
		t.Fatalf("expected non-outcome target to be rejected, got %v", err)
	}
}

func TestIsParty(t *testing.T) {
	d := &Dispute{FiledByUserID: "customer-1"}
	if !d.IsParty("customer-1", nil) {
		t.Fatal("filer must be a party")
	}
	if !d.IsParty("transport-1", []string{"customer-1", "transport-1"}) {
		t.Fatal("booking party must be a party")
	}
	if d.IsParty("stranger", []string{"customer-1", "transport-1"}) {
		t.Fatal("stranger must not be a party")
	}
}

func TestTypeValidation(t *testing.T) {
	for _, typ := range []Type{TypePricing, TypeDamageClaim, TypeServiceQuality, TypeDeliveryIssue, TypePaymentIssue, TypeOther} {
		if !typ.IsValid() {
			t.Fatalf("expected %s to be valid", typ)
		}
	}
	if Type("SOMETHING_ELSE").IsValid() {
		t.Fatal("unknown type must be invalid")
	}
}
