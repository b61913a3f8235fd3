package notification

import (
	"testing"
	"time"

	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

func TestDeliveryTransitions(t *testing.T) {
	now := time.Now().UTC()
	n := FromRequest(effect.NotificationRequest{
		RecipientUserID: "customer-1",
		Type:            effect.NotifyCounterOfferReceived,
		Title:           "New counter-offer",
	}, now, 0)

	if err := n.MarkSent(now); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := n.MarkDelivered(now); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := n.MarkSent(now); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition after delivery, got %v", err)
	}
}

func TestRetryBudget(t *testing.T) {
	now := time.Now().UTC()
	n := FromRequest(effect.NotificationRequest{RecipientUserID: "u", Type: effect.NotifyDisputeFiled}, now, 0)
	for i := 0; i < 3; i++ {
		if err := n.MarkFailed("no connection", now); err != nil {
			t.Fatalf("MarkFailed %d: %v", i, err)
		}
		if i < 2 {
			if err := n.ResetForRetry(now); err != nil {
				t.Fatalf("ResetForRetry %d: %v", i, err)
			}
		}
	}
	if n.CanRetry(now) {
		t.Fatal("retry budget must be exhausted after max retries")
	}
	if err := n.ResetForRetry(now); err != ErrCannotRetry {
		t.Fatalf("expected ErrCannotRetry, got %v", err)
	}
}

func TestExpiryBeatsDelivery(t *testing.T) {
	now := time.Now().UTC()
	n := FromRequest(effect.NotificationRequest{RecipientUserID: "u", Type: effect.NotifyQuotationReceived}, now, time.Hour)
	late := now.Add(2 * time.Hour)
	if err := n.MarkSent(late); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if n.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", n.Status)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	now := time.Now().UTC()
	n := FromRequest(effect.NotificationRequest{RecipientUserID: "u", Type: effect.NotifyDisputeMessage}, now, 0)
	n.MarkRead(now)
	first := n.ReadAt
	n.MarkRead(now.Add(time.Minute))
	if n.ReadAt != first {
		t.Fatal("ReadAt must not move on repeat reads")
	}
}
