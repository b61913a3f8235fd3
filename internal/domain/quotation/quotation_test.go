package quotation

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
)

var testCustomer = actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer}

func testQuotation(t *testing.T, price float64) *Quotation {
	t.Helper()
	q, err := NewQuotation(uuid.New(), "transport-1", price, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewQuotation: %v", err)
	}
	return q
}

func TestNewQuotationRejectsNonPositivePrice(t *testing.T) {
	now := time.Now().UTC()
	for _, price := range []float64{0, -1, -1000000} {
		if _, err := NewQuotation(uuid.New(), "transport-1", price, nil, now); err != ErrNonPositivePrice {
			t.Fatalf("price %v: expected ErrNonPositivePrice, got %v", price, err)
		}
	}
}

func TestCounterOfferPriceMath(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 1_000_000)
	c, err := NewCounterOffer(q, 900_000, nil, testCustomer, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewCounterOffer: %v", err)
	}
	if c.PriceDifference != -100_000 {
		t.Fatalf("expected priceDifference -100000, got %v", c.PriceDifference)
	}
	if math.Abs(c.PercentageChange-(-10.0)) > 1e-9 {
		t.Fatalf("expected percentageChange -10.0, got %v", c.PercentageChange)
	}
}

func TestCounterOfferDerivedFieldsConsistent(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct{ ref, offered float64 }{
		{1000, 1500},
		{1000, 999.5},
		{250_000, 300_000},
		{3, 1},
	}
	for _, tc := range cases {
		q := testQuotation(t, tc.ref)
		c, err := NewCounterOffer(q, tc.offered, nil, testCustomer, now, time.Hour)
		if err != nil {
			t.Fatalf("ref %v offered %v: %v", tc.ref, tc.offered, err)
		}
		if got := c.OfferedPrice - c.OriginalPrice; math.Abs(c.PriceDifference-got) > 1e-9 {
			t.Fatalf("priceDifference mismatch: %v vs %v", c.PriceDifference, got)
		}
		if got := c.PriceDifference / c.OriginalPrice * 100; math.Abs(c.PercentageChange-got) > 1e-9 {
			t.Fatalf("percentageChange mismatch: %v vs %v", c.PercentageChange, got)
		}
	}
}

func TestCounterOfferRejectsUnchangedOrInvalidPrice(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 500)
	if _, err := NewCounterOffer(q, 500, nil, testCustomer, now, time.Hour); err != ErrPriceUnchanged {
		t.Fatalf("expected ErrPriceUnchanged, got %v", err)
	}
	if _, err := NewCounterOffer(q, 0, nil, testCustomer, now, time.Hour); err != ErrNonPositivePrice {
		t.Fatalf("expected ErrNonPositivePrice, got %v", err)
	}
}

func TestCounterOfferComputedAgainstReferencePrice(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 1000)
	q.ReferencePrice = 800 // a prior counter-offer was accepted
	c, err := NewCounterOffer(q, 900, nil, testCustomer, now, time.Hour)
	if err != nil {
		t.Fatalf("NewCounterOffer: %v", err)
	}
	if c.OriginalPrice != 800 {
		t.Fatalf("expected originalPrice 800, got %v", c.OriginalPrice)
	}
	if c.PriceDifference != 100 {
		t.Fatalf("expected priceDifference 100, got %v", c.PriceDifference)
	}
}

func TestCanRespondWindow(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 1000)
	c, err := NewCounterOffer(q, 900, nil, testCustomer, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewCounterOffer: %v", err)
	}
	if !c.CanRespond(now) {
		t.Fatal("expected fresh offer to be actionable")
	}
	if c.CanRespond(now.Add(24 * time.Hour)) {
		t.Fatal("expected offer at the expiry instant to be non-actionable")
	}
	if c.CanRespond(now.Add(25 * time.Hour)) {
		t.Fatal("expected lapsed offer to be non-actionable")
	}
	if err := c.Accept("transport-1", nil, now); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if c.CanRespond(now) {
		t.Fatal("expected responded offer to be non-actionable")
	}
}

func TestHoursUntilExpirationDerived(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 1000)
	c, err := NewCounterOffer(q, 900, nil, testCustomer, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewCounterOffer: %v", err)
	}
	h := c.HoursUntilExpiration(now.Add(12 * time.Hour))
	if h == nil || math.Abs(*h-12) > 1e-9 {
		t.Fatalf("expected 12h remaining, got %v", h)
	}
	if c.HoursUntilExpiration(now.Add(25*time.Hour)) != nil {
		t.Fatal("expected nil after expiry")
	}
}

func TestRespondIsTerminal(t *testing.T) {
	now := time.Now().UTC()
	q := testQuotation(t, 1000)
	c, _ := NewCounterOffer(q, 900, nil, testCustomer, now, time.Hour)
	if err := c.Reject("transport-1", nil, now); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if err := c.Accept("transport-1", nil, now); err != ErrNotPending {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := c.Expire(); err != ErrNotPending {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
}
