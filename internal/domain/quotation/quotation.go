package quotation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
)

// Status is shared by quotations and counter-offers.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusRejected   Status = "REJECTED"
	StatusExpired    Status = "EXPIRED"
	StatusSuperseded Status = "SUPERSEDED"
)

var (
	ErrNonPositivePrice = errors.New("price must be positive")
	ErrPriceUnchanged   = errors.New("offered price must differ from the reference price")
	ErrNotPending       = errors.New("not in PENDING status")
)

// Quotation is a transport company's quote on a booking. The reference
// price starts at the quoted price and tracks the latest accepted
// counter-offer.
type Quotation struct {
	ID             int64     `json:"id"`
	QuotationID    uuid.UUID `json:"quotationId"`
	BookingID      uuid.UUID `json:"bookingId"`
	TransportID    string    `json:"transportId"`
	Price          float64   `json:"price"`
	ReferencePrice float64   `json:"referencePrice"`
	Message        *string   `json:"message,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewQuotation validates and builds a PENDING quotation. A non-positive
// price is rejected here, which keeps the percentage-change computation
// well-defined for every counter-offer by construction.
func NewQuotation(bookingID uuid.UUID, transportID string, price float64, message *string, now time.Time) (*Quotation, error) {
	if price <= 0 {
		return nil, ErrNonPositivePrice
	}
	return &Quotation{
		QuotationID:    uuid.New(),
		BookingID:      bookingID,
		TransportID:    transportID,
		Price:          price,
		ReferencePrice: price,
		Message:        message,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (q *Quotation) IsPending() bool {
	return q.Status == StatusPending
}

// CounterOffer is a price counter on a quotation, owned by exactly one
// quotation and time-bound by expiresAt.
type CounterOffer struct {
	ID               int64      `json:"id"`
	CounterOfferID   uuid.UUID  `json:"counterOfferId"`
	QuotationID      uuid.UUID  `json:"quotationId"`
	OriginalPrice    float64    `json:"originalPrice"`
	OfferedPrice     float64    `json:"offeredPrice"`
	PriceDifference  float64    `json:"priceDifference"`
	PercentageChange float64    `json:"percentageChange"`
	Reason           *string    `json:"reason,omitempty"`
	Status           Status     `json:"status"`
	OfferedByUserID  string     `json:"offeredByUserId"`
	OfferedByRole    actor.Role `json:"offeredByRole"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	RespondedByID    *string    `json:"respondedByUserId,omitempty"`
	ResponseMessage  *string    `json:"responseMessage,omitempty"`
}

// NewCounterOffer builds a PENDING counter-offer against the quotation's
// current reference price. The derived fields are computed once at
// creation; the sign of the change is preserved.
func NewCounterOffer(q *Quotation, offeredPrice float64, reason *string, by actor.Actor, now time.Time, window time.Duration) (*CounterOffer, error) {
	if offeredPrice <= 0 {
		return nil, ErrNonPositivePrice
	}
	if offeredPrice == q.ReferencePrice {
		return nil, ErrPriceUnchanged
	}
	diff := offeredPrice - q.ReferencePrice
	return &CounterOffer{
		CounterOfferID:   uuid.New(),
		QuotationID:      q.QuotationID,
		OriginalPrice:    q.ReferencePrice,
		OfferedPrice:     offeredPrice,
		PriceDifference:  diff,
		PercentageChange: diff / q.ReferencePrice * 100,
		Reason:           reason,
		Status:           StatusPending,
		OfferedByUserID:  by.UserID,
		OfferedByRole:    by.Role,
		CreatedAt:        now,
		ExpiresAt:        now.Add(window),
	}, nil
}

// IsExpired reports whether the offer's response window has closed.
func (c *CounterOffer) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CanRespond reports whether the offer is still actionable: PENDING and
// not past its expiry.
func (c *CounterOffer) CanRespond(now time.Time) bool {
	return c.Status == StatusPending && !c.IsExpired(now)
}

// HoursUntilExpiration is a display value recomputed at query time,
// never stored. Nil once the offer is no longer actionable.
func (c *CounterOffer) HoursUntilExpiration(now time.Time) *float64 {
	if !c.CanRespond(now) {
		return nil
	}
	h := c.ExpiresAt.Sub(now).Hours()
	return &h
}

// Accept marks the offer accepted and records the responder.
func (c *CounterOffer) Accept(by string, message *string, now time.Time) error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	c.Status = StatusAccepted
	c.RespondedAt = &now
	c.RespondedByID = &by
	c.ResponseMessage = message
	return nil
}

// Reject marks the offer rejected and records the responder.
func (c *CounterOffer) Reject(by string, message *string, now time.Time) error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	c.Status = StatusRejected
	c.RespondedAt = &now
	c.RespondedByID = &by
	c.ResponseMessage = message
	return nil
}

// Expire marks a lapsed offer EXPIRED.
func (c *CounterOffer) Expire() error {
	if c.Status != StatusPending {
		return ErrNotPending
	}
	c.Status = StatusExpired
	return nil
}
