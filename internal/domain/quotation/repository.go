package quotation

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,CounterOfferRepository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines quotation persistence.
type Repository interface {
	Create(ctx context.Context, q *Quotation) error
	GetByID(ctx context.Context, quotationID uuid.UUID) (*Quotation, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Quotation, error)
	Update(ctx context.Context, q *Quotation) error

	// Accept marks the quotation ACCEPTED and, in the same transaction,
	// marks every sibling PENDING quotation on the booking SUPERSEDED and
	// every open counter-offer on those siblings SUPERSEDED. No state with
	// two accepted siblings is ever observable.
	Accept(ctx context.Context, quotationID uuid.UUID, bookingID uuid.UUID, now time.Time) error
}

// CounterOfferRepository defines counter-offer persistence.
type CounterOfferRepository interface {
	// Create inserts the offer and, in the same transaction, marks any
	// PENDING counter-offer on the same quotation SUPERSEDED.
	Create(ctx context.Context, c *CounterOffer) error
	GetByID(ctx context.Context, counterOfferID uuid.UUID) (*CounterOffer, error)
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]*CounterOffer, error)
	// Latest returns the most recently created counter-offer on the
	// quotation regardless of status, or nil when none exists.
	Latest(ctx context.Context, quotationID uuid.UUID) (*CounterOffer, error)
	Update(ctx context.Context, c *CounterOffer) error
	// Respond persists the responded offer and, when newReferencePrice is
	// set, updates the owning quotation's reference price in the same
	// transaction.
	Respond(ctx context.Context, c *CounterOffer, newReferencePrice *float64) error
	// ListExpired returns PENDING offers whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*CounterOffer, error)
}
