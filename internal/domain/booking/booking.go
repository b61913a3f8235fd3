package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents booking lifecycle status.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusQuoted              Status = "QUOTED"
	StatusConfirmed           Status = "CONFIRMED"
	StatusInProgress          Status = "IN_PROGRESS"
	StatusCompleted           Status = "COMPLETED"
	StatusConfirmedByCustomer Status = "CONFIRMED_BY_CUSTOMER"
	StatusReviewed            Status = "REVIEWED"
	StatusCancelled           Status = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// transitions is the closed successor table. The lifecycle is linear;
// CANCELLED is reachable from every non-terminal status and no status
// may be skipped.
var transitions = map[Status][]Status{
	StatusPending:             {StatusQuoted, StatusCancelled},
	StatusQuoted:              {StatusConfirmed, StatusCancelled},
	StatusConfirmed:           {StatusInProgress, StatusCancelled},
	StatusInProgress:          {StatusCompleted, StatusCancelled},
	StatusCompleted:           {StatusConfirmedByCustomer, StatusCancelled},
	StatusConfirmedByCustomer: {StatusReviewed, StatusCancelled},
	StatusReviewed:            {},
	StatusCancelled:           {},
}

// IsTerminal reports whether the status ends the booking lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusReviewed || s == StatusCancelled
}

// IsValid reports whether s is a known booking status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Item is one transported item on a booking.
type Item struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Quantity            int    `json:"quantity"`
	IsFragile           bool   `json:"isFragile"`
	RequiresDisassembly bool   `json:"requiresDisassembly"`
	RequiresPackaging   bool   `json:"requiresPackaging"`
	Notes               *string `json:"notes,omitempty"`
}

// Booking is the aggregate root for quotations, counter-offers and
// disputes. Children reference it by identity only.
type Booking struct {
	ID               int64      `json:"id"`
	BookingID        uuid.UUID  `json:"bookingId"`
	CustomerID       string     `json:"customerId"`
	TransportID      *string    `json:"transportId,omitempty"`
	Status           Status     `json:"status"`
	PickupLocation   string     `json:"pickupLocation"`
	DeliveryLocation string     `json:"deliveryLocation"`
	WindowStart      time.Time  `json:"windowStart"`
	WindowEnd        time.Time  `json:"windowEnd"`
	Items            []Item     `json:"items,omitempty"`
	AgreedPrice      *float64   `json:"agreedPrice,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CanTransitionTo validates a booking status transition.
func (b *Booking) CanTransitionTo(target Status) bool {
	for _, s := range transitions[b.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo advances the booking status or fails with ErrInvalidTransition.
func (b *Booking) TransitionTo(target Status) error {
	if !b.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	b.Status = target
	return nil
}

// PartyIDs returns the user identities on both sides of the booking.
func (b *Booking) PartyIDs() []string {
	ids := []string{b.CustomerID}
	if b.TransportID != nil {
		ids = append(ids, *b.TransportID)
	}
	return ids
}

// Counterpart returns the other side's user id, or "" when the booking
// has no transport assigned yet.
func (b *Booking) Counterpart(userID string) string {
	if userID == b.CustomerID {
		if b.TransportID != nil {
			return *b.TransportID
		}
		return ""
	}
	return b.CustomerID
}

// IsParty reports whether the user belongs to the booking.
func (b *Booking) IsParty(userID string) bool {
	if userID == b.CustomerID {
		return true
	}
	return b.TransportID != nil && *b.TransportID == userID
}
