package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

// LockKey is the aggregate lock key for a booking. Quotations and
// counter-offers mutate under the same key as their owning booking.
func LockKey(bookingID uuid.UUID) string {
	return "booking:" + bookingID.String()
}

// Service owns the booking lifecycle.
type Service struct {
	repo   booking.Repository
	locks  *lock.KeyedMutex
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new booking service
func NewService(repo booking.Repository, locks *lock.KeyedMutex, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locks:  locks,
		clock:  clk,
		logger: logger.With().Str("service", "booking").Logger(),
	}
}

// CreateParams carries the fields needed to open a booking.
type CreateParams struct {
	CustomerID       string         `json:"-"`
	PickupLocation   string         `json:"pickupLocation"`
	DeliveryLocation string         `json:"deliveryLocation"`
	WindowStart      time.Time      `json:"windowStart"`
	WindowEnd        time.Time      `json:"windowEnd"`
	Items            []booking.Item `json:"items"`
}

// Create opens a booking in PENDING.
func (s *Service) Create(ctx context.Context, params CreateParams) (*booking.Booking, effect.Effects, error) {
	var eff effect.Effects

	if params.PickupLocation == "" || params.DeliveryLocation == "" {
		return nil, eff, fault.InvalidArgument("pickup and delivery locations are required")
	}
	if !params.WindowEnd.After(params.WindowStart) {
		return nil, eff, fault.InvalidArgument("delivery window end must be after its start")
	}
	for _, item := range params.Items {
		if item.Name == "" {
			return nil, eff, fault.InvalidArgument("item name is required")
		}
		if item.Quantity < 1 {
			return nil, eff, fault.InvalidArgument("item quantity must be at least 1")
		}
	}

	now := s.clock.Now()
	b := &booking.Booking{
		BookingID:        uuid.New(),
		CustomerID:       params.CustomerID,
		Status:           booking.StatusPending,
		PickupLocation:   params.PickupLocation,
		DeliveryLocation: params.DeliveryLocation,
		WindowStart:      params.WindowStart,
		WindowEnd:        params.WindowEnd,
		Items:            params.Items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, eff, fmt.Errorf("failed to create booking: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionBookingCreated,
		TargetType: effect.TargetBooking,
		TargetID:   b.BookingID.String(),
		Actor:      actor.Actor{UserID: params.CustomerID, Role: actor.RoleCustomer},
		Details: map[string]interface{}{
			"pickupLocation":   b.PickupLocation,
			"deliveryLocation": b.DeliveryLocation,
		},
	})

	s.logger.Info().
		Str("bookingId", b.BookingID.String()).
		Str("customerId", b.CustomerID).
		Msg("booking created")

	return b, eff, nil
}

// Get returns the booking or a NOT_FOUND fault.
func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, fault.NotFound("booking %s not found", bookingID)
	}
	return b, nil
}

// List returns bookings, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *booking.Status, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if status != nil && !status.IsValid() {
		return nil, fault.InvalidArgument("unknown booking status %q", *status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

// RequestTransition advances the booking status under the aggregate
// lock. Requesting the status the booking already has is a no-op.
func (s *Service) RequestTransition(ctx context.Context, bookingID uuid.UUID, target booking.Status, act actor.Actor) (*booking.Booking, effect.Effects, error) {
	unlock := s.locks.Lock(LockKey(bookingID))
	defer unlock()

	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, effect.Effects{}, err
	}
	eff, err := s.ApplyTransition(ctx, b, target, act)
	return b, eff, err
}

// Confirm records the winning transport and agreed price and moves the
// booking to CONFIRMED. The caller must hold the booking's aggregate lock.
func (s *Service) Confirm(ctx context.Context, b *booking.Booking, transportID string, agreedPrice float64, act actor.Actor) (effect.Effects, error) {
	var eff effect.Effects

	if !b.CanTransitionTo(booking.StatusConfirmed) {
		return eff, fault.InvalidState("booking %s cannot confirm from %s", b.BookingID, b.Status)
	}
	from := b.Status
	b.TransportID = &transportID
	b.AgreedPrice = &agreedPrice
	b.Status = booking.StatusConfirmed
	b.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, b); err != nil {
		return eff, fmt.Errorf("failed to confirm booking: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionBookingStatusChanged,
		TargetType: effect.TargetBooking,
		TargetID:   b.BookingID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"from":        string(from),
			"to":          string(booking.StatusConfirmed),
			"agreedPrice": agreedPrice,
		},
	})
	return eff, nil
}

// ApplyTransition advances the status of an already loaded booking. The
// caller must hold the booking's aggregate lock.
func (s *Service) ApplyTransition(ctx context.Context, b *booking.Booking, target booking.Status, act actor.Actor) (effect.Effects, error) {
	var eff effect.Effects

	if !target.IsValid() {
		return eff, fault.InvalidArgument("unknown booking status %q", target)
	}
	if !act.IsSystem() && !act.IsManager() && !b.IsParty(act.UserID) {
		return eff, fault.Forbidden("user %s is not a party to booking %s", act.UserID, b.BookingID)
	}
	if b.Status == target {
		return eff, nil
	}

	from := b.Status
	if err := b.TransitionTo(target); err != nil {
		return eff, fault.Wrap(fault.KindInvalidState, err, "cannot move booking %s from %s to %s", b.BookingID, from, target)
	}
	b.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, b.BookingID, b.Status, b.UpdatedAt); err != nil {
		return eff, fmt.Errorf("failed to update booking status: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionBookingStatusChanged,
		TargetType: effect.TargetBooking,
		TargetID:   b.BookingID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"from": string(from),
			"to":   string(target),
		},
	})
	// Service-internal transitions leave user-facing messaging to the
	// flow that triggered them.
	if !act.IsSystem() {
		payload, _ := json.Marshal(map[string]string{
			"bookingId": b.BookingID.String(),
			"from":      string(from),
			"to":        string(target),
		})
		for _, party := range b.PartyIDs() {
			if party == act.UserID {
				continue
			}
			eff.Notify(effect.NotificationRequest{
				RecipientUserID: party,
				Type:            effect.NotifyBookingStatusChanged,
				Title:           "Booking status updated",
				Body:            fmt.Sprintf("Booking moved from %s to %s", from, target),
				Payload:         payload,
			})
		}
	}

	s.logger.Info().
		Str("bookingId", b.BookingID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", act.UserID).
		Msg("booking status changed")

	return eff, nil
}
