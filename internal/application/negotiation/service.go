package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	bookingsvc "github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/domain/quotation"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

// Service runs the quotation and counter-offer negotiation. All
// mutations on a quotation or counter-offer run under the owning
// booking's aggregate lock.
type Service struct {
	bookings      *bookingsvc.Service
	quotations    quotation.Repository
	counterOffers quotation.CounterOfferRepository
	locks         *lock.KeyedMutex
	clock         clock.Clock
	logger        zerolog.Logger
	window        time.Duration
}

// NewService creates a new negotiation service
func NewService(
	bookings *bookingsvc.Service,
	quotations quotation.Repository,
	counterOffers quotation.CounterOfferRepository,
	locks *lock.KeyedMutex,
	clk clock.Clock,
	logger zerolog.Logger,
	window time.Duration,
) *Service {
	return &Service{
		bookings:      bookings,
		quotations:    quotations,
		counterOffers: counterOffers,
		locks:         locks,
		clock:         clk,
		logger:        logger.With().Str("service", "negotiation").Logger(),
		window:        window,
	}
}

// SubmitQuotation places a transport company's quote on a PENDING or
// QUOTED booking. The first quote moves the booking to QUOTED.
func (s *Service) SubmitQuotation(ctx context.Context, bookingID uuid.UUID, price float64, message *string, act actor.Actor) (*quotation.Quotation, effect.Effects, error) {
	var eff effect.Effects

	if act.Role != actor.RoleTransport {
		return nil, eff, fault.Forbidden("only transport companies submit quotations")
	}

	unlock := s.locks.Lock(bookingsvc.LockKey(bookingID))
	defer unlock()

	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, eff, err
	}
	if b.Status != booking.StatusPending && b.Status != booking.StatusQuoted {
		return nil, eff, fault.InvalidState("booking %s no longer accepts quotations in status %s", bookingID, b.Status)
	}

	now := s.clock.Now()
	q, err := quotation.NewQuotation(bookingID, act.UserID, price, message, now)
	if err != nil {
		return nil, eff, fault.Wrap(fault.KindInvalidArgument, err, "invalid quotation")
	}
	if err := s.quotations.Create(ctx, q); err != nil {
		return nil, eff, fmt.Errorf("failed to create quotation: %w", err)
	}

	// The quoting transport is not yet a booking party; the QUOTED hop
	// is driven by the service itself, not the actor.
	if b.Status == booking.StatusPending {
		transitionEff, err := s.bookings.ApplyTransition(ctx, b, booking.StatusQuoted, actor.System)
		if err != nil {
			return nil, eff, err
		}
		eff.Append(transitionEff)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionQuotationSubmitted,
		TargetType: effect.TargetQuotation,
		TargetID:   q.QuotationID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"bookingId": bookingID.String(),
			"price":     price,
		},
	})
	payload, _ := json.Marshal(map[string]interface{}{
		"bookingId":   bookingID.String(),
		"quotationId": q.QuotationID.String(),
		"price":       price,
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: b.CustomerID,
		Type:            effect.NotifyQuotationReceived,
		Title:           "New quotation received",
		Body:            fmt.Sprintf("A transport company quoted %.2f for your booking", price),
		Payload:         payload,
	})

	s.logger.Info().
		Str("quotationId", q.QuotationID.String()).
		Str("bookingId", bookingID.String()).
		Float64("price", price).
		Msg("quotation submitted")

	return q, eff, nil
}

// ListQuotations returns every quotation on a booking.
func (s *Service) ListQuotations(ctx context.Context, bookingID uuid.UUID) ([]*quotation.Quotation, error) {
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.quotations.ListByBooking(ctx, bookingID)
}

// GetQuotation returns one quotation or a NOT_FOUND fault.
func (s *Service) GetQuotation(ctx context.Context, quotationID uuid.UUID) (*quotation.Quotation, error) {
	q, err := s.quotations.GetByID(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	if q == nil {
		return nil, fault.NotFound("quotation %s not found", quotationID)
	}
	return q, nil
}

// AcceptQuotation settles the negotiation on the quotation's current
// reference price. Sibling PENDING quotations and their open
// counter-offers are superseded in the same transaction; the booking
// moves to CONFIRMED with the reference price as the agreed price.
func (s *Service) AcceptQuotation(ctx context.Context, quotationID uuid.UUID, act actor.Actor) (*quotation.Quotation, effect.Effects, error) {
	var eff effect.Effects

	q, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	unlock := s.locks.Lock(bookingsvc.LockKey(q.BookingID))
	defer unlock()

	// Reload under the lock; a concurrent command may have settled it.
	q, err = s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	b, err := s.bookings.Get(ctx, q.BookingID)
	if err != nil {
		return nil, eff, err
	}
	if act.UserID != b.CustomerID && !act.IsManager() {
		return nil, eff, fault.Forbidden("only the booking's customer may accept a quotation")
	}
	if !q.IsPending() {
		return nil, eff, fault.InvalidState("quotation %s is %s, not PENDING", quotationID, q.Status)
	}
	if !b.CanTransitionTo(booking.StatusConfirmed) {
		return nil, eff, fault.InvalidState("booking %s cannot confirm from %s", b.BookingID, b.Status)
	}

	now := s.clock.Now()
	if err := s.quotations.Accept(ctx, q.QuotationID, q.BookingID, now); err != nil {
		return nil, eff, fmt.Errorf("failed to accept quotation: %w", err)
	}
	q.Status = quotation.StatusAccepted
	q.UpdatedAt = now

	agreed := q.ReferencePrice
	confirmEff, err := s.bookings.Confirm(ctx, b, q.TransportID, agreed, act)
	if err != nil {
		return nil, eff, err
	}
	eff.Append(confirmEff)

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionBidAccepted,
		TargetType: effect.TargetQuotation,
		TargetID:   q.QuotationID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"bookingId":   q.BookingID.String(),
			"agreedPrice": agreed,
		},
	})
	payload, _ := json.Marshal(map[string]interface{}{
		"bookingId":   q.BookingID.String(),
		"quotationId": q.QuotationID.String(),
		"agreedPrice": agreed,
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: q.TransportID,
		Type:            effect.NotifyQuotationAccepted,
		Title:           "Quotation accepted",
		Body:            fmt.Sprintf("Your quotation was accepted at %.2f", agreed),
		Payload:         payload,
	})

	s.logger.Info().
		Str("quotationId", q.QuotationID.String()).
		Str("bookingId", q.BookingID.String()).
		Float64("agreedPrice", agreed).
		Msg("quotation accepted")

	return q, eff, nil
}

// RejectQuotation declines a PENDING quotation without touching its
// siblings.
func (s *Service) RejectQuotation(ctx context.Context, quotationID uuid.UUID, act actor.Actor) (*quotation.Quotation, effect.Effects, error) {
	var eff effect.Effects

	q, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	unlock := s.locks.Lock(bookingsvc.LockKey(q.BookingID))
	defer unlock()

	q, err = s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	b, err := s.bookings.Get(ctx, q.BookingID)
	if err != nil {
		return nil, eff, err
	}
	if act.UserID != b.CustomerID && !act.IsManager() {
		return nil, eff, fault.Forbidden("only the booking's customer may reject a quotation")
	}
	if !q.IsPending() {
		return nil, eff, fault.InvalidState("quotation %s is %s, not PENDING", quotationID, q.Status)
	}

	q.Status = quotation.StatusRejected
	q.UpdatedAt = s.clock.Now()
	if err := s.quotations.Update(ctx, q); err != nil {
		return nil, eff, fmt.Errorf("failed to reject quotation: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionBidRejected,
		TargetType: effect.TargetQuotation,
		TargetID:   q.QuotationID.String(),
		Actor:      act,
		Details:    map[string]interface{}{"bookingId": q.BookingID.String()},
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: q.TransportID,
		Type:            effect.NotifyQuotationRejected,
		Title:           "Quotation rejected",
		Body:            "Your quotation was rejected by the customer",
	})

	return q, eff, nil
}

// SubmitCounterOffer opens a counter against the quotation's current
// reference price. Sides must alternate: whoever made the latest
// unanswered offer cannot counter again until the other side responds.
func (s *Service) SubmitCounterOffer(ctx context.Context, quotationID uuid.UUID, offeredPrice float64, reason *string, act actor.Actor) (*quotation.CounterOffer, effect.Effects, error) {
	var eff effect.Effects

	q, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	unlock := s.locks.Lock(bookingsvc.LockKey(q.BookingID))
	defer unlock()

	q, err = s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, eff, err
	}

	b, err := s.bookings.Get(ctx, q.BookingID)
	if err != nil {
		return nil, eff, err
	}
	switch act.Role {
	case actor.RoleCustomer:
		if act.UserID != b.CustomerID {
			return nil, eff, fault.Forbidden("user %s is not a party to booking %s", act.UserID, b.BookingID)
		}
	case actor.RoleTransport:
		if act.UserID != q.TransportID {
			return nil, eff, fault.Forbidden("user %s did not submit quotation %s", act.UserID, quotationID)
		}
	default:
		return nil, eff, fault.Forbidden("only negotiating parties submit counter-offers")
	}
	if !q.IsPending() {
		return nil, eff, fault.InvalidState("quotation %s is %s, not PENDING", quotationID, q.Status)
	}

	latest, err := s.counterOffers.Latest(ctx, quotationID)
	if err != nil {
		return nil, eff, fmt.Errorf("failed to load latest counter-offer: %w", err)
	}
	if latest != nil && latest.RespondedAt == nil && latest.Status == quotation.StatusPending && act.SameParty(latest.OfferedByRole) {
		return nil, eff, fault.Forbidden("side %s must wait for a response to its previous counter-offer", act.Role)
	}

	now := s.clock.Now()
	c, err := quotation.NewCounterOffer(q, offeredPrice, reason, act, now, s.window)
	if err != nil {
		return nil, eff, fault.Wrap(fault.KindInvalidArgument, err, "invalid counter-offer")
	}
	if err := s.counterOffers.Create(ctx, c); err != nil {
		return nil, eff, fmt.Errorf("failed to create counter-offer: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionCounterOfferSubmitted,
		TargetType: effect.TargetCounterOffer,
		TargetID:   c.CounterOfferID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"quotationId":      quotationID.String(),
			"offeredPrice":     c.OfferedPrice,
			"percentageChange": c.PercentageChange,
		},
	})
	recipient := b.CustomerID
	if act.Role == actor.RoleCustomer {
		recipient = q.TransportID
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"quotationId":    quotationID.String(),
		"counterOfferId": c.CounterOfferID.String(),
		"offeredPrice":   c.OfferedPrice,
		"expiresAt":      c.ExpiresAt,
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: recipient,
		Type:            effect.NotifyCounterOfferReceived,
		Title:           "Counter-offer received",
		Body:            fmt.Sprintf("The other side countered at %.2f", c.OfferedPrice),
		Payload:         payload,
	})

	s.logger.Info().
		Str("counterOfferId", c.CounterOfferID.String()).
		Str("quotationId", quotationID.String()).
		Float64("offeredPrice", c.OfferedPrice).
		Msg("counter-offer submitted")

	return c, eff, nil
}

// ListCounterOffers returns a quotation's counter-offer history.
func (s *Service) ListCounterOffers(ctx context.Context, quotationID uuid.UUID) ([]*quotation.CounterOffer, error) {
	if _, err := s.GetQuotation(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.counterOffers.ListByQuotation(ctx, quotationID)
}

// RespondToCounterOffer accepts or rejects a PENDING counter-offer.
// A lapsed offer is expired on the spot: the fix is persisted, its
// effects are emitted, and the command still fails with EXPIRED.
func (s *Service) RespondToCounterOffer(ctx context.Context, counterOfferID uuid.UUID, accept bool, message *string, act actor.Actor) (*quotation.CounterOffer, effect.Effects, error) {
	var eff effect.Effects

	c, err := s.getCounterOffer(ctx, counterOfferID)
	if err != nil {
		return nil, eff, err
	}
	q, err := s.GetQuotation(ctx, c.QuotationID)
	if err != nil {
		return nil, eff, err
	}

	unlock := s.locks.Lock(bookingsvc.LockKey(q.BookingID))
	defer unlock()

	c, err = s.getCounterOffer(ctx, counterOfferID)
	if err != nil {
		return nil, eff, err
	}
	q, err = s.GetQuotation(ctx, c.QuotationID)
	if err != nil {
		return nil, eff, err
	}

	b, err := s.bookings.Get(ctx, q.BookingID)
	if err != nil {
		return nil, eff, err
	}

	// Expiry wins over every other guard: whoever probes a lapsed offer
	// triggers the persisted fix.
	now := s.clock.Now()
	if c.Status == quotation.StatusPending && c.IsExpired(now) {
		expireEff, err := s.expireOffer(ctx, c)
		if err != nil {
			return nil, eff, err
		}
		eff.Append(expireEff)
		return nil, eff, fault.Expired("counter-offer %s expired at %s", counterOfferID, c.ExpiresAt.Format(time.RFC3339))
	}

	if act.SameParty(c.OfferedByRole) {
		return nil, eff, fault.Forbidden("the side that made the offer cannot respond to it")
	}
	switch act.Role {
	case actor.RoleCustomer:
		if act.UserID != b.CustomerID {
			return nil, eff, fault.Forbidden("user %s is not a party to booking %s", act.UserID, b.BookingID)
		}
	case actor.RoleTransport:
		if act.UserID != q.TransportID {
			return nil, eff, fault.Forbidden("user %s did not submit quotation %s", act.UserID, c.QuotationID)
		}
	default:
		return nil, eff, fault.Forbidden("only negotiating parties respond to counter-offers")
	}
	if c.Status != quotation.StatusPending {
		return nil, eff, fault.InvalidState("counter-offer %s is %s, not PENDING", counterOfferID, c.Status)
	}
	// A settled quotation freezes its open offers; nothing may move the
	// reference price afterwards.
	if !q.IsPending() {
		return nil, eff, fault.InvalidState("quotation %s is %s, not PENDING", c.QuotationID, q.Status)
	}

	var newReference *float64
	if accept {
		if err := c.Accept(act.UserID, message, now); err != nil {
			return nil, eff, fault.Wrap(fault.KindInvalidState, err, "cannot accept counter-offer %s", counterOfferID)
		}
		newReference = &c.OfferedPrice
	} else {
		if err := c.Reject(act.UserID, message, now); err != nil {
			return nil, eff, fault.Wrap(fault.KindInvalidState, err, "cannot reject counter-offer %s", counterOfferID)
		}
	}
	if err := s.counterOffers.Respond(ctx, c, newReference); err != nil {
		return nil, eff, fmt.Errorf("failed to respond to counter-offer: %w", err)
	}

	action := effect.ActionCounterOfferRejected
	notifyType := effect.NotifyCounterOfferRejected
	title := "Counter-offer rejected"
	if accept {
		action = effect.ActionCounterOfferAccepted
		notifyType = effect.NotifyCounterOfferAccepted
		title = "Counter-offer accepted"
	}
	eff.Audit(effect.AuditRecord{
		Action:     action,
		TargetType: effect.TargetCounterOffer,
		TargetID:   c.CounterOfferID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"quotationId":  c.QuotationID.String(),
			"offeredPrice": c.OfferedPrice,
		},
	})
	payload, _ := json.Marshal(map[string]interface{}{
		"quotationId":    c.QuotationID.String(),
		"counterOfferId": c.CounterOfferID.String(),
		"offeredPrice":   c.OfferedPrice,
		"accepted":       accept,
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: c.OfferedByUserID,
		Type:            notifyType,
		Title:           title,
		Body:            fmt.Sprintf("Your counter-offer of %.2f was %s", c.OfferedPrice, map[bool]string{true: "accepted", false: "rejected"}[accept]),
		Payload:         payload,
	})

	s.logger.Info().
		Str("counterOfferId", c.CounterOfferID.String()).
		Bool("accepted", accept).
		Msg("counter-offer responded")

	return c, eff, nil
}

// ExpireStaleCounterOffers sweeps lapsed PENDING offers. Each offer is
// expired under its own booking lock so the sweep never blocks live
// negotiation for long; ctx cancellation is honored between offers.
func (s *Service) ExpireStaleCounterOffers(ctx context.Context, limit int) (int, effect.Effects, error) {
	var eff effect.Effects

	stale, err := s.counterOffers.ListExpired(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, eff, fmt.Errorf("failed to list expired counter-offers: %w", err)
	}

	expired := 0
	for _, c := range stale {
		if err := ctx.Err(); err != nil {
			return expired, eff, err
		}
		q, err := s.quotations.GetByID(ctx, c.QuotationID)
		if err != nil || q == nil {
			continue
		}
		offerEff, err := s.expireUnderLock(ctx, q.BookingID, c.CounterOfferID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("counterOfferId", c.CounterOfferID.String()).
				Msg("failed to expire counter-offer")
			continue
		}
		if !offerEff.Empty() {
			expired++
			eff.Append(offerEff)
		}
	}
	return expired, eff, nil
}

func (s *Service) expireUnderLock(ctx context.Context, bookingID uuid.UUID, counterOfferID uuid.UUID) (effect.Effects, error) {
	unlock := s.locks.Lock(bookingsvc.LockKey(bookingID))
	defer unlock()

	c, err := s.getCounterOffer(ctx, counterOfferID)
	if err != nil {
		return effect.Effects{}, err
	}
	// Reloaded under the lock; a response may have beaten the sweep.
	if c.Status != quotation.StatusPending || !c.IsExpired(s.clock.Now()) {
		return effect.Effects{}, nil
	}
	return s.expireOffer(ctx, c)
}

// expireOffer persists the EXPIRED transition. Caller holds the lock.
func (s *Service) expireOffer(ctx context.Context, c *quotation.CounterOffer) (effect.Effects, error) {
	var eff effect.Effects

	if err := c.Expire(); err != nil {
		return eff, fault.Wrap(fault.KindInvalidState, err, "cannot expire counter-offer %s", c.CounterOfferID)
	}
	if err := s.counterOffers.Update(ctx, c); err != nil {
		return eff, fmt.Errorf("failed to persist expired counter-offer: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionCounterOfferExpired,
		TargetType: effect.TargetCounterOffer,
		TargetID:   c.CounterOfferID.String(),
		Actor:      actor.System,
		Details: map[string]interface{}{
			"quotationId": c.QuotationID.String(),
			"expiresAt":   c.ExpiresAt,
		},
	})
	payload, _ := json.Marshal(map[string]interface{}{
		"quotationId":    c.QuotationID.String(),
		"counterOfferId": c.CounterOfferID.String(),
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: c.OfferedByUserID,
		Type:            effect.NotifyCounterOfferExpired,
		Title:           "Counter-offer expired",
		Body:            fmt.Sprintf("Your counter-offer of %.2f expired without a response", c.OfferedPrice),
		Payload:         payload,
	})

	s.logger.Info().
		Str("counterOfferId", c.CounterOfferID.String()).
		Msg("counter-offer expired")

	return eff, nil
}

func (s *Service) getCounterOffer(ctx context.Context, counterOfferID uuid.UUID) (*quotation.CounterOffer, error) {
	c, err := s.counterOffers.GetByID(ctx, counterOfferID)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter-offer: %w", err)
	}
	if c == nil {
		return nil, fault.NotFound("counter-offer %s not found", counterOfferID)
	}
	return c, nil
}
