package dispute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	bookingsvc "github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/dispute"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

// LockKey is the aggregate lock key for a dispute. A dispute's thread
// and evidence mutate under this key, independent of the booking lock.
func LockKey(disputeID uuid.UUID) string {
	return "dispute:" + disputeID.String()
}

// Authorizer decides who may review and resolve disputes. Splitting
// this out keeps the review policy swappable without touching the
// command flow.
type Authorizer interface {
	CanReview(act actor.Actor) bool
}

// RoleAuthorizer grants review rights to managers.
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanReview(act actor.Actor) bool {
	return act.IsManager()
}

// Service owns the dispute lifecycle, thread and evidence.
type Service struct {
	repo       dispute.Repository
	bookings   *bookingsvc.Service
	authorizer Authorizer
	locks      *lock.KeyedMutex
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewService creates a new dispute service
func NewService(
	repo dispute.Repository,
	bookings *bookingsvc.Service,
	authorizer Authorizer,
	locks *lock.KeyedMutex,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		bookings:   bookings,
		authorizer: authorizer,
		locks:      locks,
		clock:      clk,
		logger:     logger.With().Str("service", "dispute").Logger(),
	}
}

// FileParams carries the fields needed to open a dispute.
type FileParams struct {
	BookingID           uuid.UUID
	DisputeType         dispute.Type
	Title               string
	Description         string
	RequestedResolution *string
}

// File opens a PENDING dispute on a booking. Only a party to the
// booking may file.
func (s *Service) File(ctx context.Context, params FileParams, act actor.Actor) (*dispute.Dispute, effect.Effects, error) {
	var eff effect.Effects

	if !params.DisputeType.IsValid() {
		return nil, eff, fault.InvalidArgument("unknown dispute type %q", params.DisputeType)
	}
	if params.Title == "" || params.Description == "" {
		return nil, eff, fault.InvalidArgument("dispute title and description are required")
	}

	b, err := s.bookings.Get(ctx, params.BookingID)
	if err != nil {
		return nil, eff, err
	}
	if !b.IsParty(act.UserID) && !act.IsManager() {
		return nil, eff, fault.Forbidden("user %s is not a party to booking %s", act.UserID, params.BookingID)
	}
	// Nothing to dispute before the negotiation settled.
	if b.Status == booking.StatusPending || b.Status == booking.StatusQuoted {
		return nil, eff, fault.InvalidState("booking %s is %s; disputes require a confirmed booking", params.BookingID, b.Status)
	}

	now := s.clock.Now()
	d := &dispute.Dispute{
		DisputeID:           uuid.New(),
		BookingID:           params.BookingID,
		Status:              dispute.StatusPending,
		DisputeType:         params.DisputeType,
		Title:               params.Title,
		Description:         params.Description,
		RequestedResolution: params.RequestedResolution,
		FiledByUserID:       act.UserID,
		FiledByRole:         act.Role,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, eff, fmt.Errorf("failed to create dispute: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionDisputeFiled,
		TargetType: effect.TargetDispute,
		TargetID:   d.DisputeID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"bookingId":   params.BookingID.String(),
			"disputeType": string(params.DisputeType),
		},
	})
	payload, _ := json.Marshal(map[string]string{
		"bookingId":   params.BookingID.String(),
		"disputeId":   d.DisputeID.String(),
		"disputeType": string(params.DisputeType),
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: b.Counterpart(act.UserID),
		Type:            effect.NotifyDisputeFiled,
		Title:           "Dispute filed",
		Body:            fmt.Sprintf("A %s dispute was filed on your booking", params.DisputeType),
		Payload:         payload,
	})

	s.logger.Info().
		Str("disputeId", d.DisputeID.String()).
		Str("bookingId", params.BookingID.String()).
		Str("disputeType", string(params.DisputeType)).
		Msg("dispute filed")

	return d, eff, nil
}

// Get returns the dispute or a NOT_FOUND fault.
func (s *Service) Get(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	if d == nil {
		return nil, fault.NotFound("dispute %s not found", disputeID)
	}
	return d, nil
}

// List returns disputes, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *dispute.Status, limit, offset int) ([]*dispute.Dispute, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.List(ctx, status, limit, offset)
}

// ListByBooking returns every dispute on a booking.
func (s *Service) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*dispute.Dispute, error) {
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.repo.ListByBooking(ctx, bookingID)
}

// PostMessage appends to the dispute thread. The thread closes with the
// dispute.
func (s *Service) PostMessage(ctx context.Context, disputeID uuid.UUID, body string, act actor.Actor) (*dispute.Message, effect.Effects, error) {
	var eff effect.Effects

	if body == "" {
		return nil, eff, fault.InvalidArgument("message body is required")
	}

	unlock := s.locks.Lock(LockKey(disputeID))
	defer unlock()

	d, b, err := s.getWithBooking(ctx, disputeID)
	if err != nil {
		return nil, eff, err
	}
	if !d.IsParty(act.UserID, b.PartyIDs()) && !s.authorizer.CanReview(act) {
		return nil, eff, fault.Forbidden("user %s is not a party to dispute %s", act.UserID, disputeID)
	}
	if d.IsClosed() {
		return nil, eff, fault.InvalidState("dispute %s is closed", disputeID)
	}

	m := &dispute.Message{
		MessageID:    uuid.New(),
		DisputeID:    disputeID,
		SenderUserID: act.UserID,
		SenderRole:   act.Role,
		Body:         body,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return nil, eff, fmt.Errorf("failed to append message: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionDisputeMessagePosted,
		TargetType: effect.TargetDispute,
		TargetID:   disputeID.String(),
		Actor:      act,
		Details:    map[string]interface{}{"messageId": m.MessageID.String()},
	})
	payload, _ := json.Marshal(map[string]string{
		"disputeId": disputeID.String(),
		"messageId": m.MessageID.String(),
	})
	eff.Notify(effect.NotificationRequest{
		RecipientUserID: b.Counterpart(act.UserID),
		Type:            effect.NotifyDisputeMessage,
		Title:           "New dispute message",
		Body:            "A new message was posted on your dispute",
		Payload:         payload,
	})

	return m, eff, nil
}

// ListMessages returns the dispute thread in creation order.
func (s *Service) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]*dispute.Message, error) {
	if _, err := s.Get(ctx, disputeID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, disputeID)
}

// EvidenceParams carries an evidence reference to attach.
type EvidenceParams struct {
	EvidenceType string
	FileRef      string
	Description  *string
}

// AttachEvidence records an evidence reference on an open dispute.
func (s *Service) AttachEvidence(ctx context.Context, disputeID uuid.UUID, params EvidenceParams, act actor.Actor) (*dispute.Evidence, effect.Effects, error) {
	var eff effect.Effects

	if params.EvidenceType == "" || params.FileRef == "" {
		return nil, eff, fault.InvalidArgument("evidence type and file reference are required")
	}

	unlock := s.locks.Lock(LockKey(disputeID))
	defer unlock()

	d, b, err := s.getWithBooking(ctx, disputeID)
	if err != nil {
		return nil, eff, err
	}
	if !d.IsParty(act.UserID, b.PartyIDs()) && !s.authorizer.CanReview(act) {
		return nil, eff, fault.Forbidden("user %s is not a party to dispute %s", act.UserID, disputeID)
	}
	if d.IsClosed() {
		return nil, eff, fault.InvalidState("dispute %s is closed", disputeID)
	}

	e := &dispute.Evidence{
		EvidenceID:       uuid.New(),
		DisputeID:        disputeID,
		UploadedByUserID: act.UserID,
		EvidenceType:     params.EvidenceType,
		FileRef:          params.FileRef,
		Description:      params.Description,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.repo.AppendEvidence(ctx, e); err != nil {
		return nil, eff, fmt.Errorf("failed to append evidence: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionDisputeEvidenceAttached,
		TargetType: effect.TargetDispute,
		TargetID:   disputeID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"evidenceId":   e.EvidenceID.String(),
			"evidenceType": params.EvidenceType,
		},
	})

	return e, eff, nil
}

// ListEvidence returns the dispute's evidence references.
func (s *Service) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]*dispute.Evidence, error) {
	if _, err := s.Get(ctx, disputeID); err != nil {
		return nil, err
	}
	return s.repo.ListEvidence(ctx, disputeID)
}

// Transition moves the dispute through review, optionally assigning a
// reviewer. Terminal outcomes go through Resolve, never here.
func (s *Service) Transition(ctx context.Context, disputeID uuid.UUID, target dispute.Status, assignTo *string, act actor.Actor) (*dispute.Dispute, effect.Effects, error) {
	var eff effect.Effects

	if target.IsTerminal() {
		return nil, eff, fault.InvalidArgument("terminal outcomes require a resolution")
	}
	if !s.authorizer.CanReview(act) {
		return nil, eff, fault.Forbidden("only managers review disputes")
	}

	unlock := s.locks.Lock(LockKey(disputeID))
	defer unlock()

	d, b, err := s.getWithBooking(ctx, disputeID)
	if err != nil {
		return nil, eff, err
	}
	from := d.Status
	if !d.CanTransitionTo(target) {
		return nil, eff, fault.InvalidState("cannot move dispute %s from %s to %s", disputeID, from, target)
	}
	d.Status = target
	if assignTo != nil {
		d.AssignedTo = assignTo
	}
	d.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, eff, fmt.Errorf("failed to update dispute: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionDisputeStatusChanged,
		TargetType: effect.TargetDispute,
		TargetID:   disputeID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"from": string(from),
			"to":   string(target),
		},
	})
	payload, _ := json.Marshal(map[string]string{
		"disputeId": disputeID.String(),
		"from":      string(from),
		"to":        string(target),
	})
	for _, party := range b.PartyIDs() {
		eff.Notify(effect.NotificationRequest{
			RecipientUserID: party,
			Type:            effect.NotifyDisputeStatusChanged,
			Title:           "Dispute status updated",
			Body:            fmt.Sprintf("Dispute moved from %s to %s", from, target),
			Payload:         payload,
		})
	}

	s.logger.Info().
		Str("disputeId", disputeID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("dispute status changed")

	return d, eff, nil
}

// Resolve closes the dispute with RESOLVED or REJECTED. The resolution
// is recorded exactly once and is immutable afterwards.
func (s *Service) Resolve(ctx context.Context, disputeID uuid.UUID, outcome dispute.Status, notes string, act actor.Actor) (*dispute.Dispute, effect.Effects, error) {
	var eff effect.Effects

	if !s.authorizer.CanReview(act) {
		return nil, eff, fault.Forbidden("only managers resolve disputes")
	}
	if notes == "" {
		return nil, eff, fault.InvalidArgument("resolution notes are required")
	}

	unlock := s.locks.Lock(LockKey(disputeID))
	defer unlock()

	d, b, err := s.getWithBooking(ctx, disputeID)
	if err != nil {
		return nil, eff, err
	}
	from := d.Status
	if err := d.Resolve(outcome, notes, act.UserID, s.clock.Now()); err != nil {
		// A closed dispute is terminal; re-resolving it is a state
		// violation like any other.
		return nil, eff, fault.Wrap(fault.KindInvalidState, err, "cannot resolve dispute %s from %s", disputeID, from)
	}
	d.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, eff, fmt.Errorf("failed to update dispute: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionDisputeResolved,
		TargetType: effect.TargetDispute,
		TargetID:   disputeID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"outcome": string(outcome),
		},
	})
	payload, _ := json.Marshal(map[string]string{
		"disputeId": disputeID.String(),
		"outcome":   string(outcome),
	})
	for _, party := range b.PartyIDs() {
		eff.Notify(effect.NotificationRequest{
			RecipientUserID: party,
			Type:            effect.NotifyDisputeResolved,
			Title:           "Dispute resolved",
			Body:            fmt.Sprintf("Your dispute was closed as %s", outcome),
			Payload:         payload,
		})
	}

	s.logger.Info().
		Str("disputeId", disputeID.String()).
		Str("outcome", string(outcome)).
		Str("resolvedBy", act.UserID).
		Msg("dispute resolved")

	return d, eff, nil
}

func (s *Service) getWithBooking(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, *booking.Booking, error) {
	d, err := s.Get(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.bookings.Get(ctx, d.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return d, b, nil
}
