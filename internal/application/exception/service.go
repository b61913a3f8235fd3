package exception

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/exception"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

// LockKey is the aggregate lock key for an exception.
func LockKey(exceptionID uuid.UUID) string {
	return "exception:" + exceptionID.String()
}

// Service tracks operational exceptions to resolution and runs the
// rule-driven escalation sweep.
type Service struct {
	repo   exception.Repository
	rule   *EscalationRule
	locks  *lock.KeyedMutex
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new exception service
func NewService(repo exception.Repository, rule *EscalationRule, locks *lock.KeyedMutex, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		rule:   rule,
		locks:  locks,
		clock:  clk,
		logger: logger.With().Str("service", "exception").Logger(),
	}
}

// ReportParams carries the fields needed to report an exception.
type ReportParams struct {
	Title         string
	ExceptionType string
	Description   string
	Priority      exception.Priority
	BookingID     *uuid.UUID
	IncidentID    *int64
	AssignedTo    *string
	Metadata      json.RawMessage
}

// Report opens a PENDING exception.
func (s *Service) Report(ctx context.Context, params ReportParams, act actor.Actor) (*exception.Exception, effect.Effects, error) {
	var eff effect.Effects

	if params.Title == "" || params.ExceptionType == "" {
		return nil, eff, fault.InvalidArgument("exception title and type are required")
	}
	if !params.Priority.IsValid() {
		return nil, eff, fault.InvalidArgument("unknown priority %q", params.Priority)
	}

	now := s.clock.Now()
	e := &exception.Exception{
		ExceptionID:   uuid.New(),
		Title:         params.Title,
		ExceptionType: params.ExceptionType,
		Description:   params.Description,
		Status:        exception.StatusPending,
		Priority:      params.Priority,
		BookingID:     params.BookingID,
		IncidentID:    params.IncidentID,
		AssignedTo:    params.AssignedTo,
		Metadata:      params.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, eff, fmt.Errorf("failed to create exception: %w", err)
	}

	details := map[string]interface{}{
		"type":     params.ExceptionType,
		"priority": string(params.Priority),
	}
	if params.BookingID != nil {
		details["bookingId"] = params.BookingID.String()
	}
	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionExceptionReported,
		TargetType: effect.TargetException,
		TargetID:   e.ExceptionID.String(),
		Actor:      act,
		Details:    details,
	})

	s.logger.Info().
		Str("exceptionId", e.ExceptionID.String()).
		Str("type", params.ExceptionType).
		Str("priority", string(params.Priority)).
		Msg("exception reported")

	return e, eff, nil
}

// Get returns the exception or a NOT_FOUND fault.
func (s *Service) Get(ctx context.Context, exceptionID uuid.UUID) (*exception.Exception, error) {
	e, err := s.repo.GetByID(ctx, exceptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exception: %w", err)
	}
	if e == nil {
		return nil, fault.NotFound("exception %s not found", exceptionID)
	}
	return e, nil
}

// List returns exceptions filtered by status and priority.
func (s *Service) List(ctx context.Context, status *exception.Status, priority *exception.Priority, limit, offset int) ([]*exception.Exception, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.List(ctx, status, priority, limit, offset)
}

// StartProgress moves the exception to IN_PROGRESS, optionally
// assigning an operator.
func (s *Service) StartProgress(ctx context.Context, exceptionID uuid.UUID, assignTo *string, act actor.Actor) (*exception.Exception, effect.Effects, error) {
	var eff effect.Effects

	unlock := s.locks.Lock(LockKey(exceptionID))
	defer unlock()

	e, err := s.Get(ctx, exceptionID)
	if err != nil {
		return nil, eff, err
	}
	from := e.Status
	if !e.CanTransitionTo(exception.StatusInProgress) {
		return nil, eff, fault.InvalidState("cannot start progress on exception %s in %s", exceptionID, from)
	}
	e.Status = exception.StatusInProgress
	if assignTo != nil {
		e.AssignedTo = assignTo
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, eff, fmt.Errorf("failed to update exception: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionExceptionUpdated,
		TargetType: effect.TargetException,
		TargetID:   exceptionID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"from": string(from),
			"to":   string(exception.StatusInProgress),
		},
	})

	return e, eff, nil
}

// Escalate escalates the exception, optionally raising its priority.
// Priority never goes down.
func (s *Service) Escalate(ctx context.Context, exceptionID uuid.UUID, newPriority *exception.Priority, act actor.Actor) (*exception.Exception, effect.Effects, error) {
	var eff effect.Effects

	if newPriority != nil && !newPriority.IsValid() {
		return nil, eff, fault.InvalidArgument("unknown priority %q", *newPriority)
	}

	unlock := s.locks.Lock(LockKey(exceptionID))
	defer unlock()

	e, err := s.Get(ctx, exceptionID)
	if err != nil {
		return nil, eff, err
	}
	escalateEff, err := s.escalate(ctx, e, newPriority, act)
	if err != nil {
		return nil, eff, err
	}
	eff.Append(escalateEff)
	return e, eff, nil
}

// escalate applies and persists the escalation. Caller holds the lock.
func (s *Service) escalate(ctx context.Context, e *exception.Exception, newPriority *exception.Priority, act actor.Actor) (effect.Effects, error) {
	var eff effect.Effects

	from := e.Status
	fromPriority := e.Priority
	if err := e.Escalate(newPriority); err != nil {
		switch err {
		case exception.ErrPriorityLowered:
			return eff, fault.Wrap(fault.KindInvalidArgument, err, "cannot lower priority of exception %s", e.ExceptionID)
		default:
			return eff, fault.Wrap(fault.KindInvalidState, err, "cannot escalate exception %s from %s", e.ExceptionID, from)
		}
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, e); err != nil {
		return eff, fmt.Errorf("failed to update exception: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionExceptionEscalated,
		TargetType: effect.TargetException,
		TargetID:   e.ExceptionID.String(),
		Actor:      act,
		Details: map[string]interface{}{
			"from":         string(from),
			"fromPriority": string(fromPriority),
			"priority":     string(e.Priority),
		},
	})
	if e.AssignedTo != nil {
		payload, _ := json.Marshal(map[string]string{
			"exceptionId": e.ExceptionID.String(),
			"priority":    string(e.Priority),
		})
		eff.Notify(effect.NotificationRequest{
			RecipientUserID: *e.AssignedTo,
			Type:            effect.NotifyExceptionEscalated,
			Title:           "Exception escalated",
			Body:            fmt.Sprintf("Exception %q was escalated at priority %s", e.Title, e.Priority),
			Payload:         payload,
		})
	}

	s.logger.Warn().
		Str("exceptionId", e.ExceptionID.String()).
		Str("priority", string(e.Priority)).
		Str("actor", act.UserID).
		Msg("exception escalated")

	return eff, nil
}

// Resolve closes the exception exactly once.
func (s *Service) Resolve(ctx context.Context, exceptionID uuid.UUID, notes string, act actor.Actor) (*exception.Exception, effect.Effects, error) {
	var eff effect.Effects

	if notes == "" {
		return nil, eff, fault.InvalidArgument("resolution notes are required")
	}

	unlock := s.locks.Lock(LockKey(exceptionID))
	defer unlock()

	e, err := s.Get(ctx, exceptionID)
	if err != nil {
		return nil, eff, err
	}
	if err := e.Resolve(notes, act.UserID, s.clock.Now()); err != nil {
		return nil, eff, fault.Wrap(fault.KindInvalidState, err, "cannot resolve exception %s", exceptionID)
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, eff, fmt.Errorf("failed to update exception: %w", err)
	}

	eff.Audit(effect.AuditRecord{
		Action:     effect.ActionExceptionResolved,
		TargetType: effect.TargetException,
		TargetID:   exceptionID.String(),
		Actor:      act,
		Details:    map[string]interface{}{"resolvedBy": act.UserID},
	})
	if e.AssignedTo != nil && *e.AssignedTo != act.UserID {
		eff.Notify(effect.NotificationRequest{
			RecipientUserID: *e.AssignedTo,
			Type:            effect.NotifyExceptionResolved,
			Title:           "Exception resolved",
			Body:            fmt.Sprintf("Exception %q was resolved", e.Title),
		})
	}

	s.logger.Info().
		Str("exceptionId", exceptionID.String()).
		Str("resolvedBy", act.UserID).
		Msg("exception resolved")

	return e, eff, nil
}

// AutoEscalate sweeps open exceptions against the escalation rule.
// Each match escalates under its own lock; ctx cancellation is honored
// between exceptions.
func (s *Service) AutoEscalate(ctx context.Context, limit int) (int, effect.Effects, error) {
	var eff effect.Effects

	if s.rule == nil {
		return 0, eff, nil
	}

	open, err := s.repo.ListOpen(ctx, limit)
	if err != nil {
		return 0, eff, fmt.Errorf("failed to list open exceptions: %w", err)
	}

	escalated := 0
	for _, candidate := range open {
		if err := ctx.Err(); err != nil {
			return escalated, eff, err
		}
		matched, err := s.rule.ShouldEscalate(candidate, s.clock.Now())
		if err != nil {
			s.logger.Error().Err(err).
				Str("exceptionId", candidate.ExceptionID.String()).
				Msg("escalation rule evaluation failed")
			continue
		}
		if !matched || candidate.Status == exception.StatusEscalated {
			continue
		}

		func() {
			unlock := s.locks.Lock(LockKey(candidate.ExceptionID))
			defer unlock()

			e, err := s.Get(ctx, candidate.ExceptionID)
			if err != nil {
				return
			}
			// Reloaded under the lock; skip if no longer eligible.
			if e.Status == exception.StatusEscalated || e.Status.IsTerminal() {
				return
			}
			escalateEff, err := s.escalate(ctx, e, nil, actor.System)
			if err != nil {
				s.logger.Error().Err(err).
					Str("exceptionId", e.ExceptionID.String()).
					Msg("auto-escalation failed")
				return
			}
			escalated++
			eff.Append(escalateEff)
		}()
	}
	return escalated, eff, nil
}
