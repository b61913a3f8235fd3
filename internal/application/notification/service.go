package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/domain/notification"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
)

// Service queues notifications produced by commands and drives their
// delivery over SSE. Delivery is at-least-once; a failed push stays on
// the row and is retried until the retry budget or TTL runs out.
type Service struct {
	repo   notification.Repository
	hub    notification.SSEHub
	clock  clock.Clock
	logger zerolog.Logger
	ttl    time.Duration
}

// NewService creates a new notification service
func NewService(repo notification.Repository, hub notification.SSEHub, clk clock.Clock, logger zerolog.Logger, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		hub:    hub,
		clock:  clk,
		logger: logger.With().Str("service", "notification").Logger(),
		ttl:    ttl,
	}
}

// Dispatch persists one pending notification per request. Requests are
// queued individually; one bad request does not block the rest.
func (s *Service) Dispatch(ctx context.Context, reqs []effect.NotificationRequest) {
	now := s.clock.Now()
	for _, req := range reqs {
		n := notification.FromRequest(req, now, s.ttl)
		if err := s.repo.Create(ctx, n); err != nil {
			s.logger.Error().Err(err).
				Str("recipient", req.RecipientUserID).
				Str("type", string(req.Type)).
				Msg("failed to queue notification")
			continue
		}
		s.deliver(ctx, n)
	}
}

// ProcessPending attempts delivery for queued notifications.
func (s *Service) ProcessPending(ctx context.Context, limit int) error {
	pending, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list pending notifications: %w", err)
	}
	for _, n := range pending {
		s.deliver(ctx, n)
	}
	return nil
}

// ProcessRetryable re-queues failed notifications with retry budget left.
func (s *Service) ProcessRetryable(ctx context.Context, limit int) error {
	retryable, err := s.repo.ListRetryable(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list retryable notifications: %w", err)
	}
	now := s.clock.Now()
	for _, n := range retryable {
		if err := n.ResetForRetry(now); err != nil {
			continue
		}
		if err := s.repo.Update(ctx, n); err != nil {
			s.logger.Error().Err(err).
				Str("notificationId", n.NotificationID.String()).
				Msg("failed to reset notification for retry")
			continue
		}
		s.deliver(ctx, n)
	}
	return nil
}

// ExpireStale marks undelivered notifications past their TTL expired.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireNotifications(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire notifications: %w", err)
	}
	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("expired stale notifications")
	}
	return count, nil
}

// deliver pushes the notification to the recipient's live SSE
// connections and records the outcome. No live connection counts as a
// failed attempt so the retry loop picks it up again.
func (s *Service) deliver(ctx context.Context, n *notification.Notification) {
	now := s.clock.Now()

	if err := n.MarkSent(now); err != nil {
		if err == notification.ErrExpired {
			if uerr := s.repo.Update(ctx, n); uerr != nil {
				s.logger.Error().Err(uerr).
					Str("notificationId", n.NotificationID.String()).
					Msg("failed to persist expired notification")
			}
		}
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).
			Str("notificationId", n.NotificationID.String()).
			Msg("failed to marshal notification")
		return
	}

	delivered := s.hub.BroadcastToUser(n.RecipientUserID, notification.NewSSEMessage(string(n.Type), data))
	if delivered > 0 {
		if err := n.MarkDelivered(s.clock.Now()); err == nil {
			s.logger.Debug().
				Str("notificationId", n.NotificationID.String()).
				Str("recipient", n.RecipientUserID).
				Int("connections", delivered).
				Msg("notification delivered")
		}
	} else {
		_ = n.MarkFailed("no active connections", s.clock.Now())
	}

	if err := s.repo.Update(ctx, n); err != nil {
		s.logger.Error().Err(err).
			Str("notificationId", n.NotificationID.String()).
			Msg("failed to persist notification state")
	}
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
}

// MarkRead records that the recipient saw the notification. Only the
// recipient may mark their own notifications.
func (s *Service) MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) (*notification.Notification, error) {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if n == nil {
		return nil, fault.NotFound("notification %s not found", notificationID)
	}
	if n.RecipientUserID != userID {
		return nil, fault.Forbidden("notification %s does not belong to user", notificationID)
	}
	n.MarkRead(s.clock.Now())
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}
