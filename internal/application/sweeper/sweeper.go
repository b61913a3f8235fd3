package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/negotiation-core/negotiation-core/internal/application/effects"
	exceptionsvc "github.com/negotiation-core/negotiation-core/internal/application/exception"
	negotiationsvc "github.com/negotiation-core/negotiation-core/internal/application/negotiation"
	notificationsvc "github.com/negotiation-core/negotiation-core/internal/application/notification"
)

// Sweeper runs the periodic background passes: counter-offer expiry,
// exception auto-escalation and notification delivery upkeep. Each
// pass runs on its own ticker so a slow sweep never starves the others.
type Sweeper struct {
	negotiations  *negotiationsvc.Service
	exceptions    *exceptionsvc.Service
	notifications *notificationsvc.Service
	applier       *effects.Applier
	interval      time.Duration
	batchSize     int
	logger        zerolog.Logger
}

// New creates a sweeper.
func New(
	negotiations *negotiationsvc.Service,
	exceptions *exceptionsvc.Service,
	notifications *notificationsvc.Service,
	applier *effects.Applier,
	interval time.Duration,
	batchSize int,
	logger zerolog.Logger,
) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		negotiations:  negotiations,
		exceptions:    exceptions,
		notifications: notifications,
		applier:       applier,
		interval:      interval,
		batchSize:     batchSize,
		logger:        logger.With().Str("service", "sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop(ctx, s.SweepCounterOffers) })
	g.Go(func() error { return s.loop(ctx, s.SweepEscalations) })
	g.Go(func() error { return s.loop(ctx, s.SweepNotifications) })
	return g.Wait()
}

func (s *Sweeper) loop(ctx context.Context, sweep func(context.Context)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// SweepCounterOffers expires lapsed PENDING counter-offers.
func (s *Sweeper) SweepCounterOffers(ctx context.Context) {
	expired, eff, err := s.negotiations.ExpireStaleCounterOffers(ctx, s.batchSize)
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("counter-offer sweep failed")
	}
	s.applier.Apply(ctx, eff)
	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("counter-offer sweep completed")
	}
}

// SweepEscalations auto-escalates exceptions matching the rule.
func (s *Sweeper) SweepEscalations(ctx context.Context) {
	escalated, eff, err := s.exceptions.AutoEscalate(ctx, s.batchSize)
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("escalation sweep failed")
	}
	s.applier.Apply(ctx, eff)
	if escalated > 0 {
		s.logger.Info().Int("escalated", escalated).Msg("escalation sweep completed")
	}
}

// SweepNotifications retries failed deliveries and expires stale rows.
func (s *Sweeper) SweepNotifications(ctx context.Context) {
	if err := s.notifications.ProcessPending(ctx, s.batchSize); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("pending notification sweep failed")
	}
	if err := s.notifications.ProcessRetryable(ctx, s.batchSize); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("retryable notification sweep failed")
	}
	if _, err := s.notifications.ExpireStale(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("notification expiry sweep failed")
	}
}
