package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/negotiation-core/negotiation-core/internal/api/http"
	"github.com/negotiation-core/negotiation-core/internal/application/audit"
	"github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/application/dispute"
	"github.com/negotiation-core/negotiation-core/internal/application/effects"
	"github.com/negotiation-core/negotiation-core/internal/application/exception"
	"github.com/negotiation-core/negotiation-core/internal/application/negotiation"
	"github.com/negotiation-core/negotiation-core/internal/application/notification"
	"github.com/negotiation-core/negotiation-core/internal/application/sweeper"
	"github.com/negotiation-core/negotiation-core/internal/config"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/postgres"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	bookingRepo := postgres.NewBookingRepository(pool)
	quotationRepo := postgres.NewQuotationRepository(pool)
	counterOfferRepo := postgres.NewCounterOfferRepository(pool)
	disputeRepo := postgres.NewDisputeRepository(pool)
	exceptionRepo := postgres.NewExceptionRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()
	locks := lock.NewKeyedMutex()
	clk := clock.System{}

	// services
	auditKey := loadHexKey(cfg.AuditSigningKey)
	auditSvc := audit.NewService(auditRepo, clk, logger, auditKey)
	notificationSvc := notification.NewService(notificationRepo, sseHub, clk, logger, cfg.NotificationTTL)
	applier := effects.NewApplier(auditSvc, notificationSvc)

	bookingSvc := booking.NewService(bookingRepo, locks, clk, logger)
	negotiationSvc := negotiation.NewService(bookingSvc, quotationRepo, counterOfferRepo, locks, clk, logger, cfg.NegotiationWindow)
	disputeSvc := dispute.NewService(disputeRepo, bookingSvc, dispute.RoleAuthorizer{}, locks, clk, logger)

	var escalationRule *exception.EscalationRule
	if !cfg.EscalationDisabled {
		escalationRule, err = exception.NewEscalationRule(cfg.EscalationRule)
		if err != nil {
			log.Fatalf("escalation rule error: %v", err)
		}
	}
	exceptionSvc := exception.NewService(exceptionRepo, escalationRule, locks, clk, logger)

	// API server
	apiServer := httpapi.NewServer(bookingSvc, negotiationSvc, disputeSvc, exceptionSvc, notificationSvc, auditSvc, applier, sseHub, clk, []byte(cfg.JWTSecret))

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background sweeps
	sweepCtx, stopSweeps := context.WithCancel(ctx)
	sw := sweeper.New(negotiationSvc, exceptionSvc, notificationSvc, applier, cfg.SweepInterval, cfg.SweepBatchSize, logger)
	go func() {
		if err := sw.Run(sweepCtx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("sweeper stopped")
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopSweeps()
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

func loadHexKey(hexStr string) []byte {
	if hexStr == "" {
		return nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil
	}
	return b
}
