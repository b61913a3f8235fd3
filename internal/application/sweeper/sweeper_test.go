package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	auditsvc "github.com/negotiation-core/negotiation-core/internal/application/audit"
	bookingsvc "github.com/negotiation-core/negotiation-core/internal/application/booking"
	"github.com/negotiation-core/negotiation-core/internal/application/effects"
	exceptionsvc "github.com/negotiation-core/negotiation-core/internal/application/exception"
	negotiationsvc "github.com/negotiation-core/negotiation-core/internal/application/negotiation"
	notificationsvc "github.com/negotiation-core/negotiation-core/internal/application/notification"
	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/audit"
	auditMocks "github.com/negotiation-core/negotiation-core/internal/domain/audit/mocks"
	bookingMocks "github.com/negotiation-core/negotiation-core/internal/domain/booking/mocks"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	exceptionMocks "github.com/negotiation-core/negotiation-core/internal/domain/exception/mocks"
	"github.com/negotiation-core/negotiation-core/internal/domain/notification"
	notificationMocks "github.com/negotiation-core/negotiation-core/internal/domain/notification/mocks"
	"github.com/negotiation-core/negotiation-core/internal/domain/quotation"
	quotationMocks "github.com/negotiation-core/negotiation-core/internal/domain/quotation/mocks"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// The sweep path runs real services over mocked repositories so the
// whole chain is exercised: list, expire under lock, persist, then the
// applier turning effects into audit rows and queued notifications.
func TestSweeper_SweepCounterOffers(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookingRepo := bookingMocks.NewMockRepository(ctrl)
	quotations := quotationMocks.NewMockRepository(ctrl)
	counterOffers := quotationMocks.NewMockCounterOfferRepository(ctrl)
	exceptionRepo := exceptionMocks.NewMockRepository(ctrl)
	notificationRepo := notificationMocks.NewMockRepository(ctrl)
	hub := notificationMocks.NewMockSSEHub(ctrl)
	auditRepo := auditMocks.NewMockRepository(ctrl)

	clk := clock.NewManual(testNow)
	locks := lock.NewKeyedMutex()
	logger := zerolog.Nop()

	bookings := bookingsvc.NewService(bookingRepo, locks, clk, logger)
	negotiations := negotiationsvc.NewService(bookings, quotations, counterOffers, locks, clk, logger, 24*time.Hour)
	exceptions := exceptionsvc.NewService(exceptionRepo, nil, locks, clk, logger)
	notifications := notificationsvc.NewService(notificationRepo, hub, clk, logger, 72*time.Hour)
	audits := auditsvc.NewService(auditRepo, clk, logger, nil)
	applier := effects.NewApplier(audits, notifications)

	sw := New(negotiations, exceptions, notifications, applier, time.Minute, 100, logger)

	q := &quotation.Quotation{
		QuotationID:    uuid.New(),
		BookingID:      uuid.New(),
		TransportID:    "transport-1",
		Price:          500,
		ReferencePrice: 500,
		Status:         quotation.StatusPending,
	}
	c, err := quotation.NewCounterOffer(q, 400, nil, actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer}, testNow, 24*time.Hour)
	require.NoError(t, err)
	clk.Advance(25 * time.Hour)

	counterOffers.EXPECT().ListExpired(ctx, clk.Now(), 100).Return([]*quotation.CounterOffer{c}, nil)
	quotations.EXPECT().GetByID(ctx, q.QuotationID).Return(q, nil)
	counterOffers.EXPECT().GetByID(ctx, c.CounterOfferID).Return(c, nil)
	counterOffers.EXPECT().Update(ctx, c).Return(nil)

	// The applier persists the expiry notification and attempts delivery.
	notificationRepo.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, n *notification.Notification) error {
			assert.Equal(t, "customer-1", n.RecipientUserID)
			assert.Equal(t, effect.NotifyCounterOfferExpired, n.Type)
			return nil
		})
	hub.EXPECT().BroadcastToUser("customer-1", gomock.Any()).Return(1)
	notificationRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	// Audit writes are asynchronous; hand the row back over a channel so
	// the test can wait for it.
	audited := make(chan *audit.AuditLog, 1)
	auditRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, log *audit.AuditLog) error {
			audited <- log
			return nil
		})

	sw.SweepCounterOffers(ctx)

	assert.Equal(t, quotation.StatusExpired, c.Status)
	select {
	case log := <-audited:
		assert.Equal(t, effect.ActionCounterOfferExpired, log.Action)
		assert.Equal(t, actor.System.UserID, log.Actor)
	case <-time.After(time.Second):
		t.Fatal("audit log was not written")
	}

	// The next pass finds nothing left to expire.
	counterOffers.EXPECT().ListExpired(ctx, clk.Now(), 100).Return(nil, nil)
	sw.SweepCounterOffers(ctx)
}

func TestSweeper_SweepNotifications(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notificationRepo := notificationMocks.NewMockRepository(ctrl)
	hub := notificationMocks.NewMockSSEHub(ctrl)
	auditRepo := auditMocks.NewMockRepository(ctrl)

	clk := clock.NewManual(testNow)
	logger := zerolog.Nop()

	notifications := notificationsvc.NewService(notificationRepo, hub, clk, logger, 72*time.Hour)
	audits := auditsvc.NewService(auditRepo, clk, logger, nil)
	applier := effects.NewApplier(audits, notifications)

	sw := New(nil, nil, notifications, applier, time.Minute, 100, logger)

	notificationRepo.EXPECT().ListPending(ctx, 100).Return(nil, nil)
	notificationRepo.EXPECT().ListRetryable(ctx, 100).Return(nil, nil)
	notificationRepo.EXPECT().ExpireNotifications(ctx, clk.Now()).Return(int64(0), nil)

	sw.SweepNotifications(ctx)
}
