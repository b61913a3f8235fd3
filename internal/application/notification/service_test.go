package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/domain/notification"
	"github.com/negotiation-core/negotiation-core/internal/domain/notification/mocks"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mocks.MockRepository, *mocks.MockSSEHub, *clock.Manual) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockRepository(ctrl)
	hub := mocks.NewMockSSEHub(ctrl)
	clk := clock.NewManual(testNow)
	service := NewService(repo, hub, clk, zerolog.Nop(), 72*time.Hour)
	return service, repo, hub, clk
}

func TestService_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to a live connection", func(t *testing.T) {
		service, repo, hub, _ := newTestService(t)

		repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, n *notification.Notification) error {
				assert.Equal(t, "customer-1", n.RecipientUserID)
				assert.Equal(t, notification.StatusPending, n.Status)
				require.NotNil(t, n.ExpiresAt)
				assert.Equal(t, testNow.Add(72*time.Hour), *n.ExpiresAt)
				return nil
			})
		hub.EXPECT().BroadcastToUser("customer-1", gomock.Any()).Return(1)
		repo.EXPECT().
			Update(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, n *notification.Notification) error {
				assert.Equal(t, notification.StatusDelivered, n.Status)
				require.NotNil(t, n.SentAt)
				require.NotNil(t, n.DeliveredAt)
				return nil
			})

		service.Dispatch(ctx, []effect.NotificationRequest{{
			RecipientUserID: "customer-1",
			Type:            effect.NotifyQuotationReceived,
			Title:           "New quotation received",
			Body:            "A transport company quoted 450.00",
		}})
	})

	t.Run("no live connection counts as a failed attempt", func(t *testing.T) {
		service, repo, hub, _ := newTestService(t)

		repo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		hub.EXPECT().BroadcastToUser("customer-1", gomock.Any()).Return(0)
		repo.EXPECT().
			Update(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, n *notification.Notification) error {
				assert.Equal(t, notification.StatusFailed, n.Status)
				assert.Equal(t, 1, n.RetryCount)
				require.NotNil(t, n.LastError)
				assert.Equal(t, "no active connections", *n.LastError)
				return nil
			})

		service.Dispatch(ctx, []effect.NotificationRequest{{
			RecipientUserID: "customer-1",
			Type:            effect.NotifyQuotationReceived,
			Title:           "t",
			Body:            "b",
		}})
	})
}

func TestService_ProcessRetryable(t *testing.T) {
	ctx := context.Background()

	t.Run("re-queues and delivers a failed notification", func(t *testing.T) {
		service, repo, hub, _ := newTestService(t)
		n := notification.FromRequest(effect.NotificationRequest{
			RecipientUserID: "transport-1",
			Type:            effect.NotifyCounterOfferReceived,
			Title:           "t",
			Body:            "b",
		}, testNow, 72*time.Hour)
		require.NoError(t, n.MarkFailed("no active connections", testNow))

		repo.EXPECT().ListRetryable(ctx, 100).Return([]*notification.Notification{n}, nil)
		repo.EXPECT().Update(ctx, n).Return(nil).Times(2)
		hub.EXPECT().BroadcastToUser("transport-1", gomock.Any()).Return(1)

		require.NoError(t, service.ProcessRetryable(ctx, 100))
		assert.Equal(t, notification.StatusDelivered, n.Status)
		assert.Equal(t, 1, n.RetryCount)
	})

	t.Run("an exhausted retry budget is skipped", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		n := notification.FromRequest(effect.NotificationRequest{
			RecipientUserID: "transport-1",
			Type:            effect.NotifyCounterOfferReceived,
			Title:           "t",
			Body:            "b",
		}, testNow, 72*time.Hour)
		n.RetryCount = n.MaxRetries
		n.Status = notification.StatusFailed

		repo.EXPECT().ListRetryable(ctx, 100).Return([]*notification.Notification{n}, nil)

		require.NoError(t, service.ProcessRetryable(ctx, 100))
		assert.Equal(t, notification.StatusFailed, n.Status)
	})
}

func TestService_ProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("a pending notification past its TTL is expired, not sent", func(t *testing.T) {
		service, repo, _, clk := newTestService(t)
		n := notification.FromRequest(effect.NotificationRequest{
			RecipientUserID: "customer-1",
			Type:            effect.NotifyQuotationReceived,
			Title:           "t",
			Body:            "b",
		}, testNow, 72*time.Hour)
		clk.Advance(73 * time.Hour)

		repo.EXPECT().ListPending(ctx, 100).Return([]*notification.Notification{n}, nil)
		repo.EXPECT().
			Update(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, n *notification.Notification) error {
				assert.Equal(t, notification.StatusExpired, n.Status)
				return nil
			})

		require.NoError(t, service.ProcessPending(ctx, 100))
	})
}

func TestService_ExpireStale(t *testing.T) {
	ctx := context.Background()

	service, repo, _, _ := newTestService(t)

	repo.EXPECT().ExpireNotifications(ctx, testNow).Return(int64(3), nil)

	count, err := service.ExpireStale(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("the recipient marks their notification read", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		n := notification.FromRequest(effect.NotificationRequest{
			RecipientUserID: "customer-1",
			Type:            effect.NotifyDisputeFiled,
			Title:           "t",
			Body:            "b",
		}, testNow, 0)

		repo.EXPECT().GetByID(ctx, n.NotificationID).Return(n, nil)
		repo.EXPECT().Update(ctx, n).Return(nil)

		got, err := service.MarkRead(ctx, n.NotificationID, "customer-1")

		require.NoError(t, err)
		assert.True(t, got.IsRead)
		require.NotNil(t, got.ReadAt)
	})

	t.Run("someone else's notification is off limits", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		n := notification.FromRequest(effect.NotificationRequest{
			RecipientUserID: "customer-1",
			Type:            effect.NotifyDisputeFiled,
			Title:           "t",
			Body:            "b",
		}, testNow, 0)

		repo.EXPECT().GetByID(ctx, n.NotificationID).Return(n, nil)

		_, err := service.MarkRead(ctx, n.NotificationID, "transport-1")

		require.Error(t, err)
		assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
	})

	t.Run("unknown notification", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		id := uuid.New()

		repo.EXPECT().GetByID(ctx, id).Return(nil, nil)

		_, err := service.MarkRead(ctx, id, "customer-1")

		require.Error(t, err)
		assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
	})
}
