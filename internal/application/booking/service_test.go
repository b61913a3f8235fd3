package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking"
	"github.com/negotiation-core/negotiation-core/internal/domain/booking/mocks"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/domain/fault"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/lock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mocks.MockRepository) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockRepository(ctrl)
	service := NewService(repo, lock.NewKeyedMutex(), clock.NewManual(testNow), zerolog.Nop())
	return service, repo
}

func validParams() CreateParams {
	return CreateParams{
		CustomerID:       "customer-1",
		PickupLocation:   "Utrecht",
		DeliveryLocation: "Eindhoven",
		WindowStart:      testNow.Add(24 * time.Hour),
		WindowEnd:        testNow.Add(48 * time.Hour),
		Items: []booking.Item{
			{Name: "Sofa", Quantity: 1, IsFragile: false},
			{Name: "Boxes", Quantity: 12},
		},
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a booking in PENDING", func(t *testing.T) {
		service, repo := newTestService(t)

		repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, b *booking.Booking) error {
				assert.Equal(t, booking.StatusPending, b.Status)
				assert.Equal(t, "customer-1", b.CustomerID)
				assert.Nil(t, b.TransportID)
				assert.Nil(t, b.AgreedPrice)
				assert.Len(t, b.Items, 2)
				return nil
			})

		b, eff, err := service.Create(ctx, validParams())

		require.NoError(t, err)
		require.NotNil(t, b)
		assert.NotEqual(t, uuid.Nil, b.BookingID)
		require.Len(t, eff.Audits, 1)
		assert.Equal(t, effect.ActionBookingCreated, eff.Audits[0].Action)
		assert.Empty(t, eff.Notifications)
	})

	t.Run("rejects an inverted delivery window", func(t *testing.T) {
		service, _ := newTestService(t)
		params := validParams()
		params.WindowStart, params.WindowEnd = params.WindowEnd, params.WindowStart

		_, _, err := service.Create(ctx, params)

		require.Error(t, err)
		assert.Equal(t, fault.KindInvalidArgument, fault.KindOf(err))
	})

	t.Run("rejects an item without quantity", func(t *testing.T) {
		service, _ := newTestService(t)
		params := validParams()
		params.Items[1].Quantity = 0

		_, _, err := service.Create(ctx, params)

		require.Error(t, err)
		assert.Equal(t, fault.KindInvalidArgument, fault.KindOf(err))
	})

	t.Run("propagates repository failure", func(t *testing.T) {
		service, repo := newTestService(t)

		repo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("connection reset"))

		_, _, err := service.Create(ctx, validParams())

		require.Error(t, err)
		assert.Equal(t, fault.Kind(""), fault.KindOf(err))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown booking is NOT_FOUND", func(t *testing.T) {
		service, repo := newTestService(t)
		id := uuid.New()

		repo.EXPECT().GetByID(ctx, id).Return(nil, nil)

		_, err := service.Get(ctx, id)

		require.Error(t, err)
		assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
	})
}

func TestService_RequestTransition(t *testing.T) {
	ctx := context.Background()
	transportID := "transport-1"

	confirmed := func() *booking.Booking {
		return &booking.Booking{
			BookingID:   uuid.New(),
			CustomerID:  "customer-1",
			TransportID: &transportID,
			Status:      booking.StatusConfirmed,
		}
	}

	t.Run("a party advances the lifecycle", func(t *testing.T) {
		service, repo := newTestService(t)
		b := confirmed()

		repo.EXPECT().GetByID(ctx, b.BookingID).Return(b, nil)
		repo.EXPECT().UpdateStatus(ctx, b.BookingID, booking.StatusInProgress, testNow).Return(nil)

		got, eff, err := service.RequestTransition(ctx, b.BookingID, booking.StatusInProgress, actor.Actor{UserID: transportID, Role: actor.RoleTransport})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusInProgress, got.Status)
		require.Len(t, eff.Audits, 1)
		assert.Equal(t, effect.ActionBookingStatusChanged, eff.Audits[0].Action)
		// Only the counterpart is notified, never the actor.
		require.Len(t, eff.Notifications, 1)
		assert.Equal(t, "customer-1", eff.Notifications[0].RecipientUserID)
	})

	t.Run("requesting the current status is a no-op", func(t *testing.T) {
		service, repo := newTestService(t)
		b := confirmed()

		repo.EXPECT().GetByID(ctx, b.BookingID).Return(b, nil)

		got, eff, err := service.RequestTransition(ctx, b.BookingID, booking.StatusConfirmed, actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, got.Status)
		assert.True(t, eff.Empty())
	})

	t.Run("skipping a step is rejected", func(t *testing.T) {
		service, repo := newTestService(t)
		b := confirmed()

		repo.EXPECT().GetByID(ctx, b.BookingID).Return(b, nil)

		_, _, err := service.RequestTransition(ctx, b.BookingID, booking.StatusCompleted, actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer})

		require.Error(t, err)
		assert.Equal(t, fault.KindInvalidState, fault.KindOf(err))
	})

	t.Run("outsiders are rejected", func(t *testing.T) {
		service, repo := newTestService(t)
		b := confirmed()

		repo.EXPECT().GetByID(ctx, b.BookingID).Return(b, nil)

		_, _, err := service.RequestTransition(ctx, b.BookingID, booking.StatusInProgress, actor.Actor{UserID: "stranger", Role: actor.RoleCustomer})

		require.Error(t, err)
		assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
	})

	t.Run("managers may cancel", func(t *testing.T) {
		service, repo := newTestService(t)
		b := confirmed()

		repo.EXPECT().GetByID(ctx, b.BookingID).Return(b, nil)
		repo.EXPECT().UpdateStatus(ctx, b.BookingID, booking.StatusCancelled, testNow).Return(nil)

		got, _, err := service.RequestTransition(ctx, b.BookingID, booking.StatusCancelled, actor.Actor{UserID: "manager-1", Role: actor.RoleManager})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, got.Status)
	})
}

func TestService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("records the winning transport and price", func(t *testing.T) {
		service, repo := newTestService(t)
		b := &booking.Booking{
			BookingID:  uuid.New(),
			CustomerID: "customer-1",
			Status:     booking.StatusQuoted,
		}

		repo.EXPECT().Update(ctx, b).Return(nil)

		eff, err := service.Confirm(ctx, b, "transport-1", 420, actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusConfirmed, b.Status)
		require.NotNil(t, b.TransportID)
		assert.Equal(t, "transport-1", *b.TransportID)
		require.NotNil(t, b.AgreedPrice)
		assert.Equal(t, 420.0, *b.AgreedPrice)
		require.Len(t, eff.Audits, 1)
		assert.Equal(t, 420.0, eff.Audits[0].Details["agreedPrice"])
	})

	t.Run("refuses to confirm from PENDING", func(t *testing.T) {
		service, _ := newTestService(t)
		b := &booking.Booking{
			BookingID:  uuid.New(),
			CustomerID: "customer-1",
			Status:     booking.StatusPending,
		}

		_, err := service.Confirm(ctx, b, "transport-1", 420, actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer})

		require.Error(t, err)
		assert.Equal(t, fault.KindInvalidState, fault.KindOf(err))
	})
}
