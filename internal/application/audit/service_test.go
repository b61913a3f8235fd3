package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/audit"
	"github.com/negotiation-core/negotiation-core/internal/domain/audit/mocks"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
	"github.com/negotiation-core/negotiation-core/internal/infrastructure/clock"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T, signKey []byte) (*Service, *mocks.MockRepository) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockRepository(ctrl)
	service := NewService(repo, clock.NewManual(testNow), zerolog.Nop(), signKey)
	return service, repo
}

func testRecord() effect.AuditRecord {
	return effect.AuditRecord{
		Action:     effect.ActionBidAccepted,
		TargetType: effect.TargetQuotation,
		TargetID:   uuid.NewString(),
		Actor:      actor.Actor{UserID: "customer-1", Role: actor.RoleCustomer},
		Details:    map[string]interface{}{"agreedPrice": 420.0},
	}
}

func TestService_LogSync(t *testing.T) {
	ctx := context.Background()

	t.Run("signs and persists the record", func(t *testing.T) {
		service, repo := newTestService(t, testKey)

		repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, log *audit.AuditLog) error {
				assert.Equal(t, effect.ActionBidAccepted, log.Action)
				assert.Equal(t, "customer-1", log.Actor)
				assert.Equal(t, actor.RoleCustomer, log.ActorRole)
				assert.Equal(t, audit.RiskLevelMedium, log.RiskLevel)
				assert.Equal(t, testNow, log.CreatedAt)
				assert.NotEmpty(t, log.Signature)
				return nil
			})

		require.NoError(t, service.LogSync(ctx, testRecord()))
	})

	t.Run("unsigned when no key is configured", func(t *testing.T) {
		service, repo := newTestService(t, nil)

		repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, log *audit.AuditLog) error {
				assert.Empty(t, log.Signature)
				return nil
			})

		require.NoError(t, service.LogSync(ctx, testRecord()))
	})

	t.Run("a record without a target is rejected", func(t *testing.T) {
		service, _ := newTestService(t, nil)

		rec := testRecord()
		rec.TargetID = ""

		require.Error(t, service.LogSync(ctx, rec))
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("encodes the next cursor when more rows remain", func(t *testing.T) {
		service, repo := newTestService(t, nil)
		logs := []*audit.AuditLog{{ID: 41, CreatedAt: testNow}, {ID: 40, CreatedAt: testNow}}
		next := &audit.Cursor{CreatedAt: testNow, ID: 40}

		repo.EXPECT().Query(ctx, gomock.Any(), nil, 2).Return(logs, next, nil)

		res, err := service.Query(ctx, QueryParams{Limit: 2})

		require.NoError(t, err)
		assert.Len(t, res.Logs, 2)
		assert.Equal(t, 2, res.Pagination.Count)
		assert.True(t, res.Pagination.HasMore)
		require.NotNil(t, res.Pagination.Cursor)

		// The returned cursor round-trips into the follow-up query.
		decoded, err := decodeCursor(*res.Pagination.Cursor)
		require.NoError(t, err)
		assert.Equal(t, int64(40), decoded.ID)
		assert.True(t, decoded.CreatedAt.Equal(testNow))
	})

	t.Run("last page has no cursor", func(t *testing.T) {
		service, repo := newTestService(t, nil)

		repo.EXPECT().Query(ctx, gomock.Any(), nil, 50).Return([]*audit.AuditLog{{ID: 1}}, nil, nil)

		res, err := service.Query(ctx, QueryParams{})

		require.NoError(t, err)
		assert.False(t, res.Pagination.HasMore)
		assert.Nil(t, res.Pagination.Cursor)
	})

	t.Run("rejects a garbage cursor", func(t *testing.T) {
		service, _ := newTestService(t, nil)
		bad := "not-base64!"

		_, err := service.Query(ctx, QueryParams{Cursor: &bad})

		require.Error(t, err)
	})

	t.Run("passes filters through", func(t *testing.T) {
		service, repo := newTestService(t, nil)
		action := "BID_ACCEPTED"
		risk := "MEDIUM"

		repo.EXPECT().
			Query(ctx, gomock.Any(), nil, 50).
			DoAndReturn(func(_ context.Context, filter audit.QueryFilter, _ *audit.Cursor, _ int) ([]*audit.AuditLog, *audit.Cursor, error) {
				require.NotNil(t, filter.Action)
				assert.Equal(t, effect.ActionBidAccepted, *filter.Action)
				require.NotNil(t, filter.RiskLevel)
				assert.Equal(t, audit.RiskLevelMedium, *filter.RiskLevel)
				return nil, nil, nil
			})

		_, err := service.Query(ctx, QueryParams{Action: &action, RiskLevel: &risk})
		require.NoError(t, err)
	})
}

func TestService_VerifyIntegrity(t *testing.T) {
	ctx := context.Background()

	signedLog := func(t *testing.T) *audit.AuditLog {
		log, err := audit.NewAuditLog(testRecord(), testNow)
		require.NoError(t, err)
		sig, err := audit.SignAuditLog(log, testKey)
		require.NoError(t, err)
		log.Signature = sig
		return log
	}

	t.Run("intact record verifies", func(t *testing.T) {
		service, repo := newTestService(t, testKey)
		log := signedLog(t)

		repo.EXPECT().GetByID(ctx, log.AuditID).Return(log, nil)

		res, err := service.VerifyIntegrity(ctx, log.AuditID)

		require.NoError(t, err)
		require.NotNil(t, res)
		assert.True(t, res.Verified)
	})

	t.Run("tampered record fails verification", func(t *testing.T) {
		service, repo := newTestService(t, testKey)
		log := signedLog(t)
		log.Actor = "someone-else"

		repo.EXPECT().GetByID(ctx, log.AuditID).Return(log, nil)

		res, err := service.VerifyIntegrity(ctx, log.AuditID)

		require.NoError(t, err)
		assert.False(t, res.Verified)
	})

	t.Run("unknown audit id", func(t *testing.T) {
		service, repo := newTestService(t, testKey)
		id := uuid.New()

		repo.EXPECT().GetByID(ctx, id).Return(nil, nil)

		res, err := service.VerifyIntegrity(ctx, id)

		require.NoError(t, err)
		assert.Nil(t, res)
	})
}
