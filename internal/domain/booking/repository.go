package booking

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines booking persistence.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*Booking, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]*Booking, error)
	Update(ctx context.Context, b *Booking) error
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status Status, updatedAt time.Time) error
}
