package exception

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines exception persistence.
type Repository interface {
	Create(ctx context.Context, e *Exception) error
	GetByID(ctx context.Context, exceptionID uuid.UUID) (*Exception, error)
	List(ctx context.Context, status *Status, priority *Priority, limit, offset int) ([]*Exception, error)
	// ListOpen returns non-terminal exceptions for the escalation sweep.
	ListOpen(ctx context.Context, limit int) ([]*Exception, error)
	Update(ctx context.Context, e *Exception) error
}
