package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,SSEHub

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines notification persistence.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, notificationID uuid.UUID) (*Notification, error)
	ListByRecipient(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*Notification, error)
	Update(ctx context.Context, n *Notification) error

	ListPending(ctx context.Context, limit int) ([]*Notification, error)
	ListRetryable(ctx context.Context, limit int) ([]*Notification, error)
	ExpireNotifications(ctx context.Context, now time.Time) (int64, error)
}

// SSEHub defines the interface for managing SSE connections.
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int

	// BroadcastToUser pushes to every live connection of the user and
	// reports how many connections received it.
	BroadcastToUser(userID string, message *SSEMessage) int
	SendToClient(clientID string, message *SSEMessage) error

	Stop()
}
