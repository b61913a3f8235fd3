package dispute

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines dispute persistence. Messages and evidence are
// appended through the owning dispute so the stored counts stay in step
// with the rows.
type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, disputeID uuid.UUID) (*Dispute, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Dispute, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]*Dispute, error)
	Update(ctx context.Context, d *Dispute) error

	// AppendMessage inserts the message and increments the dispute's
	// message count in the same transaction.
	AppendMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, disputeID uuid.UUID) ([]*Message, error)

	// AppendEvidence inserts the evidence reference and increments the
	// dispute's evidence count in the same transaction.
	AppendEvidence(ctx context.Context, e *Evidence) error
	ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]*Evidence, error)
}
