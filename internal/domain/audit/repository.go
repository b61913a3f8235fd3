package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

// Repository defines append-only audit persistence.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	GetByID(ctx context.Context, auditID uuid.UUID) (*AuditLog, error)
	GetByTarget(ctx context.Context, targetType effect.TargetType, targetID string) ([]*AuditLog, error)
	Query(ctx context.Context, filter QueryFilter, cursor *Cursor, limit int) ([]*AuditLog, *Cursor, error)
}
