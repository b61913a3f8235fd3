package audit

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

// RiskLevel classifies how sensitive an audited operation is.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

var (
	ErrMissingTarget = errors.New("audit entry requires target type and id")
	ErrMissingAction = errors.New("audit entry requires an action")
)

// AuditLog is one append-only audit record.
type AuditLog struct {
	ID         int64             `json:"id"`
	AuditID    uuid.UUID         `json:"auditId"`
	TargetType effect.TargetType `json:"targetType"`
	TargetID   string            `json:"targetId"`
	Action     effect.Action     `json:"action"`
	Actor      string            `json:"actor"`
	ActorRole  actor.Role        `json:"actorRole"`
	Details    json.RawMessage   `json:"details,omitempty"`
	RiskLevel  RiskLevel         `json:"riskLevel"`
	Signature  []byte            `json:"signature,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// NewAuditLog validates an effect record and materializes the row.
func NewAuditLog(rec effect.AuditRecord, now time.Time) (*AuditLog, error) {
	if rec.TargetType == "" || rec.TargetID == "" {
		return nil, ErrMissingTarget
	}
	if rec.Action == "" {
		return nil, ErrMissingAction
	}
	var details json.RawMessage
	if len(rec.Details) > 0 {
		data, err := json.Marshal(rec.Details)
		if err != nil {
			return nil, err
		}
		details = data
	}
	return &AuditLog{
		AuditID:    uuid.New(),
		TargetType: rec.TargetType,
		TargetID:   rec.TargetID,
		Action:     rec.Action,
		Actor:      rec.Actor.UserID,
		ActorRole:  rec.Actor.Role,
		Details:    details,
		RiskLevel:  classifyRisk(rec.Action),
		CreatedAt:  now,
	}, nil
}

// classifyRisk maps actions to risk levels. Irreversible outcomes rank
// higher than routine negotiation traffic.
func classifyRisk(action effect.Action) RiskLevel {
	switch action {
	case effect.ActionDisputeResolved, effect.ActionExceptionResolved:
		return RiskLevelHigh
	case effect.ActionBidAccepted, effect.ActionBidRejected,
		effect.ActionDisputeStatusChanged, effect.ActionExceptionEscalated,
		effect.ActionBookingStatusChanged:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// QueryFilter filters audit log queries.
type QueryFilter struct {
	TargetType *effect.TargetType
	TargetID   *string
	Action     *effect.Action
	Actor      *string
	RiskLevel  *RiskLevel
	StartTime  *time.Time
	EndTime    *time.Time
}

// Cursor is a keyset pagination cursor over (created_at, id).
type Cursor struct {
	CreatedAt time.Time `json:"ts"`
	ID        int64     `json:"id"`
}
