package dispute

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
)

// Status represents dispute lifecycle status.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusResolved    Status = "RESOLVED"
	StatusRejected    Status = "REJECTED"
	StatusEscalated   Status = "ESCALATED"
)

// Type classifies what the dispute is about.
type Type string

const (
	TypePricing        Type = "PRICING_DISPUTE"
	TypeDamageClaim    Type = "DAMAGE_CLAIM"
	TypeServiceQuality Type = "SERVICE_QUALITY"
	TypeDeliveryIssue  Type = "DELIVERY_ISSUE"
	TypePaymentIssue   Type = "PAYMENT_ISSUE"
	TypeOther          Type = "OTHER"
)

var (
	ErrInvalidTransition = errors.New("invalid dispute status transition")
	ErrClosed            = errors.New("dispute is closed")
	ErrAlreadyResolved   = errors.New("resolution already recorded")
)

var validTypes = map[Type]struct{}{
	TypePricing: {}, TypeDamageClaim: {}, TypeServiceQuality: {},
	TypeDeliveryIssue: {}, TypePaymentIssue: {}, TypeOther: {},
}

// IsValid reports whether t is a known dispute type.
func (t Type) IsValid() bool {
	_, ok := validTypes[t]
	return ok
}

var transitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusEscalated},
	StatusUnderReview: {StatusEscalated, StatusResolved, StatusRejected},
	StatusEscalated:   {StatusResolved, StatusRejected},
	StatusResolved:    {},
	StatusRejected:    {},
}

// IsTerminal reports whether the status closes the dispute.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Dispute is the aggregate root for its message thread and evidence
// references. Evidence content lives in an external store; the dispute
// only tracks references and counts.
type Dispute struct {
	ID                  int64      `json:"id"`
	DisputeID           uuid.UUID  `json:"disputeId"`
	BookingID           uuid.UUID  `json:"bookingId"`
	Status              Status     `json:"status"`
	DisputeType         Type       `json:"disputeType"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	RequestedResolution *string    `json:"requestedResolution,omitempty"`
	FiledByUserID       string     `json:"filedByUserId"`
	FiledByRole         actor.Role `json:"filedByRole"`
	AssignedTo          *string    `json:"assignedTo,omitempty"`
	MessageCount        int        `json:"messageCount"`
	EvidenceCount       int        `json:"evidenceCount"`
	ResolutionNotes     *string    `json:"resolutionNotes,omitempty"`
	ResolvedBy          *string    `json:"resolvedBy,omitempty"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// CanTransitionTo validates a dispute status transition.
func (d *Dispute) CanTransitionTo(target Status) bool {
	for _, s := range transitions[d.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsClosed reports whether discussion and mutation are over.
func (d *Dispute) IsClosed() bool {
	return d.Status.IsTerminal()
}

// Resolve records the outcome exactly once. Resolution fields are unset
// until the dispute closes and immutable thereafter.
func (d *Dispute) Resolve(outcome Status, notes string, resolvedBy string, now time.Time) error {
	if outcome != StatusResolved && outcome != StatusRejected {
		return ErrInvalidTransition
	}
	if d.ResolvedAt != nil {
		return ErrAlreadyResolved
	}
	if !d.CanTransitionTo(outcome) {
		return ErrInvalidTransition
	}
	d.Status = outcome
	d.ResolutionNotes = &notes
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &now
	return nil
}

// IsParty reports whether the user filed the dispute or belongs to the
// disputed booking's parties.
func (d *Dispute) IsParty(userID string, bookingParties []string) bool {
	if userID == d.FiledByUserID {
		return true
	}
	for _, p := range bookingParties {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is one entry in a dispute's thread. Immutable once created;
// ordering is creation-time total order.
type Message struct {
	ID           int64      `json:"id"`
	MessageID    uuid.UUID  `json:"messageId"`
	DisputeID    uuid.UUID  `json:"disputeId"`
	SenderUserID string     `json:"senderUserId"`
	SenderRole   actor.Role `json:"senderRole"`
	Body         string     `json:"body"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Evidence records a reference to externally stored evidence content.
type Evidence struct {
	ID               int64     `json:"id"`
	EvidenceID       uuid.UUID `json:"evidenceId"`
	DisputeID        uuid.UUID `json:"disputeId"`
	UploadedByUserID string    `json:"uploadedByUserId"`
	EvidenceType     string    `json:"evidenceType"`
	FileRef          string    `json:"fileRef"`
	Description      *string   `json:"description,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
