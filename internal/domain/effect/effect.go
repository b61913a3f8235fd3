package effect

import (
	"encoding/json"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
)

// TargetType identifies the entity class an audit record points at.
type TargetType string

const (
	TargetUser         TargetType = "USER"
	TargetTransport    TargetType = "TRANSPORT"
	TargetCategory     TargetType = "CATEGORY"
	TargetReview       TargetType = "REVIEW"
	TargetOutboxEvent  TargetType = "OUTBOX_EVENT"
	TargetBid          TargetType = "BID"
	TargetException    TargetType = "EXCEPTION"
	TargetBooking      TargetType = "BOOKING"
	TargetQuotation    TargetType = "QUOTATION"
	TargetCounterOffer TargetType = "COUNTER_OFFER"
	TargetDispute      TargetType = "DISPUTE"
)

// Action identifies the audited operation.
type Action string

const (
	ActionBookingCreated          Action = "BOOKING_CREATED"
	ActionBookingStatusChanged    Action = "BOOKING_STATUS_CHANGED"
	ActionQuotationSubmitted      Action = "QUOTATION_SUBMITTED"
	ActionBidAccepted             Action = "BID_ACCEPTED"
	ActionBidRejected             Action = "BID_REJECTED"
	ActionCounterOfferSubmitted   Action = "COUNTER_OFFER_SUBMITTED"
	ActionCounterOfferAccepted    Action = "COUNTER_OFFER_ACCEPTED"
	ActionCounterOfferRejected    Action = "COUNTER_OFFER_REJECTED"
	ActionCounterOfferExpired     Action = "COUNTER_OFFER_EXPIRED"
	ActionDisputeFiled            Action = "DISPUTE_FILED"
	ActionDisputeMessagePosted    Action = "DISPUTE_MESSAGE_POSTED"
	ActionDisputeEvidenceAttached Action = "DISPUTE_EVIDENCE_ATTACHED"
	ActionDisputeStatusChanged    Action = "DISPUTE_STATUS_CHANGED"
	ActionDisputeResolved         Action = "DISPUTE_RESOLVED"
	ActionExceptionReported       Action = "EXCEPTION_REPORTED"
	ActionExceptionUpdated        Action = "EXCEPTION_UPDATED"
	ActionExceptionEscalated      Action = "EXCEPTION_ESCALATED"
	ActionExceptionResolved       Action = "EXCEPTION_RESOLVED"
)

// NotificationType identifies the outbound notification category.
type NotificationType string

const (
	NotifyBookingStatusChanged NotificationType = "BOOKING_STATUS_CHANGED"
	NotifyQuotationReceived    NotificationType = "QUOTATION_RECEIVED"
	NotifyQuotationAccepted    NotificationType = "QUOTATION_ACCEPTED"
	NotifyQuotationRejected    NotificationType = "QUOTATION_REJECTED"
	NotifyCounterOfferReceived NotificationType = "COUNTER_OFFER_RECEIVED"
	NotifyCounterOfferAccepted NotificationType = "COUNTER_OFFER_ACCEPTED"
	NotifyCounterOfferRejected NotificationType = "COUNTER_OFFER_REJECTED"
	NotifyCounterOfferExpired  NotificationType = "COUNTER_OFFER_EXPIRED"
	NotifyDisputeFiled         NotificationType = "DISPUTE_FILED"
	NotifyDisputeMessage       NotificationType = "DISPUTE_MESSAGE"
	NotifyDisputeStatusChanged NotificationType = "DISPUTE_STATUS_CHANGED"
	NotifyDisputeResolved      NotificationType = "DISPUTE_RESOLVED"
	NotifyExceptionEscalated   NotificationType = "EXCEPTION_ESCALATED"
	NotifyExceptionResolved    NotificationType = "EXCEPTION_RESOLVED"
)

// NotificationRequest asks the delivery adapter to notify a user.
// It carries everything delivery needs so a retry never has to
// re-query the aggregate that produced it.
type NotificationRequest struct {
	RecipientUserID string           `json:"recipientUserId"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	Payload         json.RawMessage  `json:"payload,omitempty"`
}

// AuditRecord asks the audit adapter to append one record.
type AuditRecord struct {
	Action     Action                 `json:"action"`
	TargetType TargetType             `json:"targetType"`
	TargetID   string                 `json:"targetId"`
	Actor      actor.Actor            `json:"actor"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Effects is the list of side effects a committed command produced.
// The core returns them synchronously; delivery is asynchronous,
// at-least-once, and never rolls back the state change that produced it.
type Effects struct {
	Notifications []NotificationRequest
	Audits        []AuditRecord
}

func (e *Effects) Notify(req NotificationRequest) {
	if req.RecipientUserID == "" {
		return
	}
	e.Notifications = append(e.Notifications, req)
}

func (e *Effects) Audit(rec AuditRecord) {
	e.Audits = append(e.Audits, rec)
}

func (e *Effects) Append(other Effects) {
	e.Notifications = append(e.Notifications, other.Notifications...)
	e.Audits = append(e.Audits, other.Audits...)
}

func (e Effects) Empty() bool {
	return len(e.Notifications) == 0 && len(e.Audits) == 0
}
