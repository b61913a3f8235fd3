package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/negotiation-core/negotiation-core/internal/domain/effect"
)

// Status represents the delivery status of a notification.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrExpired           = errors.New("notification has expired")
	ErrCannotRetry       = errors.New("cannot retry notification")
	ErrClientNotFound    = errors.New("SSE client not found")
	ErrChannelFull       = errors.New("SSE message channel full")
)

// Notification is a queued delivery of one NotificationRequest. The row
// carries the full request payload so delivery retries never re-query
// the aggregate that produced it.
type Notification struct {
	ID              int64                   `json:"id"`
	NotificationID  uuid.UUID               `json:"notificationId"`
	RecipientUserID string                  `json:"recipientUserId"`
	Type            effect.NotificationType `json:"type"`
	Title           string                  `json:"title"`
	Body            string                  `json:"body"`
	Payload         json.RawMessage         `json:"payload,omitempty"`
	Status          Status                  `json:"status"`
	RetryCount      int                     `json:"retryCount"`
	MaxRetries      int                     `json:"maxRetries"`
	LastError       *string                 `json:"lastError,omitempty"`
	IsRead          bool                    `json:"isRead"`
	ReadAt          *time.Time              `json:"readAt,omitempty"`
	ExpiresAt       *time.Time              `json:"expiresAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	SentAt          *time.Time              `json:"sentAt,omitempty"`
	DeliveredAt     *time.Time              `json:"deliveredAt,omitempty"`
	FailedAt        *time.Time              `json:"failedAt,omitempty"`
}

// FromRequest materializes a pending notification from an effect.
func FromRequest(req effect.NotificationRequest, now time.Time, ttl time.Duration) *Notification {
	n := &Notification{
		NotificationID:  uuid.New(),
		RecipientUserID: req.RecipientUserID,
		Type:            req.Type,
		Title:           req.Title,
		Body:            req.Body,
		Payload:         req.Payload,
		Status:          StatusPending,
		MaxRetries:      3,
		CreatedAt:       now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		n.ExpiresAt = &expires
	}
	return n
}

// IsExpired checks if the notification has expired.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.ExpiresAt == nil {
		return false
	}
	return now.After(*n.ExpiresAt)
}

// CanTransitionTo checks if a transition to the target status is valid.
func (n *Notification) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusSent, StatusFailed, StatusExpired},
		StatusSent:      {StatusDelivered, StatusFailed},
		StatusDelivered: {},
		StatusFailed:    {StatusPending}, // retry
		StatusExpired:   {},
	}
	for _, s := range transitions[n.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// MarkSent marks the notification as sent.
func (n *Notification) MarkSent(now time.Time) error {
	if n.IsExpired(now) {
		n.Status = StatusExpired
		return ErrExpired
	}
	if !n.CanTransitionTo(StatusSent) {
		return ErrInvalidTransition
	}
	n.Status = StatusSent
	n.SentAt = &now
	return nil
}

// MarkDelivered marks the notification as delivered.
func (n *Notification) MarkDelivered(now time.Time) error {
	if !n.CanTransitionTo(StatusDelivered) {
		return ErrInvalidTransition
	}
	n.Status = StatusDelivered
	n.DeliveredAt = &now
	return nil
}

// MarkFailed marks the notification as failed and counts the attempt.
func (n *Notification) MarkFailed(errMsg string, now time.Time) error {
	if n.IsExpired(now) {
		n.Status = StatusExpired
		return ErrExpired
	}
	if !n.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	n.Status = StatusFailed
	n.FailedAt = &now
	n.LastError = &errMsg
	n.RetryCount++
	return nil
}

// CanRetry checks if the notification can be retried.
func (n *Notification) CanRetry(now time.Time) bool {
	return n.Status == StatusFailed && n.RetryCount < n.MaxRetries && !n.IsExpired(now)
}

// ResetForRetry resets the notification for another delivery attempt.
func (n *Notification) ResetForRetry(now time.Time) error {
	if !n.CanRetry(now) {
		return ErrCannotRetry
	}
	n.Status = StatusPending
	n.FailedAt = nil
	return nil
}

// MarkRead records that the recipient saw the notification.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &now
}

// SSEClient represents an active SSE connection.
type SSEClient struct {
	ClientID    string
	UserID      string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client.
func NewSSEClient(clientID, userID string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel.
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE.
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message.
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
