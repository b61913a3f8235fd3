package exception

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents exception lifecycle status.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusEscalated  Status = "ESCALATED"
)

// Priority orders exceptions for triage. Escalation may raise a
// priority but the system never lowers one on its own.
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

var (
	ErrInvalidTransition = errors.New("invalid exception status transition")
	ErrAlreadyResolved   = errors.New("resolution already recorded")
	ErrPriorityLowered   = errors.New("priority may be raised, never lowered")
)

var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// AtLeast reports whether p ranks at or above q.
func (p Priority) AtLeast(q Priority) bool {
	return priorityRank[p] >= priorityRank[q]
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusEscalated, StatusResolved},
	StatusInProgress: {StatusEscalated, StatusResolved},
	StatusEscalated:  {StatusInProgress, StatusResolved},
	StatusResolved:   {},
}

// IsTerminal reports whether the status closes the exception.
func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

// Exception is an operational incident tracked to resolution,
// optionally linked to a booking and/or an upstream incident.
type Exception struct {
	ID              int64           `json:"id"`
	ExceptionID     uuid.UUID       `json:"exceptionId"`
	Title           string          `json:"title"`
	ExceptionType   string          `json:"type"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	Priority        Priority        `json:"priority"`
	BookingID       *uuid.UUID      `json:"bookingId,omitempty"`
	IncidentID      *int64          `json:"incidentId,omitempty"`
	AssignedTo      *string         `json:"assignedTo,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	ResolutionNotes *string         `json:"resolutionNotes,omitempty"`
	ResolvedBy      *string         `json:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CanTransitionTo validates an exception status transition.
func (e *Exception) CanTransitionTo(target Status) bool {
	for _, s := range transitions[e.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Escalate moves the exception to ESCALATED, optionally raising its
// priority. Re-escalating an already escalated exception is allowed
// only when it raises the priority.
func (e *Exception) Escalate(newPriority *Priority) error {
	if e.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	if newPriority != nil {
		if !e.Priority.AtLeast(*newPriority) {
			e.Priority = *newPriority
		} else if *newPriority != e.Priority {
			return ErrPriorityLowered
		} else if e.Status == StatusEscalated {
			return ErrInvalidTransition
		}
	} else if e.Status == StatusEscalated {
		return ErrInvalidTransition
	}
	e.Status = StatusEscalated
	return nil
}

// Resolve records the outcome exactly once; terminal thereafter.
func (e *Exception) Resolve(notes string, resolvedBy string, now time.Time) error {
	if e.ResolvedAt != nil {
		return ErrAlreadyResolved
	}
	if !e.CanTransitionTo(StatusResolved) {
		return ErrInvalidTransition
	}
	e.Status = StatusResolved
	e.ResolutionNotes = &notes
	e.ResolvedBy = &resolvedBy
	e.ResolvedAt = &now
	return nil
}

// AgeHours returns how long the exception has been open.
func (e *Exception) AgeHours(now time.Time) float64 {
	return now.Sub(e.CreatedAt).Hours()
}
