package events

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestTransitioned  EventType = "request_status_changed"
	EventRequestClassified    EventType = "request_classified"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestUnassigned    EventType = "request_unassigned"
	EventRequestFeedbackAdded EventType = "request_feedback_submitted"
	EventWorklogRecorded      EventType = "worklog_recorded"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventRequestCreated,
	EventRequestTransitioned,
	EventRequestClassified,
	EventRequestAssigned,
	EventRequestUnassigned,
	EventRequestFeedbackAdded,
	EventWorklogRecorded,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	TicketID  string         `json:"ticket_id"`
	Actor     domain.UserRef `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   interface{}    `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Title      string               `json:"title"`
	Department string               `json:"department"`
	Priority   domain.Priority      `json:"priority"`
	Type       domain.RequestType   `json:"type"`
	Channel    domain.Channel       `json:"channel"`
	Assignee   *domain.UserRef      `json:"assignee,omitempty"`
	Status     domain.RequestStatus `json:"status"`
}

// RequestTransitionedPayload payload.
type RequestTransitionedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
	Reopened  bool                 `json:"reopened,omitempty"`
}

// RequestClassifiedPayload payload.
type RequestClassifiedPayload struct {
	Level    *int            `json:"level,omitempty"`
	Priority domain.Priority `json:"priority"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	Assignee       domain.UserRef `json:"assignee"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty"`
	EstimatedDue   *time.Time     `json:"estimated_due,omitempty"`
}

// RequestUnassignedPayload payload.
type RequestUnassignedPayload struct {
	PreviousAssignee *domain.UserRef `json:"previous_assignee,omitempty"`
}

// FeedbackSubmittedPayload payload.
type FeedbackSubmittedPayload struct {
	Rating domain.FeedbackRating `json:"rating"`
}

// WorklogRecordedPayload payload.
type WorklogRecordedPayload struct {
	WorklogID string  `json:"worklog_id"`
	UserID    string  `json:"user_id"`
	Hours     float64 `json:"hours"`
	Date      string  `json:"date"`
}
