package domain

import "time"

// RequestStatus enumerates lifecycle states for requests.
type RequestStatus string

const (
	StatusPending    RequestStatus = "Pending"
	StatusInProgress RequestStatus = "InProgress"
	StatusInReview   RequestStatus = "InReview"
	StatusFinalized  RequestStatus = "Finalized"
	StatusRejected   RequestStatus = "Rejected"
)

// Priority enumerates request urgency.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// RequestType classifies the kind of work requested.
type RequestType string

const (
	TypeSupport     RequestType = "Support"
	TypeImprovement RequestType = "Improvement"
	TypeDevelopment RequestType = "Development"
	TypeTraining    RequestType = "Training"
)

// Channel is the intake channel of a request.
type Channel string

const (
	ChannelChat   Channel = "Chat"
	ChannelEmail  Channel = "Email"
	ChannelSystem Channel = "System"
)

// FeedbackRating is the requester's verdict on a finalized request.
type FeedbackRating string

const (
	RatingUp   FeedbackRating = "up"
	RatingDown FeedbackRating = "down"
)

// UserRef is a denormalized id+name pair stored on requests and events.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StateEvent is an immutable transition record embedded in a request.
// From is nil for the synthetic creation event.
type StateEvent struct {
	From *RequestStatus `json:"from_status"`
	To   RequestStatus  `json:"to_status"`
	At   time.Time      `json:"at"`
	By   UserRef        `json:"by"`
}

// Feedback is attached at most once to a finalized request.
type Feedback struct {
	Rating  FeedbackRating `json:"rating"`
	Comment string         `json:"comment,omitempty"`
	By      UserRef        `json:"by"`
	At      time.Time      `json:"at"`
}

// ReviewEvidence records the link supplied when moving into review.
type ReviewEvidence struct {
	Type string    `json:"type"`
	URL  string    `json:"url"`
	By   UserRef   `json:"by"`
	At   time.Time `json:"at"`
}

// Request is the aggregate for automation requests.
type Request struct {
	ID              string
	Title           string
	Description     string
	Priority        Priority
	Type            RequestType
	Channel         Channel
	Level           *int
	Status          RequestStatus
	Requester       UserRef
	Department      string
	Assignee        *UserRef
	AssignedBy      *UserRef
	EstimatedHours  *float64
	EstimatedDue    *time.Time
	RequestedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletionDate  *time.Time
	StateHistory    []StateEvent
	Feedback        *Feedback
	RejectionReason *string
	ReviewEvidence  *ReviewEvidence
	ReopenCount     int
	Version         int64
}

// IsAssignedTo reports whether userID is the current assignee.
func (r *Request) IsAssignedTo(userID string) bool {
	return r.Assignee != nil && r.Assignee.ID == userID
}

// WasAssignedBy reports whether userID made the current assignment.
func (r *Request) WasAssignedBy(userID string) bool {
	return r.AssignedBy != nil && r.AssignedBy.ID == userID
}

// Clone returns a deep copy safe to mutate before persisting.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Level != nil {
		v := *r.Level
		c.Level = &v
	}
	if r.Assignee != nil {
		v := *r.Assignee
		c.Assignee = &v
	}
	if r.AssignedBy != nil {
		v := *r.AssignedBy
		c.AssignedBy = &v
	}
	if r.EstimatedHours != nil {
		v := *r.EstimatedHours
		c.EstimatedHours = &v
	}
	if r.EstimatedDue != nil {
		v := *r.EstimatedDue
		c.EstimatedDue = &v
	}
	if r.CompletionDate != nil {
		v := *r.CompletionDate
		c.CompletionDate = &v
	}
	if r.Feedback != nil {
		v := *r.Feedback
		c.Feedback = &v
	}
	if r.RejectionReason != nil {
		v := *r.RejectionReason
		c.RejectionReason = &v
	}
	if r.ReviewEvidence != nil {
		v := *r.ReviewEvidence
		c.ReviewEvidence = &v
	}
	c.StateHistory = append([]StateEvent(nil), r.StateHistory...)
	return &c
}
