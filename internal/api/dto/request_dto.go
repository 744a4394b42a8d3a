package dto

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	Type           string     `json:"type"`
	Channel        string     `json:"channel"`
	RequestedAt    *time.Time `json:"requested_at"`
	Level          *int       `json:"level"`
	AssigneeID     *string    `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	EstimatedDue   *time.Time `json:"estimated_due"`
}

// TransitionRequest payload. Status accepts any known label.
type TransitionRequest struct {
	Status       string `json:"status"`
	Comment      string `json:"comment"`
	EvidenceLink string `json:"evidence_link"`
}

// ReopenRequest payload.
type ReopenRequest struct {
	Status       *string `json:"status"`
	Comment      string  `json:"comment"`
	EvidenceLink string  `json:"evidence_link"`
}

// ClassifyRequest payload.
type ClassifyRequest struct {
	Level    *int   `json:"level"`
	Priority string `json:"priority"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID     string     `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	EstimatedDue   *time.Time `json:"estimated_due"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating  string `json:"rating"`
	Comment string `json:"comment"`
}

// UpdateRequestRequest is the generic update payload.
type UpdateRequestRequest struct {
	Status         *string    `json:"status"`
	Comment        string     `json:"comment"`
	EvidenceLink   string     `json:"evidence_link"`
	AssigneeID     *string    `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	EstimatedDue   *time.Time `json:"estimated_due"`
}

// RequestResponse is the wire shape of a request.
type RequestResponse struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Priority        domain.Priority        `json:"priority"`
	Type            domain.RequestType     `json:"type"`
	Channel         domain.Channel         `json:"channel"`
	Level           *int                   `json:"level"`
	Status          domain.RequestStatus   `json:"status"`
	Requester       domain.UserRef         `json:"requester"`
	Department      string                 `json:"department"`
	Assignee        *domain.UserRef        `json:"assignee"`
	AssignedBy      *domain.UserRef        `json:"assigned_by"`
	EstimatedHours  *float64               `json:"estimated_hours"`
	EstimatedDue    *time.Time             `json:"estimated_due"`
	RequestedAt     time.Time              `json:"requested_at"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	CompletionDate  *time.Time             `json:"completion_date"`
	Feedback        *domain.Feedback       `json:"feedback"`
	RejectionReason *string                `json:"rejection_reason"`
	ReviewEvidence  *domain.ReviewEvidence `json:"review_evidence"`
	ReopenCount     int                    `json:"reopen_count"`
	Version         int64                  `json:"version"`
	StateHistory    []domain.StateEvent    `json:"state_history,omitempty"`
}

// NewRequestResponse maps the aggregate. History is included on detail views.
func NewRequestResponse(req *domain.Request, withHistory bool) RequestResponse {
	resp := RequestResponse{
		ID:              req.ID,
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		Type:            req.Type,
		Channel:         req.Channel,
		Level:           req.Level,
		Status:          req.Status,
		Requester:       req.Requester,
		Department:      req.Department,
		Assignee:        req.Assignee,
		AssignedBy:      req.AssignedBy,
		EstimatedHours:  req.EstimatedHours,
		EstimatedDue:    req.EstimatedDue,
		RequestedAt:     req.RequestedAt,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
		CompletionDate:  req.CompletionDate,
		Feedback:        req.Feedback,
		RejectionReason: req.RejectionReason,
		ReviewEvidence:  req.ReviewEvidence,
		ReopenCount:     req.ReopenCount,
		Version:         req.Version,
	}
	if withHistory {
		resp.StateHistory = req.StateHistory
	}
	return resp
}

// NewRequestResponses maps a list without history.
func NewRequestResponses(reqs []domain.Request) []RequestResponse {
	items := make([]RequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, NewRequestResponse(&reqs[i], false))
	}
	return items
}
