package domain

import "strings"

var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusInReview},
	StatusInReview:   {StatusFinalized, StatusInProgress},
	StatusFinalized:  {},
	StatusRejected:   {},
}

// Statuses lists the canonical states in workflow order.
var Statuses = []RequestStatus{StatusPending, StatusInProgress, StatusInReview, StatusFinalized, StatusRejected}

// OpenStatuses are the states of a request not yet resolved.
var OpenStatuses = []RequestStatus{StatusPending, StatusInProgress, StatusInReview}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to RequestStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from s.
func AllowedTransitions(s RequestStatus) []RequestStatus {
	return append([]RequestStatus(nil), allowedTransitions[s]...)
}

// IsValid reports whether s is one of the canonical states.
func (s RequestStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s RequestStatus) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusInReview
}

func (s RequestStatus) IsTerminal() bool {
	return s == StatusFinalized || s == StatusRejected
}

// IsReopen reports whether from -> to moves a finalized request back into work.
func IsReopen(from, to RequestStatus) bool {
	return from == StatusFinalized && to.IsOpen()
}

var statusAliases = map[string]RequestStatus{
	"pending":     StatusPending,
	"pendiente":   StatusPending,
	"open":        StatusPending,
	"inprogress":  StatusInProgress,
	"in progress": StatusInProgress,
	"in_progress": StatusInProgress,
	"en progreso": StatusInProgress,
	"inreview":    StatusInReview,
	"in review":   StatusInReview,
	"in_review":   StatusInReview,
	"en revisión": StatusInReview,
	"en revision": StatusInReview,
	"finalized":   StatusFinalized,
	"finalizada":  StatusFinalized,
	"finalizado":  StatusFinalized,
	"completada":  StatusFinalized,
	"completado":  StatusFinalized,
	"completed":   StatusFinalized,
	"done":        StatusFinalized,
	"closed":      StatusFinalized,
	"rejected":    StatusRejected,
	"rechazada":   StatusRejected,
	"rechazado":   StatusRejected,
	"cancelada":   StatusRejected,
	"cancelado":   StatusRejected,
	"cancelled":   StatusRejected,
	"canceled":    StatusRejected,
}

// NormalizeStatus maps stored or legacy labels onto the canonical states.
// Unrecognized labels fall back to Pending.
func NormalizeStatus(raw string) RequestStatus {
	if s, ok := ParseStatus(raw); ok {
		return s
	}
	return StatusPending
}

// ParseStatus resolves a label without the Pending fallback.
func ParseStatus(raw string) (RequestStatus, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// StatusLabels returns every known spelling, lowercased, that normalizes to s.
// Pending additionally absorbs anything unrecognized.
func StatusLabels(s RequestStatus) []string {
	var labels []string
	for label, status := range statusAliases {
		if status == s {
			labels = append(labels, label)
		}
	}
	return labels
}
