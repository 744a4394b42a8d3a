package domain

import "time"

// StatusEvent is the flat Event Log copy of a StateEvent, stored apart from
// the request so metrics can scan transitions across requests.
type StatusEvent struct {
	ID        string
	TicketID  string
	Status    RequestStatus
	ChangedBy UserRef
	ChangedAt time.Time
}

// NewStatusEvent mirrors a state event for the given request.
func NewStatusEvent(id, ticketID string, ev StateEvent) StatusEvent {
	return StatusEvent{
		ID:        id,
		TicketID:  ticketID,
		Status:    ev.To,
		ChangedBy: ev.By,
		ChangedAt: ev.At,
	}
}
