package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
)

type recorder struct {
	domainEvents []string
	transitions  [][2]string
}

func (r *recorder) RecordDomainEvent(eventType string) {
	r.domainEvents = append(r.domainEvents, eventType)
}

func (r *recorder) RecordTransition(from, to string) {
	r.transitions = append(r.transitions, [2]string{from, to})
}

func TestActivityServiceCountsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	rec := &recorder{}
	NewActivityService(dispatcher, rec, nil).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventRequestTransitioned,
		TicketID: "r1",
		Payload: events.RequestTransitionedPayload{
			OldStatus: domain.StatusFinalized,
			NewStatus: domain.StatusInProgress,
			Reopened:  true,
		},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventWorklogRecorded, TicketID: "r1"}))

	assert.Equal(t, []string{"request_status_changed", "worklog_recorded"}, rec.domainEvents)
	assert.Equal(t, [][2]string{{"Finalized", "InProgress"}}, rec.transitions)
}
