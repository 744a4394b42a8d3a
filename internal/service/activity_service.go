package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/events"
)

// ActivityRecorder receives counters for published domain events.
type ActivityRecorder interface {
	RecordDomainEvent(eventType string)
	RecordTransition(from, to string)
}

// ActivityService subscribes to domain events and turns them into activity
// logs and counters.
type ActivityService struct {
	dispatcher events.Dispatcher
	recorder   ActivityRecorder
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, recorder ActivityRecorder, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handleEvent)
	}
	a.dispatcher.Subscribe(events.EventRequestTransitioned, a.handleTransition)
}

func (a *ActivityService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info("request activity",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID),
		zap.Any("payload", event.Payload))
	if a.recorder != nil {
		a.recorder.RecordDomainEvent(string(event.Type))
	}
	return nil
}

func (a *ActivityService) handleTransition(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestTransitionedPayload)
	if !ok {
		return nil
	}
	if a.recorder != nil {
		a.recorder.RecordTransition(string(payload.OldStatus), string(payload.NewStatus))
	}
	if payload.Reopened {
		a.logger.Info("request reopened",
			zap.String("ticket_id", event.TicketID),
			zap.String("to_status", string(payload.NewStatus)))
	}
	return nil
}
