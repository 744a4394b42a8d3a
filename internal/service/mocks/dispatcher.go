package mocks

import (
	"context"
	"sync"

	"github.com/spec-kit/request-tracker/internal/events"
)

// RecordingDispatcher keeps every published event.
type RecordingDispatcher struct {
	mu        sync.Mutex
	Published []events.Event
}

// Publish implements events.Dispatcher.
func (d *RecordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Published = append(d.Published, event)
	return nil
}

// Subscribe implements events.Dispatcher.
func (d *RecordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

// Types lists published event types in order.
func (d *RecordingDispatcher) Types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.Published))
	for _, e := range d.Published {
		types = append(types, e.Type)
	}
	return types
}
