package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// RequestStore is an in-memory RequestRepository and StatusEventRepository.
// Apply honours optimistic versioning the way the Postgres implementation
// does: the write lands only when the stored version matches.
type RequestStore struct {
	mu       sync.Mutex
	requests map[string]*domain.Request
	events   []domain.StatusEvent

	// BeforeApply runs inside Apply before the version check. Tests use it
	// to simulate a concurrent writer.
	BeforeApply func(id string)
	ApplyErr    error
}

// NewRequestStore creates an empty store.
func NewRequestStore() *RequestStore {
	return &RequestStore{requests: make(map[string]*domain.Request)}
}

// Create implements repository.RequestRepository.
func (s *RequestStore) Create(_ context.Context, req *domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.Version = 1
	s.requests[req.ID] = req.Clone()
	for _, ev := range req.StateHistory {
		s.events = append(s.events, domain.NewStatusEvent(uuid.NewString(), req.ID, ev))
	}
	return nil
}

// Put stores req as-is, bypassing the event log. Tests use it to seed state.
func (s *RequestStore) Put(req *domain.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Version == 0 {
		req.Version = 1
	}
	s.requests[req.ID] = req.Clone()
}

// GetByID implements repository.RequestRepository.
func (s *RequestStore) GetByID(_ context.Context, id string) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return req.Clone(), nil
}

// List implements repository.RequestRepository for the requester, assignee
// and status filters.
func (s *RequestStore) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Request
	for _, req := range s.requests {
		if filter.RequesterID != nil && req.Requester.ID != *filter.RequesterID {
			continue
		}
		if filter.AssigneeID != nil && !req.IsAssignedTo(*filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
			continue
		}
		result = append(result, *req.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.SortDesc {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func containsStatus(statuses []domain.RequestStatus, status domain.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Apply implements repository.RequestRepository.
func (s *RequestStore) Apply(_ context.Context, update repository.RequestUpdate) (*domain.Request, error) {
	if s.BeforeApply != nil {
		s.BeforeApply(update.Request.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ApplyErr != nil {
		return nil, s.ApplyErr
	}
	stored, ok := s.requests[update.Request.ID]
	if !ok || stored.Version != update.ExpectedVersion {
		return nil, repository.ErrVersionConflict
	}

	next := update.Request.Clone()
	next.StateHistory = append([]domain.StateEvent(nil), stored.StateHistory...)
	next.ReopenCount = stored.ReopenCount
	if update.AppendEvent != nil {
		next.StateHistory = append(next.StateHistory, *update.AppendEvent)
		s.events = append(s.events, domain.NewStatusEvent(uuid.NewString(), next.ID, *update.AppendEvent))
	}
	if update.IncrementReopen {
		next.ReopenCount++
	}
	next.Version = stored.Version + 1
	s.requests[next.ID] = next
	return next.Clone(), nil
}

// Bump increments the stored version without other changes.
func (s *RequestStore) Bump(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[id]; ok {
		req.Version++
	}
}

// AddEvents appends raw event log records.
func (s *RequestStore) AddEvents(events ...domain.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

// Events returns a copy of the event log.
func (s *RequestStore) Events() []domain.StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StatusEvent(nil), s.events...)
}

// ListByTicket implements repository.StatusEventRepository.
func (s *RequestStore) ListByTicket(_ context.Context, ticketID string) ([]domain.StatusEvent, error) {
	var result []domain.StatusEvent
	for _, ev := range s.Events() {
		if ev.TicketID == ticketID {
			result = append(result, ev)
		}
	}
	return result, nil
}

// ListBefore implements repository.StatusEventRepository.
func (s *RequestStore) ListBefore(_ context.Context, end time.Time) ([]domain.StatusEvent, error) {
	var result []domain.StatusEvent
	for _, ev := range s.Events() {
		if ev.ChangedAt.Before(end) {
			result = append(result, ev)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TicketID != result[j].TicketID {
			return result[i].TicketID < result[j].TicketID
		}
		return result[i].ChangedAt.Before(result[j].ChangedAt)
	})
	return result, nil
}
