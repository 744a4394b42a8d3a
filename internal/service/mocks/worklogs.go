package mocks

import (
	"context"
	"sync"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// WorklogStore is an in-memory repository.WorklogRepository.
type WorklogStore struct {
	mu      sync.Mutex
	entries []domain.Worklog
}

// Create implements repository.WorklogRepository.
func (s *WorklogStore) Create(_ context.Context, entry *domain.Worklog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// ListByTicket implements repository.WorklogRepository.
func (s *WorklogStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Worklog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Worklog
	for _, e := range s.entries {
		if e.TicketID == ticketID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ListByUser implements repository.WorklogRepository.
func (s *WorklogStore) ListByUser(_ context.Context, filter repository.WorklogFilter) ([]domain.Worklog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Worklog
	for _, e := range s.entries {
		if e.UserID != filter.UserID {
			continue
		}
		if filter.FromDate != nil && e.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.Date.After(*filter.ToDate) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// Entries returns a copy of everything recorded.
func (s *WorklogStore) Entries() []domain.Worklog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Worklog(nil), s.entries...)
}
