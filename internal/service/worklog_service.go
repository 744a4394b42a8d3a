package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

const logDateLayout = "2006-01-02"

// WorklogService appends and reads the time ledger. Entries are immutable.
type WorklogService struct {
	worklogs   repository.WorklogRepository
	requests   repository.RequestRepository
	dispatcher events.Dispatcher
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// WorklogDependencies bundles collaborators for the worklog service.
type WorklogDependencies struct {
	WorklogRepo repository.WorklogRepository
	RequestRepo repository.RequestRepository
	Dispatcher  events.Dispatcher
	Location    *time.Location
	Now         func() time.Time
	Logger      *zap.Logger
}

// WorklogInput is one time entry.
type WorklogInput struct {
	Hours float64
	Note  string
}

// NewWorklogService constructs the service.
func NewWorklogService(deps WorklogDependencies) *WorklogService {
	svc := &WorklogService{
		worklogs:   deps.WorklogRepo,
		requests:   deps.RequestRepo,
		dispatcher: deps.Dispatcher,
		location:   deps.Location,
		now:        deps.Now,
		logger:     deps.Logger,
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Record appends an entry dated today in the reference timezone.
func (s *WorklogService) Record(ctx context.Context, actor domain.Actor, ticketID string, input WorklogInput) (*domain.Worklog, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only support staff can log time")
	}
	if !(input.Hours > 0) || math.IsInf(input.Hours, 1) {
		return nil, apperrors.NewValidationError("hours must be greater than zero", map[string]any{"hours": input.Hours})
	}
	if _, err := s.loadRequest(ctx, ticketID); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &domain.Worklog{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Date:      calendarDate(now, s.location),
		Hours:     input.Hours,
		CreatedAt: now,
	}
	if note := strings.TrimSpace(input.Note); note != "" {
		entry.Note = &note
	}
	if err := s.worklogs.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventWorklogRecorded,
		TicketID: ticketID,
		Actor:    actor.Ref(),
		Payload: events.WorklogRecordedPayload{
			WorklogID: entry.ID,
			UserID:    entry.UserID,
			Hours:     entry.Hours,
			Date:      entry.Date.Format(logDateLayout),
		},
	})
	return entry, nil
}

// ListByTicket returns a request's entries, newest first. Visible to staff,
// the requester and the assignee.
func (s *WorklogService) ListByTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.WorklogListing, error) {
	req, err := s.loadRequest(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && req.Requester.ID != actor.ID && !req.IsAssignedTo(actor.ID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.worklogs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sortNewestFirst(entries)
	return &domain.WorklogListing{Entries: nonNilWorklogs(entries), TotalHours: sumHours(entries)}, nil
}

// ListMine returns the actor's entries between optional inclusive dates with
// per-day totals.
func (s *WorklogService) ListMine(ctx context.Context, actor domain.Actor, from, to *time.Time) (*domain.WorklogListing, error) {
	filter := repository.WorklogFilter{UserID: actor.ID}
	if from != nil {
		d := calendarDate(*from, s.location)
		filter.FromDate = &d
	}
	if to != nil {
		d := calendarDate(*to, s.location)
		filter.ToDate = &d
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, apperrors.NewValidationError("from must not be after to", nil)
	}

	entries, err := s.worklogs.ListByUser(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sortNewestFirst(entries)

	byDay := make(map[string]float64)
	for _, e := range entries {
		byDay[e.Date.Format(logDateLayout)] += e.Hours
	}
	days := make([]domain.DayHours, 0, len(byDay))
	for day, hours := range byDay {
		days = append(days, domain.DayHours{Date: day, Hours: round2(hours)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })

	return &domain.WorklogListing{
		Entries:    nonNilWorklogs(entries),
		ByDay:      days,
		TotalHours: sumHours(entries),
	}, nil
}

func (s *WorklogService) loadRequest(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func sortNewestFirst(entries []domain.Worklog) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func sumHours(entries []domain.Worklog) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return round2(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNilWorklogs(entries []domain.Worklog) []domain.Worklog {
	if entries == nil {
		return []domain.Worklog{}
	}
	return entries
}
