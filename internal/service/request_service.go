package service

import (
	"context"
	"errors"
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

const evidenceTypeLink = "link"

// RequestService owns the request lifecycle: creation, the status state
// machine, classification, assignment and feedback.
type RequestService struct {
	requests   repository.RequestRepository
	users      repository.UserDirectory
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo   repository.RequestRepository
	UserDirectory repository.UserDirectory
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Now           func() time.Time
}

// RequestCreateInput describes a new request. Level, estimates and assignee
// are honoured only for admins.
type RequestCreateInput struct {
	Title          string
	Description    string
	Priority       string
	Type           string
	Channel        string
	RequestedAt    *time.Time
	Level          *int
	AssigneeID     *string
	EstimatedHours *float64
	EstimatedDue   *time.Time
}

// RequestListFilter describes listing filters. Sort is a column name,
// optionally prefixed with "-" for descending order.
type RequestListFilter struct {
	Statuses      []domain.RequestStatus
	Department    *string
	Type          *domain.RequestType
	Level         *int
	AssigneeID    *string
	Channel       *domain.Channel
	RequestedFrom *time.Time
	RequestedTo   *time.Time
	SearchTerm    *string
	Sort          string
	Limit         int
	Offset        int
}

// TransitionInput requests a status change.
type TransitionInput struct {
	To           domain.RequestStatus
	Comment      string
	EvidenceLink string
}

// ClassifyInput sets support level and priority.
type ClassifyInput struct {
	Level    *int
	Priority string
}

// AssignInput targets a technician with optional estimates.
type AssignInput struct {
	AssigneeID     string
	EstimatedHours *float64
	EstimatedDue   *time.Time
}

// FeedbackInput is the requester's rating of a finalized request.
type FeedbackInput struct {
	Rating  string
	Comment string
}

// ReopenInput sends a finalized request back into work. To defaults to
// InProgress.
type ReopenInput struct {
	To           *domain.RequestStatus
	Comment      string
	EvidenceLink string
}

// RequestUpdateInput is the generic partial update. A status that differs
// from the current one goes through the same transition rules as Transition.
// An empty AssigneeID clears the assignment.
type RequestUpdateInput struct {
	Status         *domain.RequestStatus
	Comment        string
	EvidenceLink   string
	AssigneeID     *string
	EstimatedHours *float64
	EstimatedDue   *time.Time
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	svc := &RequestService{
		requests:   deps.RequestRepo,
		users:      deps.UserDirectory,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Create opens a new request in Pending on behalf of actor.
func (s *RequestService) Create(ctx context.Context, actor domain.Actor, input RequestCreateInput) (*domain.Request, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	priority := domain.PriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		p, ok := domain.ParsePriority(input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		priority = p
	}
	requestType := domain.TypeSupport
	if strings.TrimSpace(input.Type) != "" {
		t, ok := domain.ParseRequestType(input.Type)
		if !ok {
			return nil, apperrors.NewValidationError("invalid type", map[string]any{"type": input.Type})
		}
		requestType = t
	}
	channel := domain.ChannelSystem
	if strings.TrimSpace(input.Channel) != "" {
		c, ok := domain.ParseChannel(input.Channel)
		if !ok {
			return nil, apperrors.NewValidationError("invalid channel", map[string]any{"channel": input.Channel})
		}
		channel = c
	}

	now := s.now()
	req := &domain.Request{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Type:        requestType,
		Channel:     channel,
		Status:      domain.StatusPending,
		Requester:   actor.Ref(),
		Department:  actor.Department,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
		StateHistory: []domain.StateEvent{{
			From: nil,
			To:   domain.StatusPending,
			At:   now,
			By:   actor.Ref(),
		}},
	}
	if input.RequestedAt != nil {
		req.RequestedAt = *input.RequestedAt
	}

	if actor.IsAdmin() {
		if input.Level != nil {
			if !domain.ValidLevel(*input.Level) {
				return nil, apperrors.NewValidationError("level must be 1, 2 or 3", map[string]any{"level": *input.Level})
			}
			level := *input.Level
			req.Level = &level
		}
		if input.EstimatedHours != nil && *input.EstimatedHours < 0 {
			return nil, apperrors.NewValidationError("estimated_hours must not be negative", nil)
		}
		req.EstimatedHours = input.EstimatedHours
		req.EstimatedDue = input.EstimatedDue
		if input.AssigneeID != nil && strings.TrimSpace(*input.AssigneeID) != "" {
			target, err := s.lookupUser(ctx, strings.TrimSpace(*input.AssigneeID))
			if err != nil {
				return nil, err
			}
			assignee := target.Ref()
			assigner := actor.Ref()
			req.Assignee = &assignee
			req.AssignedBy = &assigner
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestCreated,
		TicketID: req.ID,
		Actor:    actor.Ref(),
		Payload: events.RequestCreatedPayload{
			Title:      req.Title,
			Department: req.Department,
			Priority:   req.Priority,
			Type:       req.Type,
			Channel:    req.Channel,
			Assignee:   req.Assignee,
			Status:     req.Status,
		},
	})
	return req, nil
}

// Get returns a request. Employees may only read their own.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, req) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return req, nil
}

// History returns the embedded state history of a request.
func (s *RequestService) History(ctx context.Context, actor domain.Actor, id string) ([]domain.StateEvent, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return req.StateHistory, nil
}

// List returns requests visible to actor. Employees are scoped to requests
// they submitted.
func (s *RequestService) List(ctx context.Context, actor domain.Actor, filter RequestListFilter) ([]domain.Request, error) {
	sortField, desc, err := parseSort(filter.Sort)
	if err != nil {
		return nil, err
	}
	repoFilter := repository.RequestFilter{
		AssigneeID:    filter.AssigneeID,
		Department:    filter.Department,
		Statuses:      filter.Statuses,
		Type:          filter.Type,
		Level:         filter.Level,
		Channel:       filter.Channel,
		RequestedFrom: filter.RequestedFrom,
		RequestedTo:   filter.RequestedTo,
		SearchTerm:    filter.SearchTerm,
		SortField:     sortField,
		SortDesc:      desc,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	if !actor.IsStaff() {
		requesterID := actor.ID
		repoFilter.RequesterID = &requesterID
	}
	requests, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if requests == nil {
		requests = []domain.Request{}
	}
	return requests, nil
}

func parseSort(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "created_at", true, nil
	}
	desc := strings.HasPrefix(raw, "-")
	field := strings.TrimPrefix(raw, "-")
	if !repository.SortableRequestFields[field] {
		return "", false, apperrors.NewValidationError("unsupported sort field", map[string]any{"sort": raw})
	}
	return field, desc, nil
}

// Transition moves a request along the workflow table.
func (s *RequestService) Transition(ctx context.Context, actor domain.Actor, id string, input TransitionInput) (*domain.Request, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only support staff can change status")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	change, err := s.applyTransition(next, input.To, actor, transitionOptions{
		comment:      input.Comment,
		evidenceLink: input.EvidenceLink,
	})
	if err != nil {
		return nil, err
	}
	stored, err := s.persist(ctx, current, next, change)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, stored.ID, change, input.Comment)
	return stored, nil
}

// Reopen sends a finalized request back into an open state. It is the only
// way out of Finalized and always counts as rework.
func (s *RequestService) Reopen(ctx context.Context, actor domain.Actor, id string, input ReopenInput) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can reopen requests")
	}
	to := domain.StatusInProgress
	if input.To != nil {
		to = *input.To
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatusFinalized {
		return nil, apperrors.NewInvalidState("only finalized requests can be reopened", map[string]any{
			"status": current.Status,
		})
	}
	if !to.IsOpen() {
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(to))
	}
	next := current.Clone()
	change, err := s.applyTransition(next, to, actor, transitionOptions{
		comment:      input.Comment,
		evidenceLink: input.EvidenceLink,
		allowReopen:  true,
	})
	if err != nil {
		return nil, err
	}
	stored, err := s.persist(ctx, current, next, change)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, stored.ID, change, input.Comment)
	return stored, nil
}

// Classify sets level and priority. It never touches status or history.
func (s *RequestService) Classify(ctx context.Context, actor domain.Actor, id string, input ClassifyInput) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can classify requests")
	}
	priority, ok := domain.ParsePriority(input.Priority)
	if !ok {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.Level != nil && !domain.ValidLevel(*input.Level) {
		return nil, apperrors.NewValidationError("level must be 1, 2 or 3", map[string]any{"level": *input.Level})
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	next.Priority = priority
	next.Level = nil
	if input.Level != nil {
		level := *input.Level
		next.Level = &level
	}
	next.UpdatedAt = s.now()

	stored, err := s.persist(ctx, current, next, nil)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestClassified,
		TicketID: stored.ID,
		Actor:    actor.Ref(),
		Payload:  events.RequestClassifiedPayload{Level: stored.Level, Priority: stored.Priority},
	})
	return stored, nil
}

// Assign sets the assignee. A target is always required; there is no
// implicit self-assignment.
func (s *RequestService) Assign(ctx context.Context, actor domain.Actor, id string, input AssignInput) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can assign requests")
	}
	targetID := strings.TrimSpace(input.AssigneeID)
	if targetID == "" {
		return nil, apperrors.NewValidationError("assigned_to is required", nil)
	}
	if input.EstimatedHours != nil && *input.EstimatedHours < 0 {
		return nil, apperrors.NewValidationError("estimated_hours must not be negative", nil)
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	target, err := s.lookupUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	assignTo(next, target.Ref(), actor.Ref())
	next.EstimatedHours = input.EstimatedHours
	next.EstimatedDue = input.EstimatedDue
	next.UpdatedAt = s.now()

	stored, err := s.persist(ctx, current, next, nil)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestAssigned,
		TicketID: stored.ID,
		Actor:    actor.Ref(),
		Payload: events.RequestAssignedPayload{
			Assignee:       *stored.Assignee,
			EstimatedHours: stored.EstimatedHours,
			EstimatedDue:   stored.EstimatedDue,
		},
	})
	return stored, nil
}

// Unassign clears assignee, assigner and estimates.
func (s *RequestService) Unassign(ctx context.Context, actor domain.Actor, id string) (*domain.Request, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can unassign requests")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	clearAssignment(next)
	next.UpdatedAt = s.now()

	stored, err := s.persist(ctx, current, next, nil)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestUnassigned,
		TicketID: stored.ID,
		Actor:    actor.Ref(),
		Payload:  events.RequestUnassignedPayload{PreviousAssignee: current.Assignee},
	})
	return stored, nil
}

// SubmitFeedback records the requester's rating once the request is finalized.
func (s *RequestService) SubmitFeedback(ctx context.Context, actor domain.Actor, id string, input FeedbackInput) (*domain.Request, error) {
	rating, ok := domain.ParseRating(input.Rating)
	if !ok {
		return nil, apperrors.NewValidationError("rating must be up or down", map[string]any{"rating": input.Rating})
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Requester.ID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only the requester can rate this request")
	}
	if current.Status != domain.StatusFinalized {
		return nil, apperrors.NewInvalidState("feedback is only accepted on finalized requests", map[string]any{
			"status": current.Status,
		})
	}
	if current.Feedback != nil {
		return nil, apperrors.NewConflict("feedback already submitted", map[string]any{"request_id": current.ID})
	}

	now := s.now()
	next := current.Clone()
	next.Feedback = &domain.Feedback{
		Rating:  rating,
		Comment: strings.TrimSpace(input.Comment),
		By:      actor.Ref(),
		At:      now,
	}
	next.UpdatedAt = now

	stored, err := s.persist(ctx, current, next, nil)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestFeedbackAdded,
		TicketID: stored.ID,
		Actor:    actor.Ref(),
		Payload:  events.FeedbackSubmittedPayload{Rating: rating},
	})
	return stored, nil
}

// Update applies the generic partial update used by older clients.
func (s *RequestService) Update(ctx context.Context, actor domain.Actor, id string, input RequestUpdateInput) (*domain.Request, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("only support staff can update requests")
	}
	touchesAssignment := input.AssigneeID != nil || input.EstimatedHours != nil || input.EstimatedDue != nil
	if input.Status == nil && !touchesAssignment {
		return nil, apperrors.NewValidationError("no changes supplied", nil)
	}
	if touchesAssignment && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins can change assignment")
	}
	if input.EstimatedHours != nil && *input.EstimatedHours < 0 {
		return nil, apperrors.NewValidationError("estimated_hours must not be negative", nil)
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()

	var change *statusChange
	if input.Status != nil && *input.Status != current.Status {
		change, err = s.applyTransition(next, *input.Status, actor, transitionOptions{
			comment:      input.Comment,
			evidenceLink: input.EvidenceLink,
		})
		if err != nil {
			return nil, err
		}
	}

	var assigned *domain.UserRef
	if input.AssigneeID != nil {
		targetID := strings.TrimSpace(*input.AssigneeID)
		if targetID == "" {
			clearAssignment(next)
		} else {
			target, err := s.lookupUser(ctx, targetID)
			if err != nil {
				return nil, err
			}
			ref := target.Ref()
			assignTo(next, ref, actor.Ref())
			assigned = &ref
		}
	}
	if input.EstimatedHours != nil {
		next.EstimatedHours = input.EstimatedHours
	}
	if input.EstimatedDue != nil {
		next.EstimatedDue = input.EstimatedDue
	}
	next.UpdatedAt = s.now()

	stored, err := s.persist(ctx, current, next, change)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, actor, stored.ID, change, input.Comment)
	if assigned != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventRequestAssigned,
			TicketID: stored.ID,
			Actor:    actor.Ref(),
			Payload: events.RequestAssignedPayload{
				Assignee:       *assigned,
				EstimatedHours: stored.EstimatedHours,
				EstimatedDue:   stored.EstimatedDue,
			},
		})
	}
	return stored, nil
}

type transitionOptions struct {
	comment      string
	evidenceLink string
	allowReopen  bool
}

type statusChange struct {
	event  domain.StateEvent
	from   domain.RequestStatus
	to     domain.RequestStatus
	reopen bool
}

// applyTransition validates and applies a status change to req in memory.
// Every status write goes through here. On error req may be partially
// modified and must be discarded.
func (s *RequestService) applyTransition(req *domain.Request, to domain.RequestStatus, actor domain.Actor, opts transitionOptions) (*statusChange, error) {
	from := req.Status
	if !to.IsValid() {
		return nil, apperrors.NewInvalidTransition(string(from), string(to))
	}
	allowed := domain.CanTransition(from, to) || (opts.allowReopen && domain.IsReopen(from, to))
	if !allowed {
		return nil, apperrors.NewInvalidTransition(string(from), string(to))
	}

	comment := strings.TrimSpace(opts.comment)
	evidence := strings.TrimSpace(opts.evidenceLink)
	switch to {
	case domain.StatusRejected:
		if comment == "" {
			return nil, apperrors.NewValidationError("a comment is required to reject a request", nil)
		}
	case domain.StatusInReview:
		if evidence == "" {
			return nil, apperrors.NewValidationError("an evidence link is required to move to review", nil)
		}
		if !actor.IsAdmin() && !req.IsAssignedTo(actor.ID) && !req.WasAssignedBy(actor.ID) {
			return nil, apperrors.NewForbidden("only the assignee, the assigner or an admin can move to review")
		}
	}

	now := s.now()
	req.Status = to
	req.UpdatedAt = now
	if to.IsTerminal() {
		completed := now
		req.CompletionDate = &completed
	} else {
		req.CompletionDate = nil
	}
	if to == domain.StatusRejected {
		req.RejectionReason = &comment
	}
	if to == domain.StatusInReview {
		req.ReviewEvidence = &domain.ReviewEvidence{
			Type: evidenceTypeLink,
			URL:  evidence,
			By:   actor.Ref(),
			At:   now,
		}
	}

	prev := from
	event := domain.StateEvent{From: &prev, To: to, At: now, By: actor.Ref()}
	req.StateHistory = append(req.StateHistory, event)
	reopen := domain.IsReopen(from, to)
	if reopen {
		req.ReopenCount++
	}
	return &statusChange{event: event, from: from, to: to, reopen: reopen}, nil
}

func (s *RequestService) persist(ctx context.Context, current, next *domain.Request, change *statusChange) (*domain.Request, error) {
	update := repository.RequestUpdate{Request: next, ExpectedVersion: current.Version}
	if change != nil {
		event := change.event
		update.AppendEvent = &event
		update.IncrementReopen = change.reopen
	}
	stored, err := s.requests.Apply(ctx, update)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("request was modified concurrently; retry", map[string]any{
				"request_id": current.ID,
			})
		}
		return nil, apperrors.MapError(err)
	}
	return stored, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *RequestService) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func canRead(actor domain.Actor, req *domain.Request) bool {
	return actor.IsStaff() || req.Requester.ID == actor.ID
}

func assignTo(req *domain.Request, assignee, assigner domain.UserRef) {
	req.Assignee = &assignee
	req.AssignedBy = &assigner
}

func clearAssignment(req *domain.Request) {
	req.Assignee = nil
	req.AssignedBy = nil
	req.EstimatedHours = nil
	req.EstimatedDue = nil
}

func (s *RequestService) publishTransition(ctx context.Context, actor domain.Actor, requestID string, change *statusChange, comment string) {
	if change == nil {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestTransitioned,
		TicketID: requestID,
		Actor:    actor.Ref(),
		Payload: events.RequestTransitionedPayload{
			OldStatus: change.from,
			NewStatus: change.to,
			Comment:   strings.TrimSpace(comment),
			Reopened:  change.reopen,
		},
	})
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.now, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}
