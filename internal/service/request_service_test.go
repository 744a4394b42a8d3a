package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/service/mocks"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

var (
	t0 = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	adminActor    = domain.Actor{ID: "admin-1", Name: "Ada Admin", Role: domain.RoleAdmin}
	techActor     = domain.Actor{ID: "tech-1", Name: "Tom Tech", Role: domain.RoleSupport}
	otherTech     = domain.Actor{ID: "tech-2", Name: "Olga Other", Role: domain.RoleSupport}
	employeeActor = domain.Actor{ID: "emp-1", Name: "Eve Employee", Role: domain.RoleEmployee, Department: "Finance"}
)

type requestFixture struct {
	svc        *RequestService
	store      *mocks.RequestStore
	dispatcher *mocks.RecordingDispatcher
	now        time.Time
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	f := &requestFixture{
		store:      mocks.NewRequestStore(),
		dispatcher: &mocks.RecordingDispatcher{},
		now:        t0,
	}
	users := mocks.NewUserDirectory(
		&domain.User{ID: adminActor.ID, FullName: adminActor.Name, Role: domain.RoleAdmin},
		&domain.User{ID: techActor.ID, FullName: techActor.Name, Role: domain.RoleSupport},
		&domain.User{ID: otherTech.ID, FullName: otherTech.Name, Role: domain.RoleSupport},
	)
	f.svc = NewRequestService(RequestDependencies{
		RequestRepo:   f.store,
		UserDirectory: users,
		Dispatcher:    f.dispatcher,
		Now:           func() time.Time { return f.now },
	})
	return f
}

func (f *requestFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// seed stores a request in status, assigned to techActor by adminActor.
func (f *requestFixture) seed(id string, status domain.RequestStatus) *domain.Request {
	assignee := techActor.Ref()
	assigner := adminActor.Ref()
	req := &domain.Request{
		ID:          id,
		Title:       "Automate invoices",
		Description: "Export nightly",
		Priority:    domain.PriorityMedium,
		Type:        domain.TypeDevelopment,
		Channel:     domain.ChannelEmail,
		Status:      status,
		Requester:   employeeActor.Ref(),
		Department:  employeeActor.Department,
		Assignee:    &assignee,
		AssignedBy:  &assigner,
		RequestedAt: t0.Add(-time.Hour),
		CreatedAt:   t0.Add(-time.Hour),
		UpdatedAt:   t0.Add(-time.Hour),
		StateHistory: []domain.StateEvent{{
			To: status,
			At: t0.Add(-time.Hour),
			By: employeeActor.Ref(),
		}},
	}
	if status.IsTerminal() {
		done := t0.Add(-30 * time.Minute)
		req.CompletionDate = &done
	}
	f.store.Put(req)
	return req
}

func (f *requestFixture) get(t *testing.T, id string) *domain.Request {
	t.Helper()
	req, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func TestTransitionTable(t *testing.T) {
	ctx := context.Background()
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			from, to := from, to
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				f := newRequestFixture(t)
				f.seed("r1", from)
				before := f.get(t, "r1")

				updated, err := f.svc.Transition(ctx, adminActor, "r1", TransitionInput{
					To:           to,
					Comment:      "reason",
					EvidenceLink: "https://evidence.example/1",
				})

				if !domain.CanTransition(from, to) {
					require.Error(t, err)
					assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition), "got %v", err)
					assert.Equal(t, before, f.get(t, "r1"))
					assert.Empty(t, f.store.Events())
					assert.Empty(t, f.dispatcher.Published)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, to, updated.Status)
				require.Len(t, updated.StateHistory, len(before.StateHistory)+1)
				last := updated.StateHistory[len(updated.StateHistory)-1]
				require.NotNil(t, last.From)
				assert.Equal(t, from, *last.From)
				assert.Equal(t, to, last.To)
				assert.Equal(t, adminActor.Ref(), last.By)

				logged := f.store.Events()
				require.Len(t, logged, 1)
				assert.Equal(t, "r1", logged[0].TicketID)
				assert.Equal(t, to, logged[0].Status)

				assert.Equal(t, to.IsTerminal(), updated.CompletionDate != nil)
				assert.Equal(t, before.Version+1, updated.Version)
				assert.Equal(t, []events.EventType{events.EventRequestTransitioned}, f.dispatcher.Types())
			})
		}
	}
}

func TestTransitionRejectRequiresComment(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusPending)

	_, err := f.svc.Transition(ctx, techActor, "r1", TransitionInput{To: domain.StatusRejected, Comment: "   "})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	assert.Equal(t, domain.StatusPending, f.get(t, "r1").Status)

	updated, err := f.svc.Transition(ctx, techActor, "r1", TransitionInput{To: domain.StatusRejected, Comment: "  duplicate of r0 "})
	require.NoError(t, err)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, "duplicate of r0", *updated.RejectionReason)
	require.NotNil(t, updated.CompletionDate)
	assert.True(t, t0.Equal(*updated.CompletionDate))
}

func TestTransitionToReviewRules(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusInProgress)

	_, err := f.svc.Transition(ctx, techActor, "r1", TransitionInput{To: domain.StatusInReview})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Transition(ctx, otherTech, "r1", TransitionInput{To: domain.StatusInReview, EvidenceLink: "https://x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	assert.Empty(t, f.store.Events())

	updated, err := f.svc.Transition(ctx, techActor, "r1", TransitionInput{
		To:           domain.StatusInReview,
		EvidenceLink: "  https://evidence.example/pr/7  ",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ReviewEvidence)
	assert.Equal(t, "https://evidence.example/pr/7", updated.ReviewEvidence.URL)
	assert.Equal(t, techActor.Ref(), updated.ReviewEvidence.By)
	assert.Nil(t, updated.CompletionDate)
}

func TestTransitionRequiresStaff(t *testing.T) {
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusPending)

	_, err := f.svc.Transition(context.Background(), employeeActor, "r1", TransitionInput{To: domain.StatusInProgress})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestTransitionUnknownRequest(t *testing.T) {
	f := newRequestFixture(t)
	_, err := f.svc.Transition(context.Background(), adminActor, "missing", TransitionInput{To: domain.StatusInProgress})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestReopenIncrementsReworkOncePerReopen(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusFinalized)

	_, err := f.svc.Transition(ctx, adminActor, "r1", TransitionInput{To: domain.StatusInProgress})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))

	_, err = f.svc.Reopen(ctx, techActor, "r1", ReopenInput{})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	reopened, err := f.svc.Reopen(ctx, adminActor, "r1", ReopenInput{Comment: "still broken"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenCount)
	assert.Nil(t, reopened.CompletionDate)

	f.advance(time.Hour)
	_, err = f.svc.Transition(ctx, techActor, "r1", TransitionInput{To: domain.StatusInReview, EvidenceLink: "https://x"})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, adminActor, "r1", TransitionInput{To: domain.StatusFinalized})
	require.NoError(t, err)

	_, err = f.svc.Reopen(ctx, adminActor, "r1", ReopenInput{})
	require.NoError(t, err)

	final := f.get(t, "r1")
	assert.Equal(t, 2, final.ReopenCount)
	assert.Len(t, final.StateHistory, 5)
	assert.Len(t, f.store.Events(), 4)

	_, err = f.svc.Reopen(ctx, adminActor, "r1", ReopenInput{})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))
}

func TestReopenRejectsNonOpenTarget(t *testing.T) {
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusFinalized)
	rejected := domain.StatusRejected

	_, err := f.svc.Reopen(context.Background(), adminActor, "r1", ReopenInput{To: &rejected, Comment: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))
	assert.Equal(t, 0, f.get(t, "r1").ReopenCount)
}

func TestConcurrentWriteSurfacesConflict(t *testing.T) {
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusPending)
	f.store.BeforeApply = func(id string) { f.store.Bump(id) }

	_, err := f.svc.Transition(context.Background(), adminActor, "r1", TransitionInput{To: domain.StatusInProgress})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	assert.Equal(t, domain.StatusPending, f.get(t, "r1").Status)
	assert.Empty(t, f.store.Events())
	assert.Empty(t, f.dispatcher.Published)
}

func TestSubmitFeedback(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("open", domain.StatusInProgress)
	f.seed("done", domain.StatusFinalized)

	_, err := f.svc.SubmitFeedback(ctx, employeeActor, "open", FeedbackInput{Rating: "up"})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidState))

	_, err = f.svc.SubmitFeedback(ctx, techActor, "done", FeedbackInput{Rating: "up"})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.svc.SubmitFeedback(ctx, employeeActor, "done", FeedbackInput{Rating: "meh"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	rated, err := f.svc.SubmitFeedback(ctx, employeeActor, "done", FeedbackInput{Rating: "UP", Comment: " great "})
	require.NoError(t, err)
	require.NotNil(t, rated.Feedback)
	assert.Equal(t, domain.RatingUp, rated.Feedback.Rating)
	assert.Equal(t, "great", rated.Feedback.Comment)
	assert.Equal(t, employeeActor.Ref(), rated.Feedback.By)

	_, err = f.svc.SubmitFeedback(ctx, employeeActor, "done", FeedbackInput{Rating: "down"})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	assert.Equal(t, domain.RatingUp, f.get(t, "done").Feedback.Rating)
}

func TestAssignAndUnassign(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusPending)

	_, err := f.svc.Assign(ctx, techActor, "r1", AssignInput{AssigneeID: otherTech.ID})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.svc.Assign(ctx, adminActor, "r1", AssignInput{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Assign(ctx, adminActor, "r1", AssignInput{AssigneeID: "ghost"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	hours := 6.5
	due := t0.Add(72 * time.Hour)
	assigned, err := f.svc.Assign(ctx, adminActor, "r1", AssignInput{AssigneeID: otherTech.ID, EstimatedHours: &hours, EstimatedDue: &due})
	require.NoError(t, err)
	assert.Equal(t, otherTech.Ref(), *assigned.Assignee)
	assert.Equal(t, adminActor.Ref(), *assigned.AssignedBy)
	assert.Equal(t, hours, *assigned.EstimatedHours)
	assert.Len(t, assigned.StateHistory, 1)
	assert.Empty(t, f.store.Events())

	unassigned, err := f.svc.Unassign(ctx, adminActor, "r1")
	require.NoError(t, err)
	assert.Nil(t, unassigned.Assignee)
	assert.Nil(t, unassigned.AssignedBy)
	assert.Nil(t, unassigned.EstimatedHours)
	assert.Nil(t, unassigned.EstimatedDue)
	assert.Equal(t, domain.StatusPending, unassigned.Status)

	assert.Equal(t, []events.EventType{events.EventRequestAssigned, events.EventRequestUnassigned}, f.dispatcher.Types())
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("r1", domain.StatusInProgress)
	level := 2

	_, err := f.svc.Classify(ctx, techActor, "r1", ClassifyInput{Level: &level, Priority: "High"})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	bad := 4
	_, err = f.svc.Classify(ctx, adminActor, "r1", ClassifyInput{Level: &bad, Priority: "High"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Classify(ctx, adminActor, "r1", ClassifyInput{Level: &level, Priority: "urgent"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	classified, err := f.svc.Classify(ctx, adminActor, "r1", ClassifyInput{Level: &level, Priority: "alta"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, classified.Priority)
	assert.Equal(t, 2, *classified.Level)
	assert.Equal(t, domain.StatusInProgress, classified.Status)
	assert.Len(t, classified.StateHistory, 1)
	assert.Empty(t, f.store.Events())
}

func TestUpdateSharesTransitionRules(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("done", domain.StatusFinalized)
	f.seed("wip", domain.StatusInProgress)

	inProgress := domain.StatusInProgress
	_, err := f.svc.Update(ctx, adminActor, "done", RequestUpdateInput{Status: &inProgress})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))
	assert.Equal(t, 0, f.get(t, "done").ReopenCount)

	review := domain.StatusInReview
	_, err = f.svc.Update(ctx, techActor, "wip", RequestUpdateInput{Status: &review})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	target := otherTech.ID
	_, err = f.svc.Update(ctx, techActor, "wip", RequestUpdateInput{AssigneeID: &target})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = f.svc.Update(ctx, techActor, "wip", RequestUpdateInput{})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	updated, err := f.svc.Update(ctx, adminActor, "wip", RequestUpdateInput{
		Status:       &review,
		EvidenceLink: "https://x",
		AssigneeID:   &target,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, updated.Status)
	assert.Equal(t, otherTech.Ref(), *updated.Assignee)
	assert.Len(t, updated.StateHistory, 2)
	assert.Len(t, f.store.Events(), 1)

	same := domain.StatusInReview
	hours := 3.0
	updated, err = f.svc.Update(ctx, adminActor, "wip", RequestUpdateInput{Status: &same, EstimatedHours: &hours})
	require.NoError(t, err)
	assert.Len(t, updated.StateHistory, 2)
	assert.Equal(t, 3.0, *updated.EstimatedHours)
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)

	_, err := f.svc.Create(ctx, employeeActor, RequestCreateInput{Title: " ", Description: "x"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = f.svc.Create(ctx, employeeActor, RequestCreateInput{Title: "a", Description: "b", Priority: "critical"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	level := 3
	assignee := techActor.ID
	req, err := f.svc.Create(ctx, employeeActor, RequestCreateInput{
		Title:       " Payroll bot ",
		Description: "Reconcile payroll",
		Type:        "mejora",
		Level:       &level,
		AssigneeID:  &assignee,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "Payroll bot", req.Title)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, domain.PriorityMedium, req.Priority)
	assert.Equal(t, domain.TypeImprovement, req.Type)
	assert.Equal(t, domain.ChannelSystem, req.Channel)
	assert.Equal(t, "Finance", req.Department)
	assert.Equal(t, employeeActor.Ref(), req.Requester)
	assert.Nil(t, req.Level)
	assert.Nil(t, req.Assignee)
	require.Len(t, req.StateHistory, 1)
	assert.Nil(t, req.StateHistory[0].From)
	assert.Equal(t, domain.StatusPending, req.StateHistory[0].To)
	assert.Len(t, f.store.Events(), 1)

	ghost := "ghost"
	_, err = f.svc.Create(ctx, adminActor, RequestCreateInput{Title: "a", Description: "b", AssigneeID: &ghost})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	preset, err := f.svc.Create(ctx, adminActor, RequestCreateInput{
		Title:       "Onboarding",
		Description: "Train team",
		Level:       &level,
		AssigneeID:  &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, *preset.Level)
	assert.Equal(t, techActor.Ref(), *preset.Assignee)
	assert.Equal(t, adminActor.Ref(), *preset.AssignedBy)
}

func TestGetAndListScoping(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	f.seed("mine", domain.StatusPending)
	theirs := f.seed("theirs", domain.StatusPending)
	theirs.Requester = domain.UserRef{ID: "emp-2", Name: "Someone"}
	f.store.Put(theirs)

	_, err := f.svc.Get(ctx, employeeActor, "theirs")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	got, err := f.svc.Get(ctx, employeeActor, "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine", got.ID)

	history, err := f.svc.History(ctx, techActor, "theirs")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	list, err := f.svc.List(ctx, employeeActor, RequestListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].ID)

	list, err = f.svc.List(ctx, techActor, RequestListFilter{Sort: "-priority"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.svc.List(ctx, techActor, RequestListFilter{Sort: "password"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
