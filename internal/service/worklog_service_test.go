package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/service/mocks"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

type worklogFixture struct {
	svc        *WorklogService
	requests   *mocks.RequestStore
	ledger     *mocks.WorklogStore
	dispatcher *mocks.RecordingDispatcher
	now        time.Time
}

func newWorklogFixture(t *testing.T, loc *time.Location) *worklogFixture {
	t.Helper()
	f := &worklogFixture{
		requests:   mocks.NewRequestStore(),
		ledger:     &mocks.WorklogStore{},
		dispatcher: &mocks.RecordingDispatcher{},
		now:        t0,
	}
	f.svc = NewWorklogService(WorklogDependencies{
		WorklogRepo: f.ledger,
		RequestRepo: f.requests,
		Dispatcher:  f.dispatcher,
		Location:    loc,
		Now:         func() time.Time { return f.now },
	})
	assignee := techActor.Ref()
	f.requests.Put(&domain.Request{
		ID:        "r1",
		Status:    domain.StatusInProgress,
		Requester: employeeActor.Ref(),
		Assignee:  &assignee,
		CreatedAt: t0,
	})
	return f
}

func TestRecordWorklogValidation(t *testing.T) {
	ctx := context.Background()
	f := newWorklogFixture(t, nil)

	for _, hours := range []float64{0, -1.5} {
		_, err := f.svc.Record(ctx, techActor, "r1", WorklogInput{Hours: hours})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "hours %v", hours)
	}

	_, err := f.svc.Record(ctx, techActor, "missing", WorklogInput{Hours: 1})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = f.svc.Record(ctx, employeeActor, "r1", WorklogInput{Hours: 1})
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	assert.Empty(t, f.ledger.Entries())
	assert.Empty(t, f.dispatcher.Published)
}

func TestRecordWorklogDatesInReferenceTimezone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	f := newWorklogFixture(t, loc)
	// 03:00 UTC on the 11th is the 10th at UTC-5.
	f.now = time.Date(2024, 5, 11, 3, 0, 0, 0, time.UTC)

	entry, err := f.svc.Record(context.Background(), techActor, "r1", WorklogInput{Hours: 2.5, Note: "  pairing  "})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", entry.Date.Format("2006-01-02"))
	assert.Equal(t, 2.5, entry.Hours)
	assert.Equal(t, techActor.ID, entry.UserID)
	require.NotNil(t, entry.Note)
	assert.Equal(t, "pairing", *entry.Note)

	require.Len(t, f.ledger.Entries(), 1)
	assert.Equal(t, []events.EventType{events.EventWorklogRecorded}, f.dispatcher.Types())
}

func TestListWorklogsByTicket(t *testing.T) {
	ctx := context.Background()
	f := newWorklogFixture(t, nil)

	_, err := f.svc.Record(ctx, techActor, "r1", WorklogInput{Hours: 1.25})
	require.NoError(t, err)
	f.now = f.now.Add(26 * time.Hour)
	latest, err := f.svc.Record(ctx, adminActor, "r1", WorklogInput{Hours: 2})
	require.NoError(t, err)

	listing, err := f.svc.ListByTicket(ctx, employeeActor, "r1")
	require.NoError(t, err)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, latest.ID, listing.Entries[0].ID)
	assert.Equal(t, 3.25, listing.TotalHours)

	stranger := domain.Actor{ID: "emp-9", Role: domain.RoleEmployee}
	_, err = f.svc.ListByTicket(ctx, stranger, "r1")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestListMineGroupsByDay(t *testing.T) {
	ctx := context.Background()
	f := newWorklogFixture(t, nil)

	for _, h := range []float64{1, 0.5} {
		_, err := f.svc.Record(ctx, techActor, "r1", WorklogInput{Hours: h})
		require.NoError(t, err)
	}
	f.now = f.now.AddDate(0, 0, 1)
	_, err := f.svc.Record(ctx, techActor, "r1", WorklogInput{Hours: 3})
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, adminActor, "r1", WorklogInput{Hours: 8})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, techActor, nil, nil)
	require.NoError(t, err)
	assert.Len(t, mine.Entries, 3)
	assert.Equal(t, 4.5, mine.TotalHours)
	assert.Equal(t, []domain.DayHours{
		{Date: "2024-05-11", Hours: 3},
		{Date: "2024-05-10", Hours: 1.5},
	}, mine.ByDay)

	from := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	mine, err = f.svc.ListMine(ctx, techActor, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, mine.TotalHours)

	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.ListMine(ctx, techActor, &from, &to)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
