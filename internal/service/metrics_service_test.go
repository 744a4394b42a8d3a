package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
	"github.com/spec-kit/request-tracker/internal/service/mocks"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

func newMetricsService(repo *mocks.MockMetricsRepository, store *mocks.RequestStore, now time.Time) *MetricsService {
	if store == nil {
		store = mocks.NewRequestStore()
	}
	return NewMetricsService(MetricsDependencies{
		MetricsRepo:     repo,
		StatusEventRepo: store,
		UserDirectory:   mocks.NewUserDirectory(&domain.User{ID: "tech-9", FullName: "Nina Nine"}),
		Now:             func() time.Time { return now },
	})
}

func TestKPIsAverageResolution(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	type completed struct{ created, done time.Time }
	rows := []completed{
		{from.Add(time.Hour), from.Add(3 * time.Hour)},
		{from.Add(10 * time.Hour), from.Add(14 * time.Hour)},
		{from.Add(-48 * time.Hour), from.Add(-time.Hour)},
	}
	repo := &mocks.MockMetricsRepository{
		CountCreatedFunc: func(_ context.Context, start, end time.Time) (int64, error) {
			assert.Equal(t, from, start)
			assert.Equal(t, to, end)
			return 5, nil
		},
		CompletionStatsFunc: func(_ context.Context, start, end time.Time) (repository.CompletionStats, error) {
			var stats repository.CompletionStats
			for _, r := range rows {
				if !r.done.Before(start) && r.done.Before(end) {
					stats.Count++
					stats.TotalHours += r.done.Sub(r.created).Hours()
				}
			}
			return stats, nil
		},
		CountOpenFunc: func(context.Context) (int64, error) { return 7, nil },
	}
	svc := newMetricsService(repo, nil, to)

	kpis, err := svc.KPIs(context.Background(), WindowQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(5), kpis.Received)
	assert.Equal(t, int64(2), kpis.Resolved)
	assert.Equal(t, int64(7), kpis.Backlog)
	assert.Equal(t, 3.0, kpis.AvgResolutionHours)
}

func TestKPIsEmptyWindow(t *testing.T) {
	svc := newMetricsService(&mocks.MockMetricsRepository{}, nil, t0)
	kpis, err := svc.KPIs(context.Background(), WindowQuery{Period: "day"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, kpis.AvgResolutionHours)
	assert.Equal(t, PeriodDay, kpis.Window.Period)
}

func TestKPIsPropagatesStorageErrors(t *testing.T) {
	repo := &mocks.MockMetricsRepository{
		CountOpenFunc: func(context.Context) (int64, error) { return 0, errors.New("connection reset") },
	}
	svc := newMetricsService(repo, nil, t0)
	_, err := svc.KPIs(context.Background(), WindowQuery{})
	assert.True(t, apperrors.Is(err, apperrors.CodeInternal))
}

func TestReworkRate(t *testing.T) {
	repo := &mocks.MockMetricsRepository{
		ReworkCountsFunc: func(context.Context, time.Time, time.Time) (int64, int64, error) { return 10, 3, nil },
	}
	svc := newMetricsService(repo, nil, t0)

	rate, err := svc.ReworkRate(context.Background(), WindowQuery{Period: "month"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rate.Total)
	assert.Equal(t, int64(3), rate.Reworked)
	assert.Equal(t, 30.0, rate.Percentage)

	empty := newMetricsService(&mocks.MockMetricsRepository{}, nil, t0)
	rate, err = empty.ReworkRate(context.Background(), WindowQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate.Percentage)
}

func TestTimeByStateUsesHistoryBeforeWindow(t *testing.T) {
	store := mocks.NewRequestStore()
	store.AddEvents(
		statusEvent("T1", domain.StatusPending, t0, "u"),
		statusEvent("T1", domain.StatusInProgress, t0.Add(2*time.Hour), "u"),
		statusEvent("T1", domain.StatusFinalized, t0.Add(5*time.Hour), "u"),
	)
	from := t0.Add(4 * time.Hour)
	to := t0.Add(7 * time.Hour)
	svc := newMetricsService(&mocks.MockMetricsRepository{}, store, t0.Add(30*24*time.Hour))

	result, err := svc.TimeByState(context.Background(), WindowQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Hours[domain.StatusPending])
	assert.Equal(t, 3.0, result.Hours[domain.StatusInProgress])
	assert.Equal(t, 2.0, result.Hours[domain.StatusFinalized])
}

func TestTimeByStateCapsAtNow(t *testing.T) {
	store := mocks.NewRequestStore()
	store.AddEvents(statusEvent("T1", domain.StatusPending, t0, "u"))
	from := t0
	to := t0.Add(48 * time.Hour)
	svc := newMetricsService(&mocks.MockMetricsRepository{}, store, t0.Add(6*time.Hour))

	result, err := svc.TimeByState(context.Background(), WindowQuery{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 6.0, result.Hours[domain.StatusPending])
}

func TestDistributionValidatesGroupBy(t *testing.T) {
	repo := &mocks.MockMetricsRepository{
		DistributionFunc: func(_ context.Context, field repository.GroupField, start, end *time.Time) ([]domain.GroupCount, error) {
			require.NotNil(t, start)
			require.NotNil(t, end)
			assert.Equal(t, repository.GroupByDepartment, field)
			return []domain.GroupCount{{Name: "IT", Count: 1}, {Name: "Finance", Count: 4}}, nil
		},
	}
	svc := newMetricsService(repo, nil, t0)

	_, err := svc.Distribution(context.Background(), WindowQuery{}, "priority")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	dist, err := svc.Distribution(context.Background(), WindowQuery{}, "department")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, dist.Window.Period)
	assert.Equal(t, []domain.GroupCount{{Name: "Finance", Count: 4}, {Name: "IT", Count: 1}}, dist.Groups)
}

func TestTechniciansUsesInclusiveLogDates(t *testing.T) {
	from := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	repo := &mocks.MockMetricsRepository{
		ResolvedByAssigneeFunc: func(_ context.Context, start, end time.Time) ([]repository.TechnicianCount, error) {
			return []repository.TechnicianCount{{ID: "tech-9", Count: 4}}, nil
		},
		HoursByUserFunc: func(_ context.Context, fromDate, toDate time.Time) ([]repository.TechnicianHours, error) {
			assert.Equal(t, "2024-05-13", fromDate.Format("2006-01-02"))
			assert.Equal(t, "2024-05-19", toDate.Format("2006-01-02"))
			return []repository.TechnicianHours{{ID: "tech-1", Name: "Tom", Hours: 12}}, nil
		},
	}
	svc := newMetricsService(repo, nil, to)

	report, err := svc.Technicians(context.Background(), WindowQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, report.Technicians, 2)
	assert.Equal(t, "Nina Nine", report.Technicians[0].TechName)
	assert.Equal(t, int64(4), report.Technicians[0].Resolved)
	assert.Equal(t, "Tom", report.Technicians[1].TechName)
}

func TestBacklogTrendRange(t *testing.T) {
	now := time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)
	repo := &mocks.MockMetricsRepository{
		DailyCreatedFunc: func(_ context.Context, start, end time.Time, tz string) ([]repository.DailyCount, error) {
			assert.Equal(t, "2024-05-14", start.Format("2006-01-02"))
			assert.Equal(t, "2024-05-17", end.Format("2006-01-02"))
			assert.Equal(t, "UTC", tz)
			return []repository.DailyCount{{Day: "2024-05-14", Count: 3}, {Day: "2024-05-16", Count: 1}}, nil
		},
		DailyCompletedFunc: func(context.Context, time.Time, time.Time, string) ([]repository.DailyCount, error) {
			return []repository.DailyCount{{Day: "2024-05-15", Count: 2}}, nil
		},
	}
	svc := newMetricsService(repo, nil, now)

	_, err := svc.BacklogTrend(context.Background(), -1)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, err = svc.BacklogTrend(context.Background(), svc.BacklogMaxDays()+1)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	trend, err := svc.BacklogTrend(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.BacklogPoint{
		{Date: "2024-05-14", New: 3, Closed: 0, Backlog: 3},
		{Date: "2024-05-15", New: 0, Closed: 2, Backlog: 1},
		{Date: "2024-05-16", New: 1, Closed: 0, Backlog: 2},
	}, trend.Points)
}

func TestSummaryExtended(t *testing.T) {
	now := time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)
	store := mocks.NewRequestStore()
	store.AddEvents(
		statusEvent("A", domain.StatusInReview, now.Add(-5*time.Hour), "tech-1"),
		statusEvent("A", domain.StatusInProgress, now.Add(-4*time.Hour), "tech-9"),
	)
	repo := &mocks.MockMetricsRepository{
		CountCreatedFunc: func(context.Context, time.Time, time.Time) (int64, error) { return 4, nil },
		CompletionStatsFunc: func(context.Context, time.Time, time.Time) (repository.CompletionStats, error) {
			return repository.CompletionStats{Count: 2, TotalHours: 5}, nil
		},
		CountOpenFunc: func(context.Context) (int64, error) { return 6, nil },
		TotalsFunc: func(_ context.Context, since time.Time) (domain.SummaryTotals, error) {
			assert.Equal(t, now.Add(-24*time.Hour), since)
			return domain.SummaryTotals{TotalRequests: 20, AssignedTotal: 15, UnassignedTotal: 5, NewLast24h: 2}, nil
		},
		SLASamplesFunc: func(context.Context) ([]repository.SLASample, error) {
			return []repository.SLASample{{Priority: domain.PriorityHigh, CreatedAt: now.Add(-48 * time.Hour)}}, nil
		},
		FeedbackByAssigneeFunc: func(context.Context) ([]repository.FeedbackRow, error) {
			return []repository.FeedbackRow{{Key: "tech-1", Name: "Tom", Rating: domain.RatingUp, Count: 2}}, nil
		},
	}
	svc := newMetricsService(repo, store, now)

	plain, err := svc.Summary(context.Background(), "daily", false)
	require.NoError(t, err)
	assert.Nil(t, plain.Extended)
	assert.Equal(t, PeriodDay, plain.Period)
	assert.Equal(t, int64(4), plain.New)
	assert.Equal(t, int64(2), plain.Finished)
	assert.Equal(t, int64(6), plain.PendingNow)
	assert.Equal(t, 2.5, plain.AvgCycleHours)
	assert.Equal(t, int64(20), plain.Totals.TotalRequests)

	full, err := svc.Summary(context.Background(), "day", true)
	require.NoError(t, err)
	require.NotNil(t, full.Extended)
	ext := full.Extended
	assert.Equal(t, []domain.ReviewReturns{{TechID: "tech-9", TechName: "name-tech-9", Returns: 1}}, ext.ReturnsFromReviewByTech)
	assert.Equal(t, []domain.SLACompliance{
		{Priority: domain.PriorityHigh, Overdue: 1},
		{Priority: domain.PriorityMedium},
		{Priority: domain.PriorityLow},
	}, ext.SLAByPriority)
	require.Len(t, ext.FeedbackByTech, 1)
	assert.Equal(t, int64(2), ext.FeedbackByTech[0].Up)
	assert.Len(t, ext.Trend.Labels, 24)
	assert.Equal(t, 24, ext.SLAHoursByPriority[domain.PriorityHigh])
	assert.Equal(t, 4.0, ext.AvgTimeByStatus[domain.StatusInProgress])

	_, err = svc.Summary(context.Background(), "quarterly", false)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
