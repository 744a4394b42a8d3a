package mocks

import (
	"context"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// MockMetricsRepository is a function-field implementation of
// repository.MetricsRepository. Unset functions return zero values.
type MockMetricsRepository struct {
	CountCreatedFunc         func(ctx context.Context, start, end time.Time) (int64, error)
	CompletionStatsFunc      func(ctx context.Context, start, end time.Time) (repository.CompletionStats, error)
	CountOpenFunc            func(ctx context.Context) (int64, error)
	DistributionFunc         func(ctx context.Context, field repository.GroupField, start, end *time.Time) ([]domain.GroupCount, error)
	AssignedTotalsFunc       func(ctx context.Context) ([]repository.TechnicianCount, error)
	OpenByAssigneeFunc       func(ctx context.Context) ([]repository.TechnicianCount, error)
	ResolvedByAssigneeFunc   func(ctx context.Context, start, end time.Time) ([]repository.TechnicianCount, error)
	HoursByUserFunc          func(ctx context.Context, fromDate, toDate time.Time) ([]repository.TechnicianHours, error)
	DailyCreatedFunc         func(ctx context.Context, start, end time.Time, tz string) ([]repository.DailyCount, error)
	DailyCompletedFunc       func(ctx context.Context, start, end time.Time, tz string) ([]repository.DailyCount, error)
	TotalsFunc               func(ctx context.Context, since time.Time) (domain.SummaryTotals, error)
	CreatedTimesFunc         func(ctx context.Context, start, end time.Time) ([]time.Time, error)
	CompletionTimesFunc      func(ctx context.Context, start, end time.Time) ([]time.Time, error)
	SLASamplesFunc           func(ctx context.Context) ([]repository.SLASample, error)
	FeedbackByAssigneeFunc   func(ctx context.Context) ([]repository.FeedbackRow, error)
	FeedbackByDepartmentFunc func(ctx context.Context) ([]repository.FeedbackRow, error)
	ReworkCountsFunc         func(ctx context.Context, start, end time.Time) (int64, int64, error)
}

// CountCreated implements repository.MetricsRepository.
func (m *MockMetricsRepository) CountCreated(ctx context.Context, start, end time.Time) (int64, error) {
	if m.CountCreatedFunc != nil {
		return m.CountCreatedFunc(ctx, start, end)
	}
	return 0, nil
}

// CompletionStats implements repository.MetricsRepository.
func (m *MockMetricsRepository) CompletionStats(ctx context.Context, start, end time.Time) (repository.CompletionStats, error) {
	if m.CompletionStatsFunc != nil {
		return m.CompletionStatsFunc(ctx, start, end)
	}
	return repository.CompletionStats{}, nil
}

// CountOpen implements repository.MetricsRepository.
func (m *MockMetricsRepository) CountOpen(ctx context.Context) (int64, error) {
	if m.CountOpenFunc != nil {
		return m.CountOpenFunc(ctx)
	}
	return 0, nil
}

// Distribution implements repository.MetricsRepository.
func (m *MockMetricsRepository) Distribution(ctx context.Context, field repository.GroupField, start, end *time.Time) ([]domain.GroupCount, error) {
	if m.DistributionFunc != nil {
		return m.DistributionFunc(ctx, field, start, end)
	}
	return nil, nil
}

// AssignedTotals implements repository.MetricsRepository.
func (m *MockMetricsRepository) AssignedTotals(ctx context.Context) ([]repository.TechnicianCount, error) {
	if m.AssignedTotalsFunc != nil {
		return m.AssignedTotalsFunc(ctx)
	}
	return nil, nil
}

// OpenByAssignee implements repository.MetricsRepository.
func (m *MockMetricsRepository) OpenByAssignee(ctx context.Context) ([]repository.TechnicianCount, error) {
	if m.OpenByAssigneeFunc != nil {
		return m.OpenByAssigneeFunc(ctx)
	}
	return nil, nil
}

// ResolvedByAssignee implements repository.MetricsRepository.
func (m *MockMetricsRepository) ResolvedByAssignee(ctx context.Context, start, end time.Time) ([]repository.TechnicianCount, error) {
	if m.ResolvedByAssigneeFunc != nil {
		return m.ResolvedByAssigneeFunc(ctx, start, end)
	}
	return nil, nil
}

// HoursByUser implements repository.MetricsRepository.
func (m *MockMetricsRepository) HoursByUser(ctx context.Context, fromDate, toDate time.Time) ([]repository.TechnicianHours, error) {
	if m.HoursByUserFunc != nil {
		return m.HoursByUserFunc(ctx, fromDate, toDate)
	}
	return nil, nil
}

// DailyCreated implements repository.MetricsRepository.
func (m *MockMetricsRepository) DailyCreated(ctx context.Context, start, end time.Time, tz string) ([]repository.DailyCount, error) {
	if m.DailyCreatedFunc != nil {
		return m.DailyCreatedFunc(ctx, start, end, tz)
	}
	return nil, nil
}

// DailyCompleted implements repository.MetricsRepository.
func (m *MockMetricsRepository) DailyCompleted(ctx context.Context, start, end time.Time, tz string) ([]repository.DailyCount, error) {
	if m.DailyCompletedFunc != nil {
		return m.DailyCompletedFunc(ctx, start, end, tz)
	}
	return nil, nil
}

// Totals implements repository.MetricsRepository.
func (m *MockMetricsRepository) Totals(ctx context.Context, since time.Time) (domain.SummaryTotals, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx, since)
	}
	return domain.SummaryTotals{}, nil
}

// CreatedTimes implements repository.MetricsRepository.
func (m *MockMetricsRepository) CreatedTimes(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if m.CreatedTimesFunc != nil {
		return m.CreatedTimesFunc(ctx, start, end)
	}
	return nil, nil
}

// CompletionTimes implements repository.MetricsRepository.
func (m *MockMetricsRepository) CompletionTimes(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	if m.CompletionTimesFunc != nil {
		return m.CompletionTimesFunc(ctx, start, end)
	}
	return nil, nil
}

// SLASamples implements repository.MetricsRepository.
func (m *MockMetricsRepository) SLASamples(ctx context.Context) ([]repository.SLASample, error) {
	if m.SLASamplesFunc != nil {
		return m.SLASamplesFunc(ctx)
	}
	return nil, nil
}

// FeedbackByAssignee implements repository.MetricsRepository.
func (m *MockMetricsRepository) FeedbackByAssignee(ctx context.Context) ([]repository.FeedbackRow, error) {
	if m.FeedbackByAssigneeFunc != nil {
		return m.FeedbackByAssigneeFunc(ctx)
	}
	return nil, nil
}

// FeedbackByDepartment implements repository.MetricsRepository.
func (m *MockMetricsRepository) FeedbackByDepartment(ctx context.Context) ([]repository.FeedbackRow, error) {
	if m.FeedbackByDepartmentFunc != nil {
		return m.FeedbackByDepartmentFunc(ctx)
	}
	return nil, nil
}

// ReworkCounts implements repository.MetricsRepository.
func (m *MockMetricsRepository) ReworkCounts(ctx context.Context, start, end time.Time) (int64, int64, error) {
	if m.ReworkCountsFunc != nil {
		return m.ReworkCountsFunc(ctx, start, end)
	}
	return 0, 0, nil
}
