package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

const (
	defaultBacklogDays    = 30
	defaultBacklogMaxDays = 90
)

// DefaultSLAHours is used when no SLA configuration is supplied.
var DefaultSLAHours = map[domain.Priority]int{
	domain.PriorityHigh:   24,
	domain.PriorityMedium: 72,
	domain.PriorityLow:    120,
}

// MetricsService derives reports from requests, the event log and worklogs.
// It holds no mutable state; every call recomputes from storage.
type MetricsService struct {
	metrics        repository.MetricsRepository
	events         repository.StatusEventRepository
	users          repository.UserDirectory
	location       *time.Location
	now            func() time.Time
	slaHours       map[domain.Priority]int
	backlogMaxDays int
	logger         *zap.Logger
}

// MetricsDependencies bundles collaborators for the metrics service.
type MetricsDependencies struct {
	MetricsRepo     repository.MetricsRepository
	StatusEventRepo repository.StatusEventRepository
	UserDirectory   repository.UserDirectory
	Location        *time.Location
	Now             func() time.Time
	SLAHours        map[domain.Priority]int
	BacklogMaxDays  int
	Logger          *zap.Logger
}

// NewMetricsService constructs the service.
func NewMetricsService(deps MetricsDependencies) *MetricsService {
	svc := &MetricsService{
		metrics:        deps.MetricsRepo,
		events:         deps.StatusEventRepo,
		users:          deps.UserDirectory,
		location:       deps.Location,
		now:            deps.Now,
		slaHours:       deps.SLAHours,
		backlogMaxDays: deps.BacklogMaxDays,
		logger:         deps.Logger,
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if len(svc.slaHours) == 0 {
		svc.slaHours = DefaultSLAHours
	}
	if svc.backlogMaxDays <= 0 {
		svc.backlogMaxDays = defaultBacklogMaxDays
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// BacklogMaxDays reports the largest accepted backlog trend length.
func (s *MetricsService) BacklogMaxDays() int {
	return s.backlogMaxDays
}

func (s *MetricsService) window(q WindowQuery, defaultPeriod string) (domain.Window, error) {
	return ResolveWindow(q, defaultPeriod, s.now(), s.location)
}

// KPIs reports received, resolved, backlog and average resolution hours.
func (s *MetricsService) KPIs(ctx context.Context, q WindowQuery) (*domain.KPIs, error) {
	window, err := s.window(q, PeriodDay)
	if err != nil {
		return nil, err
	}
	return s.kpis(ctx, window)
}

func (s *MetricsService) kpis(ctx context.Context, window domain.Window) (*domain.KPIs, error) {
	result := &domain.KPIs{Window: window}
	var stats repository.CompletionStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.metrics.CountCreated(gctx, window.From, window.To)
		result.Received = count
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.metrics.CompletionStats(gctx, window.From, window.To)
		return err
	})
	g.Go(func() error {
		count, err := s.metrics.CountOpen(gctx)
		result.Backlog = count
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	result.Resolved = stats.Count
	if stats.Count > 0 {
		result.AvgResolutionHours = round1(stats.TotalHours / float64(stats.Count))
	}
	return result, nil
}

// Distribution counts requests created in the window grouped by field.
func (s *MetricsService) Distribution(ctx context.Context, q WindowQuery, groupBy string) (*domain.Distribution, error) {
	if groupBy == "" {
		groupBy = string(repository.GroupByType)
	}
	field, ok := repository.ParseGroupField(groupBy)
	if !ok {
		return nil, apperrors.NewValidationError("unsupported group_by", map[string]any{
			"group_by": groupBy,
			"allowed":  []string{string(repository.GroupByType), string(repository.GroupByLevel), string(repository.GroupByDepartment)},
		})
	}
	window, err := s.window(q, PeriodMonth)
	if err != nil {
		return nil, err
	}
	groups, err := s.metrics.Distribution(ctx, field, &window.From, &window.To)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &domain.Distribution{Window: window, GroupBy: string(field), Groups: normalizeGroups(field, groups)}, nil
}

// Technicians reports per-assignee productivity for the window.
func (s *MetricsService) Technicians(ctx context.Context, q WindowQuery) (*domain.TechnicianReport, error) {
	window, err := s.window(q, PeriodWeek)
	if err != nil {
		return nil, err
	}
	stats, err := s.technicians(ctx, window)
	if err != nil {
		return nil, err
	}
	return &domain.TechnicianReport{Window: window, Technicians: stats}, nil
}

func (s *MetricsService) technicians(ctx context.Context, window domain.Window) ([]domain.TechnicianStats, error) {
	var (
		assigned, pending, resolved []repository.TechnicianCount
		hours                       []repository.TechnicianHours
	)
	fromDate, toDate := s.logDateRange(window)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		assigned, err = s.metrics.AssignedTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.metrics.OpenByAssignee(gctx)
		return err
	})
	g.Go(func() (err error) {
		resolved, err = s.metrics.ResolvedByAssignee(gctx, window.From, window.To)
		return err
	})
	g.Go(func() (err error) {
		hours, err = s.metrics.HoursByUser(gctx, fromDate, toDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	stats := mergeTechnicians(assigned, pending, resolved, hours)
	for i := range stats {
		if stats[i].TechName == "" {
			stats[i].TechName = s.displayName(ctx, stats[i].TechID)
		}
	}
	sortTechnicians(stats)
	return stats, nil
}

// logDateRange converts a window into the inclusive calendar dates it covers.
// Worklog dates are stored as UTC midnight of the local day.
func (s *MetricsService) logDateRange(window domain.Window) (time.Time, time.Time) {
	return calendarDate(window.From, s.location), calendarDate(window.To.Add(-time.Nanosecond), s.location)
}

func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *MetricsService) displayName(ctx context.Context, userID string) string {
	if s.users == nil || userID == "" {
		return userID
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("resolve technician name", zap.String("user_id", userID), zap.Error(err))
		}
		return userID
	}
	return user.Ref().Name
}

// ReworkRate reports the share of requests created in the window that were
// ever reopened.
func (s *MetricsService) ReworkRate(ctx context.Context, q WindowQuery) (*domain.ReworkRate, error) {
	window, err := s.window(q, PeriodMonth)
	if err != nil {
		return nil, err
	}
	total, reworked, err := s.metrics.ReworkCounts(ctx, window.From, window.To)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := &domain.ReworkRate{Window: window, Total: total, Reworked: reworked}
	if total > 0 {
		result.Percentage = round1(float64(reworked) / float64(total) * 100)
	}
	return result, nil
}

// TimeByState reconstructs cumulative hours per state from the whole event
// log up to the window end, capped at now.
func (s *MetricsService) TimeByState(ctx context.Context, q WindowQuery) (*domain.TimeByState, error) {
	window, err := s.window(q, PeriodWeek)
	if err != nil {
		return nil, err
	}
	end := window.To
	if now := s.now(); now.Before(end) {
		end = now
	}
	events, err := s.events.ListBefore(ctx, end)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &domain.TimeByState{Window: window, Hours: hoursByState(events, end)}, nil
}

// BacklogTrend reports daily new, closed and approximate backlog for the
// last days calendar days including today.
func (s *MetricsService) BacklogTrend(ctx context.Context, days int) (*domain.BacklogTrend, error) {
	if days == 0 {
		days = defaultBacklogDays
	}
	if days < 1 || days > s.backlogMaxDays {
		return nil, apperrors.NewValidationError("days out of range", map[string]any{
			"days": days,
			"min":  1,
			"max":  s.backlogMaxDays,
		})
	}

	local := s.now().In(s.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	start := today.AddDate(0, 0, -(days - 1))
	end := today.AddDate(0, 0, 1)

	var created, closed []repository.DailyCount
	tz := s.location.String()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		created, err = s.metrics.DailyCreated(gctx, start, end, tz)
		return err
	})
	g.Go(func() (err error) {
		closed, err = s.metrics.DailyCompleted(gctx, start, end, tz)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	dayStarts := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dayStarts = append(dayStarts, start.AddDate(0, 0, i))
	}
	return &domain.BacklogTrend{
		From:   start,
		To:     today,
		Points: backlogTrend(dayStarts, dailyIndex(created), dailyIndex(closed)),
	}, nil
}

// Summary composes KPIs, global totals and productivity for a named period,
// optionally with the extended dashboard sections.
func (s *MetricsService) Summary(ctx context.Context, period string, extended bool) (*domain.Summary, error) {
	window, err := s.window(WindowQuery{Period: period}, PeriodDay)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var (
		kpis   *domain.KPIs
		totals domain.SummaryTotals
		techs  []domain.TechnicianStats
		ext    *domain.ExtendedSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		kpis, err = s.kpis(gctx, window)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.metrics.Totals(gctx, now.Add(-24*time.Hour))
		return err
	})
	g.Go(func() (err error) {
		techs, err = s.technicians(gctx, window)
		return err
	})
	if extended {
		g.Go(func() (err error) {
			ext, err = s.extended(gctx, window, now)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	return &domain.Summary{
		Period:             window.Period,
		From:               window.From,
		To:                 window.To,
		New:                kpis.Received,
		Finished:           kpis.Resolved,
		PendingNow:         kpis.Backlog,
		AvgCycleHours:      kpis.AvgResolutionHours,
		Totals:             totals,
		ProductivityByTech: techs,
		Extended:           ext,
	}, nil
}

func (s *MetricsService) extended(ctx context.Context, window domain.Window, now time.Time) (*domain.ExtendedSummary, error) {
	var (
		events             []domain.StatusEvent
		fbTech, fbDept     []repository.FeedbackRow
		samples            []repository.SLASample
		received, resolved []time.Time
		byType, byLevel    []domain.GroupCount
		byDepartment       []domain.GroupCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = s.events.ListBefore(gctx, window.To)
		return err
	})
	g.Go(func() (err error) {
		fbTech, err = s.metrics.FeedbackByAssignee(gctx)
		return err
	})
	g.Go(func() (err error) {
		fbDept, err = s.metrics.FeedbackByDepartment(gctx)
		return err
	})
	g.Go(func() (err error) {
		samples, err = s.metrics.SLASamples(gctx)
		return err
	})
	g.Go(func() (err error) {
		received, err = s.metrics.CreatedTimes(gctx, window.From, window.To)
		return err
	})
	g.Go(func() (err error) {
		resolved, err = s.metrics.CompletionTimes(gctx, window.From, window.To)
		return err
	})
	g.Go(func() (err error) {
		byType, err = s.metrics.Distribution(gctx, repository.GroupByType, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		byLevel, err = s.metrics.Distribution(gctx, repository.GroupByLevel, nil, nil)
		return err
	})
	g.Go(func() (err error) {
		byDepartment, err = s.metrics.Distribution(gctx, repository.GroupByDepartment, nil, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	returns := reviewReturns(events, window)
	for i := range returns {
		if returns[i].TechName == "" {
			returns[i].TechName = s.displayName(ctx, returns[i].TechID)
		}
	}

	slaHours := make(map[domain.Priority]int, len(s.slaHours))
	for p, h := range s.slaHours {
		slaHours[p] = h
	}

	return &domain.ExtendedSummary{
		AvgTimeByStatus:         avgTimeByStatus(events, window, now),
		ReturnsFromReviewByTech: returns,
		FeedbackByTech:          tallyFeedback(fbTech),
		FeedbackByDepartment:    tallyFeedback(fbDept),
		SLAByPriority:           slaCompliance(samples, s.slaHours, now),
		Trend:                   trendSeries(window, received, resolved, s.location),
		Distribution: domain.DistributionSet{
			ByType:       normalizeGroups(repository.GroupByType, byType),
			ByLevel:      normalizeGroups(repository.GroupByLevel, byLevel),
			ByDepartment: normalizeGroups(repository.GroupByDepartment, byDepartment),
		},
		SLAHoursByPriority: slaHours,
	}, nil
}
