package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// GroupField names a distribution dimension.
type GroupField string

const (
	GroupByType       GroupField = "type"
	GroupByLevel      GroupField = "level"
	GroupByDepartment GroupField = "department"
)

var groupExpressions = map[GroupField]string{
	GroupByType:       "type",
	GroupByLevel:      "level::text",
	GroupByDepartment: "NULLIF(btrim(department), '')",
}

// ParseGroupField validates a group-by name.
func ParseGroupField(raw string) (GroupField, bool) {
	field := GroupField(raw)
	_, ok := groupExpressions[field]
	return field, ok
}

// TechnicianCount is a per-assignee counter.
type TechnicianCount struct {
	ID    string
	Name  string
	Count int64
}

// TechnicianHours sums worklog hours per user.
type TechnicianHours struct {
	ID    string
	Name  string
	Hours float64
}

// DailyCount is a count for one calendar day formatted as YYYY-MM-DD.
type DailyCount struct {
	Day   string
	Count int64
}

// CompletionStats aggregates requests completed in a window.
type CompletionStats struct {
	Count      int64
	TotalHours float64
}

type SLASample struct {
	Priority       domain.Priority
	CreatedAt      time.Time
	CompletionDate *time.Time
}

// FeedbackRow counts one rating for a technician or department key.
type FeedbackRow struct {
	Key    string
	Name   string
	Rating domain.FeedbackRating
	Count  int64
}

// MetricsRepository exposes the read-only aggregates behind reports.
// Windows are half-open [start, end).
type MetricsRepository interface {
	CountCreated(ctx context.Context, start, end time.Time) (int64, error)
	CompletionStats(ctx context.Context, start, end time.Time) (CompletionStats, error)
	CountOpen(ctx context.Context) (int64, error)
	Distribution(ctx context.Context, field GroupField, start, end *time.Time) ([]domain.GroupCount, error)
	AssignedTotals(ctx context.Context) ([]TechnicianCount, error)
	OpenByAssignee(ctx context.Context) ([]TechnicianCount, error)
	ResolvedByAssignee(ctx context.Context, start, end time.Time) ([]TechnicianCount, error)
	// HoursByUser sums worklog hours with fromDate <= log_date <= toDate.
	HoursByUser(ctx context.Context, fromDate, toDate time.Time) ([]TechnicianHours, error)
	ReworkCounts(ctx context.Context, start, end time.Time) (total, reworked int64, err error)
	DailyCreated(ctx context.Context, start, end time.Time, tz string) ([]DailyCount, error)
	DailyCompleted(ctx context.Context, start, end time.Time, tz string) ([]DailyCount, error)
	Totals(ctx context.Context, since time.Time) (domain.SummaryTotals, error)
	CreatedTimes(ctx context.Context, start, end time.Time) ([]time.Time, error)
	CompletionTimes(ctx context.Context, start, end time.Time) ([]time.Time, error)
	SLASamples(ctx context.Context) ([]SLASample, error)
	FeedbackByAssignee(ctx context.Context) ([]FeedbackRow, error)
	FeedbackByDepartment(ctx context.Context) ([]FeedbackRow, error)
}

const assignedClause = `assigned_to IS NOT NULL AND assigned_to <> ''`

type metricsRepository struct {
	pool *pgxpool.Pool
}

// NewMetricsRepository builds repository.
func NewMetricsRepository(pool *pgxpool.Pool) MetricsRepository {
	return &metricsRepository{pool: pool}
}

func (r *metricsRepository) CountCreated(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&count)
	return count, err
}

func (r *metricsRepository) CompletionStats(ctx context.Context, start, end time.Time) (CompletionStats, error) {
	const query = `
        SELECT COUNT(*),
               COALESCE(SUM(EXTRACT(EPOCH FROM (completion_date - created_at))) / 3600.0, 0)::float8
        FROM requests
        WHERE completion_date >= $1 AND completion_date < $2`
	var stats CompletionStats
	err := r.pool.QueryRow(ctx, query, start, end).Scan(&stats.Count, &stats.TotalHours)
	return stats, err
}

func (r *metricsRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests WHERE `+openStatusClause).Scan(&count)
	return count, err
}

func (r *metricsRepository) Distribution(ctx context.Context, field GroupField, start, end *time.Time) ([]domain.GroupCount, error) {
	expr, ok := groupExpressions[field]
	if !ok {
		return nil, fmt.Errorf("unsupported group field %q", field)
	}
	where := "1=1"
	args := []any{}
	if start != nil && end != nil {
		where = "created_at >= $1 AND created_at < $2"
		args = append(args, *start, *end)
	}
	query := fmt.Sprintf(`SELECT COALESCE(%s, '') AS name, COUNT(*) FROM requests WHERE %s GROUP BY 1`, expr, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GroupCount
	for rows.Next() {
		var group domain.GroupCount
		if err := rows.Scan(&group.Name, &group.Count); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

func (r *metricsRepository) AssignedTotals(ctx context.Context) ([]TechnicianCount, error) {
	return r.technicianCounts(ctx, assignedClause)
}

func (r *metricsRepository) OpenByAssignee(ctx context.Context) ([]TechnicianCount, error) {
	return r.technicianCounts(ctx, assignedClause+" AND "+openStatusClause)
}

func (r *metricsRepository) ResolvedByAssignee(ctx context.Context, start, end time.Time) ([]TechnicianCount, error) {
	return r.technicianCounts(ctx, assignedClause+" AND completion_date >= $1 AND completion_date < $2", start, end)
}

func (r *metricsRepository) technicianCounts(ctx context.Context, where string, args ...any) ([]TechnicianCount, error) {
	query := `SELECT assigned_to, COALESCE(MAX(assigned_to_name), ''), COUNT(*)
        FROM requests WHERE ` + where + ` GROUP BY assigned_to`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TechnicianCount
	for rows.Next() {
		var tc TechnicianCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		result = append(result, tc)
	}
	return result, rows.Err()
}

func (r *metricsRepository) HoursByUser(ctx context.Context, fromDate, toDate time.Time) ([]TechnicianHours, error) {
	const query = `
        SELECT user_id, COALESCE(MAX(user_name), ''), SUM(hours)::float8
        FROM worklogs WHERE log_date >= $1 AND log_date <= $2
        GROUP BY user_id`
	rows, err := r.pool.Query(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TechnicianHours
	for rows.Next() {
		var th TechnicianHours
		if err := rows.Scan(&th.ID, &th.Name, &th.Hours); err != nil {
			return nil, err
		}
		result = append(result, th)
	}
	return result, rows.Err()
}

func (r *metricsRepository) ReworkCounts(ctx context.Context, start, end time.Time) (int64, int64, error) {
	const query = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE reabierto_count > 0)
        FROM requests WHERE created_at >= $1 AND created_at < $2`
	var total, reworked int64
	err := r.pool.QueryRow(ctx, query, start, end).Scan(&total, &reworked)
	return total, reworked, err
}

func (r *metricsRepository) DailyCreated(ctx context.Context, start, end time.Time, tz string) ([]DailyCount, error) {
	return r.dailyCounts(ctx, "created_at", start, end, tz)
}

func (r *metricsRepository) DailyCompleted(ctx context.Context, start, end time.Time, tz string) ([]DailyCount, error) {
	return r.dailyCounts(ctx, "completion_date", start, end, tz)
}

func (r *metricsRepository) dailyCounts(ctx context.Context, column string, start, end time.Time, tz string) ([]DailyCount, error) {
	query := fmt.Sprintf(`
        SELECT to_char((%[1]s AT TIME ZONE $3)::date, 'YYYY-MM-DD') AS day, COUNT(*)
        FROM requests WHERE %[1]s >= $1 AND %[1]s < $2
        GROUP BY 1 ORDER BY 1`, column)
	rows, err := r.pool.Query(ctx, query, start, end, tz)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func (r *metricsRepository) Totals(ctx context.Context, since time.Time) (domain.SummaryTotals, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE ` + assignedClause + `),
               COUNT(*) FILTER (WHERE created_at >= $1)
        FROM requests`
	var totals domain.SummaryTotals
	if err := r.pool.QueryRow(ctx, query, since).Scan(
		&totals.TotalRequests,
		&totals.AssignedTotal,
		&totals.NewLast24h,
	); err != nil {
		return domain.SummaryTotals{}, err
	}
	totals.UnassignedTotal = totals.TotalRequests - totals.AssignedTotal
	return totals, nil
}

func (r *metricsRepository) CreatedTimes(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	return r.timestamps(ctx, "created_at", start, end)
}

func (r *metricsRepository) CompletionTimes(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	return r.timestamps(ctx, "completion_date", start, end)
}

func (r *metricsRepository) timestamps(ctx context.Context, column string, start, end time.Time) ([]time.Time, error) {
	query := fmt.Sprintf(`SELECT %[1]s FROM requests WHERE %[1]s >= $1 AND %[1]s < $2`, column)
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func (r *metricsRepository) SLASamples(ctx context.Context) ([]SLASample, error) {
	rows, err := r.pool.Query(ctx, `SELECT priority, created_at, completion_date FROM requests`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SLASample
	for rows.Next() {
		var (
			sample   SLASample
			priority string
		)
		if err := rows.Scan(&priority, &sample.CreatedAt, &sample.CompletionDate); err != nil {
			return nil, err
		}
		sample.Priority = domain.NormalizePriority(priority)
		result = append(result, sample)
	}
	return result, rows.Err()
}

func (r *metricsRepository) FeedbackByAssignee(ctx context.Context) ([]FeedbackRow, error) {
	query := `
        SELECT assigned_to, COALESCE(MAX(assigned_to_name), ''), feedback->>'rating', COUNT(*)
        FROM requests
        WHERE feedback->>'rating' IN ('up', 'down') AND ` + assignedClause + `
        GROUP BY assigned_to, feedback->>'rating'`
	return r.feedbackRows(ctx, query)
}

func (r *metricsRepository) FeedbackByDepartment(ctx context.Context) ([]FeedbackRow, error) {
	const query = `
        SELECT dept, dept, rating, COUNT(*)
        FROM (
            SELECT COALESCE(NULLIF(btrim(department), ''), 'N/A') AS dept, feedback->>'rating' AS rating
            FROM requests
            WHERE feedback->>'rating' IN ('up', 'down')
        ) f
        GROUP BY dept, rating`
	return r.feedbackRows(ctx, query)
}

func (r *metricsRepository) feedbackRows(ctx context.Context, query string) ([]FeedbackRow, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FeedbackRow
	for rows.Next() {
		var (
			row    FeedbackRow
			rating string
		)
		if err := rows.Scan(&row.Key, &row.Name, &rating, &row.Count); err != nil {
			return nil, err
		}
		row.Rating = domain.FeedbackRating(rating)
		result = append(result, row)
	}
	return result, rows.Err()
}
