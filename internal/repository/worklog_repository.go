package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// WorklogFilter narrows a user's ledger listing. Dates are inclusive.
type WorklogFilter struct {
	UserID   string
	FromDate *time.Time
	ToDate   *time.Time
}

// WorklogRepository stores the append-only time ledger.
type WorklogRepository interface {
	Create(ctx context.Context, entry *domain.Worklog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Worklog, error)
	ListByUser(ctx context.Context, filter WorklogFilter) ([]domain.Worklog, error)
}

const worklogColumns = `id, ticket_id, user_id, user_name, log_date, hours, note, created_at`

type worklogRepository struct {
	pool *pgxpool.Pool
}

// NewWorklogRepository builds repository.
func NewWorklogRepository(pool *pgxpool.Pool) WorklogRepository {
	return &worklogRepository{pool: pool}
}

func (r *worklogRepository) Create(ctx context.Context, entry *domain.Worklog) error {
	const query = `
        INSERT INTO worklogs (id, ticket_id, user_id, user_name, log_date, hours, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.UserID,
		entry.UserName,
		entry.Date,
		entry.Hours,
		entry.Note,
		entry.CreatedAt,
	)
	return err
}

func (r *worklogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Worklog, error) {
	query := `SELECT ` + worklogColumns + ` FROM worklogs WHERE ticket_id=$1 ORDER BY log_date DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorklogs(rows)
}

func (r *worklogRepository) ListByUser(ctx context.Context, filter WorklogFilter) ([]domain.Worklog, error) {
	clauses := []string{"user_id=$1"}
	args := []any{filter.UserID}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		clauses = append(clauses, fmt.Sprintf("log_date >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		clauses = append(clauses, fmt.Sprintf("log_date <= $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM worklogs WHERE %s ORDER BY log_date DESC, created_at DESC`,
		worklogColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorklogs(rows)
}

func scanWorklogs(rows pgx.Rows) ([]domain.Worklog, error) {
	var result []domain.Worklog
	for rows.Next() {
		var entry domain.Worklog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.UserName,
			&entry.Date,
			&entry.Hours,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
