package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// StatusEventRepository reads the append-only Event Log. Writes happen only
// inside RequestRepository so each event lands with its request update.
type StatusEventRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusEvent, error)
	// ListBefore returns every event with changed_at < end ordered by ticket then time.
	ListBefore(ctx context.Context, end time.Time) ([]domain.StatusEvent, error)
}

type statusEventRepository struct {
	pool *pgxpool.Pool
}

// NewStatusEventRepository builds repository.
func NewStatusEventRepository(pool *pgxpool.Pool) StatusEventRepository {
	return &statusEventRepository{pool: pool}
}

func insertStatusEvent(ctx context.Context, q querier, ticketID string, ev domain.StateEvent) error {
	event := domain.NewStatusEvent(uuid.NewString(), ticketID, ev)
	const query = `
        INSERT INTO ticket_status_events (id, ticket_id, status, changed_by, changed_by_name, changed_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := q.Exec(ctx, query,
		event.ID,
		event.TicketID,
		event.Status,
		event.ChangedBy.ID,
		event.ChangedBy.Name,
		event.ChangedAt,
	)
	return err
}

func (r *statusEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusEvent, error) {
	const query = `
        SELECT e.id, e.ticket_id, e.status, e.changed_by, e.changed_by_name, e.changed_at
        FROM ticket_status_events e WHERE e.ticket_id=$1 ORDER BY e.changed_at ASC, e.id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatusEvents(rows)
}

func (r *statusEventRepository) ListBefore(ctx context.Context, end time.Time) ([]domain.StatusEvent, error) {
	const query = `
        SELECT e.id, e.ticket_id, e.status, e.changed_by, e.changed_by_name, e.changed_at
        FROM ticket_status_events e WHERE e.changed_at < $1
        ORDER BY e.ticket_id, e.changed_at ASC, e.id`
	rows, err := r.pool.Query(ctx, query, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatusEvents(rows)
}

func scanStatusEvents(rows pgx.Rows) ([]domain.StatusEvent, error) {
	var result []domain.StatusEvent
	for rows.Next() {
		var (
			event  domain.StatusEvent
			status string
		)
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&status,
			&event.ChangedBy.ID,
			&event.ChangedBy.Name,
			&event.ChangedAt,
		); err != nil {
			return nil, err
		}
		event.Status = domain.NormalizeStatus(status)
		result = append(result, event)
	}
	return result, rows.Err()
}
