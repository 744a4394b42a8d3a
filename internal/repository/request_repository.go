package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// RequestFilter captures list parameters. Statuses are canonical and are
// matched against the normalized stored label.
type RequestFilter struct {
	RequesterID   *string
	AssigneeID    *string
	Department    *string
	Statuses      []domain.RequestStatus
	Type          *domain.RequestType
	Level         *int
	Channel       *domain.Channel
	RequestedFrom *time.Time
	RequestedTo   *time.Time
	SearchTerm    *string
	SortField     string
	SortDesc      bool
	Limit         int
	Offset        int
}

// RequestUpdate is one atomic write against a request. Request carries the
// desired scalar fields; AppendEvent is pushed onto state_history and
// mirrored into the Event Log; IncrementReopen bumps reabierto_count.
// The write only applies while the stored version equals ExpectedVersion.
type RequestUpdate struct {
	Request         *domain.Request
	ExpectedVersion int64
	AppendEvent     *domain.StateEvent
	IncrementReopen bool
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	Apply(ctx context.Context, update RequestUpdate) (*domain.Request, error)
}

// SortableRequestFields lists the columns accepted by RequestFilter.SortField.
var SortableRequestFields = map[string]bool{
	"created_at":   true,
	"status":       true,
	"department":   true,
	"requested_at": true,
	"priority":     true,
	"level":        true,
}

const requestColumns = `id, title, description, priority, type, channel, level, status,
        requester_id, requester_name, department,
        assigned_to, assigned_to_name, assigned_by_id, assigned_by_name,
        estimated_hours, estimated_due, requested_at, created_at, updated_at, completion_date,
        state_history, feedback, rejection_reason, review_evidence, reabierto_count, version`

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	history, err := json.Marshal(req.StateHistory)
	if err != nil {
		return fmt.Errorf("encode state history: %w", err)
	}
	assignedTo, assignedToName := refColumns(req.Assignee)
	assignedBy, assignedByName := refColumns(req.AssignedBy)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO requests (id, title, description, priority, type, channel, level, status,
            requester_id, requester_name, department,
            assigned_to, assigned_to_name, assigned_by_id, assigned_by_name,
            estimated_hours, estimated_due, requested_at, created_at, updated_at,
            state_history, reabierto_count, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21::jsonb,0,1)`
	if _, err := tx.Exec(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		req.Priority,
		req.Type,
		req.Channel,
		req.Level,
		req.Status,
		req.Requester.ID,
		req.Requester.Name,
		req.Department,
		assignedTo,
		assignedToName,
		assignedBy,
		assignedByName,
		req.EstimatedHours,
		req.EstimatedDue,
		req.RequestedAt,
		req.CreatedAt,
		req.UpdatedAt,
		string(history),
	); err != nil {
		return err
	}

	for _, ev := range req.StateHistory {
		if err := insertStatusEvent(ctx, tx, req.ID, ev); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	req.Version = 1
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id))
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", requestStatusExpr, strings.Join(placeholders, ",")))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		clauses = append(clauses, fmt.Sprintf("level=$%d", len(args)))
	}
	if filter.Channel != nil {
		args = append(args, string(*filter.Channel))
		clauses = append(clauses, fmt.Sprintf("channel=$%d", len(args)))
	}
	if filter.RequestedFrom != nil {
		args = append(args, *filter.RequestedFrom)
		clauses = append(clauses, fmt.Sprintf("requested_at >= $%d", len(args)))
	}
	if filter.RequestedTo != nil {
		args = append(args, *filter.RequestedTo)
		clauses = append(clauses, fmt.Sprintf("requested_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	sortField := filter.SortField
	if !SortableRequestFields[sortField] {
		sortField = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY %s %s, id LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), sortField, direction, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *requestRepository) Apply(ctx context.Context, update RequestUpdate) (*domain.Request, error) {
	req := update.Request
	feedback, err := jsonColumn(req.Feedback)
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}
	evidence, err := jsonColumn(req.ReviewEvidence)
	if err != nil {
		return nil, fmt.Errorf("encode review evidence: %w", err)
	}
	appended := "[]"
	if update.AppendEvent != nil {
		data, err := json.Marshal([]domain.StateEvent{*update.AppendEvent})
		if err != nil {
			return nil, fmt.Errorf("encode state event: %w", err)
		}
		appended = string(data)
	}
	reopenDelta := 0
	if update.IncrementReopen {
		reopenDelta = 1
	}
	assignedTo, assignedToName := refColumns(req.Assignee)
	assignedBy, assignedByName := refColumns(req.AssignedBy)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
        UPDATE requests SET
            title=$3, description=$4, priority=$5, type=$6, channel=$7, level=$8, status=$9,
            department=$10, assigned_to=$11, assigned_to_name=$12, assigned_by_id=$13, assigned_by_name=$14,
            estimated_hours=$15, estimated_due=$16, updated_at=$17, completion_date=$18,
            feedback=$19::jsonb, rejection_reason=$20, review_evidence=$21::jsonb,
            state_history = state_history || $22::jsonb,
            reabierto_count = reabierto_count + $23,
            version = version + 1
        WHERE id=$1 AND version=$2
        RETURNING ` + requestColumns

	stored, err := scanRequest(tx.QueryRow(ctx, query,
		req.ID,
		update.ExpectedVersion,
		req.Title,
		req.Description,
		req.Priority,
		req.Type,
		req.Channel,
		req.Level,
		req.Status,
		req.Department,
		assignedTo,
		assignedToName,
		assignedBy,
		assignedByName,
		req.EstimatedHours,
		req.EstimatedDue,
		req.UpdatedAt,
		req.CompletionDate,
		feedback,
		req.RejectionReason,
		evidence,
		appended,
		reopenDelta,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}

	if update.AppendEvent != nil {
		if err := insertStatusEvent(ctx, tx, req.ID, *update.AppendEvent); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

// scanRequest materializes a row and normalizes its vocabulary.
func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		req                                domain.Request
		priority, reqType, channel, status string
		assignedTo, assignedToName         *string
		assignedBy, assignedByName         *string
		history, feedback, evidence        []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&priority,
		&reqType,
		&channel,
		&req.Level,
		&status,
		&req.Requester.ID,
		&req.Requester.Name,
		&req.Department,
		&assignedTo,
		&assignedToName,
		&assignedBy,
		&assignedByName,
		&req.EstimatedHours,
		&req.EstimatedDue,
		&req.RequestedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CompletionDate,
		&history,
		&feedback,
		&req.RejectionReason,
		&evidence,
		&req.ReopenCount,
		&req.Version,
	); err != nil {
		return nil, err
	}

	req.Status = domain.NormalizeStatus(status)
	req.Priority = domain.NormalizePriority(priority)
	req.Type = domain.NormalizeRequestType(reqType)
	req.Channel = domain.NormalizeChannel(channel)
	req.Assignee = refFromColumns(assignedTo, assignedToName)
	req.AssignedBy = refFromColumns(assignedBy, assignedByName)

	if len(history) > 0 {
		if err := json.Unmarshal(history, &req.StateHistory); err != nil {
			return nil, fmt.Errorf("decode state history: %w", err)
		}
		for i := range req.StateHistory {
			ev := &req.StateHistory[i]
			ev.To = domain.NormalizeStatus(string(ev.To))
			if ev.From != nil {
				from := domain.NormalizeStatus(string(*ev.From))
				ev.From = &from
			}
		}
	}
	if len(feedback) > 0 && string(feedback) != "null" {
		req.Feedback = &domain.Feedback{}
		if err := json.Unmarshal(feedback, req.Feedback); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
	}
	if len(evidence) > 0 && string(evidence) != "null" {
		req.ReviewEvidence = &domain.ReviewEvidence{}
		if err := json.Unmarshal(evidence, req.ReviewEvidence); err != nil {
			return nil, fmt.Errorf("decode review evidence: %w", err)
		}
	}
	return &req, nil
}

func refColumns(ref *domain.UserRef) (*string, *string) {
	if ref == nil || ref.ID == "" {
		return nil, nil
	}
	id, name := ref.ID, ref.Name
	return &id, &name
}

func refFromColumns(id, name *string) *domain.UserRef {
	if id == nil || *id == "" {
		return nil
	}
	ref := &domain.UserRef{ID: *id}
	if name != nil {
		ref.Name = *name
	}
	return ref
}

// jsonColumn encodes v for a nullable JSONB column.
func jsonColumn[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
