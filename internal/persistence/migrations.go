package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// indexStatements are applied best-effort after the schema exists.
var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_requested_at ON requests (requested_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_department ON requests (department)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_requester ON requests (requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_assignee ON requests (assigned_to, assigned_to_name)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_type ON requests (type)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_level ON requests (level)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_channel ON requests (channel)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_completion ON requests (completion_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_estimated_due ON requests (estimated_due)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_feedback_rating ON requests ((feedback->>'rating'))`,
	`CREATE INDEX IF NOT EXISTS idx_requests_text ON requests USING GIN (to_tsvector('simple', title || ' ' || description))`,
	`CREATE INDEX IF NOT EXISTS idx_status_events_ticket ON ticket_status_events (ticket_id, changed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_status_events_status ON ticket_status_events (status)`,
	`CREATE INDEX IF NOT EXISTS idx_status_events_actor ON ticket_status_events (changed_by, changed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_worklogs_ticket ON worklogs (ticket_id)`,
	`CREATE INDEX IF NOT EXISTS idx_worklogs_user ON worklogs (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_worklogs_date ON worklogs (log_date DESC)`,
}

// RunMigrations executes the embedded SQL migrations in lexical order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		content, err := migrationFiles.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		logger.Info("applying migration", zap.String("file", name))
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(filenames)))
	return nil
}

// EnsureIndexes creates secondary indexes. Failures are logged and skipped.
func EnsureIndexes(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	if pool == nil {
		return
	}
	created := 0
	for _, stmt := range indexStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Warn("index setup failed", zap.String("statement", stmt), zap.Error(err))
			continue
		}
		created++
	}
	logger.Info("indexes ensured", zap.Int("count", created), zap.Int("total", len(indexStatements)))
}
