package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

const maxBatch = 1000

// Store implements outbox.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append adds a new entry to the outbox table.
func (s *Store) Append(ctx context.Context, entry *outbox.Entry) error {
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed returns up to limit pending entries.
// FOR UPDATE SKIP LOCKED lets concurrent workers split the backlog when called inside a tx.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if limit > maxBatch {
		limit = maxBatch
	}
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, processed_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*outbox.Entry, 0, limit)
	for rows.Next() {
		var e outbox.Entry
		var processedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if processedAt.Valid {
			e.ProcessedAt = &processedAt.Time
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkProcessed marks an entry as successfully published.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE outbox SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`, id, processedAt)
	if err != nil {
		return fmt.Errorf("mark outbox entry processed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox entry not found or already processed: %s", id)
	}
	return nil
}

// CountPending returns the number of unprocessed entries.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

// DeleteProcessedBefore removes old processed entries.
func (s *Store) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete processed entries: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}
