package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"barangay/internal/verification/models"
	id "barangay/pkg/domain"
	txcontext "barangay/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresResidentStore persists residents in PostgreSQL.
type PostgresResidentStore struct {
	db *sql.DB
}

// NewPostgresResidentStore constructs a PostgreSQL-backed resident store.
func NewPostgresResidentStore(db *sql.DB) *PostgresResidentStore {
	return &PostgresResidentStore{db: db}
}

func (s *PostgresResidentStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresResidentStore) Create(ctx context.Context, resident *models.Resident) error {
	if resident == nil {
		return fmt.Errorf("resident is required")
	}
	query := `
		INSERT INTO residents (id, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(resident.ID),
		string(resident.Status),
		resident.Version,
		resident.CreatedAt,
		resident.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create resident: %w", err)
	}
	return nil
}

func (s *PostgresResidentStore) FindByID(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	query := `
		SELECT id, status, version, created_at, updated_at
		FROM residents
		WHERE id = $1
	`
	resident, err := scanResident(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(residentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find resident: %w", err)
	}
	return resident, nil
}

// LockByID reads the resident with a row lock held until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (s *PostgresResidentStore) LockByID(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	query := `
		SELECT id, status, version, created_at, updated_at
		FROM residents
		WHERE id = $1
		FOR UPDATE
	`
	resident, err := scanResident(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(residentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock resident: %w", err)
	}
	return resident, nil
}

// CompareAndSwap writes status and version only if the row still carries expectedVersion.
// A concurrent writer holding the row makes this statement wait, then match zero rows.
func (s *PostgresResidentStore) CompareAndSwap(ctx context.Context, resident *models.Resident, expectedVersion int) error {
	query := `
		UPDATE residents
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1 AND version = $5
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(resident.ID),
		string(resident.Status),
		resident.Version,
		resident.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update resident status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resident status rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM residents WHERE id = $1)`, uuid.UUID(resident.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check resident exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionMoved
}

// PostgresAuditStore is an insert-only audit log in PostgreSQL.
type PostgresAuditStore struct {
	db *sql.DB
}

// NewPostgresAuditStore constructs a PostgreSQL-backed audit log.
func NewPostgresAuditStore(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

func (s *PostgresAuditStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	query := `
		INSERT INTO verification_audit (
			id, resident_id, occurred_at, action, previous_status, new_status,
			actor_id, actor_role, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ResidentID),
		entry.Timestamp,
		entry.Action,
		string(entry.PreviousStatus),
		string(entry.NewStatus),
		entry.ApprovedBy.ID.String(),
		string(entry.ApprovedBy.Role),
		nullString(entry.Reason),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByResident returns entries oldest first; seq breaks timestamp ties in insert order.
func (s *PostgresAuditStore) ListByResident(ctx context.Context, residentID id.ResidentID) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, resident_id, occurred_at, action, previous_status, new_status,
			actor_id, actor_role, reason
		FROM verification_audit
		WHERE resident_id = $1
		ORDER BY occurred_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(residentID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResident(row rowScanner) (*models.Resident, error) {
	var resident models.Resident
	var residentID uuid.UUID
	var status string
	if err := row.Scan(&residentID, &status, &resident.Version, &resident.CreatedAt, &resident.UpdatedAt); err != nil {
		return nil, err
	}
	resident.ID = id.ResidentID(residentID)
	resident.Status = models.Status(status)
	return &resident, nil
}

func scanAuditEntry(row rowScanner) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	var entryID, residentID uuid.UUID
	var previous, next, actorID, role string
	var reason sql.NullString
	if err := row.Scan(&entryID, &residentID, &entry.Timestamp, &entry.Action, &previous, &next, &actorID, &role, &reason); err != nil {
		return nil, err
	}
	entry.ID = id.AuditEntryID(entryID)
	entry.ResidentID = id.ResidentID(residentID)
	entry.PreviousStatus = models.Status(previous)
	entry.NewStatus = models.Status(next)
	entry.ApprovedBy = models.Actor{ID: id.ActorID(actorID), Role: models.Role(role)}
	entry.Reason = reason.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
