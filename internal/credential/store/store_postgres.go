package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"barangay/internal/credential/models"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	txcontext "barangay/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists credentials and scans in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed credential store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const credentialColumns = `
	id, resident_id, status, issued_at, expires_at, checksum, version,
	scan_count, last_scanned_at, superseded_at
`

func (s *PostgresStore) Create(ctx context.Context, credential *models.Credential) error {
	if credential == nil {
		return fmt.Errorf("credential is required")
	}
	query := `
		INSERT INTO credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT credentials_issuance_unique DO NOTHING
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		credential.ID.String(),
		uuid.UUID(credential.ResidentID),
		string(credential.Status),
		credential.IssuedAt,
		credential.ExpiresAt,
		credential.Checksum,
		credential.Version,
		credential.ScanCount,
		credential.LastScannedAt,
		credential.SupersededAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// FindByID loads a credential together with its scans, oldest first.
func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	credential, err := scanCredential(s.execer(ctx).QueryRowContext(ctx, query, credentialID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	scans, err := s.listScans(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	credential.Scans = scans
	return credential, nil
}

func (s *PostgresStore) FindActiveByResident(ctx context.Context, residentID id.ResidentID) (*models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE resident_id = $1 AND superseded_at IS NULL
	`
	credential, err := scanCredential(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(residentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active credential: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) FindByIssuance(ctx context.Context, residentID id.ResidentID, status vmodels.Status, issuedAt time.Time) (*models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE resident_id = $1 AND status = $2 AND issued_at = $3
	`
	credential, err := scanCredential(s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(residentID), string(status), issuedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credential by issuance: %w", err)
	}
	return credential, nil
}

func (s *PostgresStore) NextVersion(ctx context.Context, residentID id.ResidentID) (int, error) {
	var next int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM credentials WHERE resident_id = $1`,
		uuid.UUID(residentID),
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next credential version: %w", err)
	}
	return next, nil
}

// SupersedeActive retires the active credential. The partial unique index
// guarantees at most one row matches.
func (s *PostgresStore) SupersedeActive(ctx context.Context, residentID id.ResidentID, at time.Time) (*models.Credential, error) {
	query := `
		UPDATE credentials
		SET superseded_at = $2
		WHERE resident_id = $1 AND superseded_at IS NULL
		RETURNING ` + credentialColumns
	credential, err := scanCredential(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(residentID), at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("supersede credential: %w", err)
	}
	return credential, nil
}

// AppendScan inserts the scan and bumps the counters in one statement pair;
// run it inside a transaction to keep them consistent.
func (s *PostgresStore) AppendScan(ctx context.Context, scan *models.ScanEvent) (*models.Credential, error) {
	if scan == nil {
		return nil, fmt.Errorf("scan is required")
	}
	update := `
		UPDATE credentials
		SET scan_count = scan_count + 1, last_scanned_at = $2
		WHERE id = $1
		RETURNING ` + credentialColumns
	credential, err := scanCredential(s.execer(ctx).QueryRowContext(ctx, update, scan.CredentialID.String(), scan.Timestamp))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update scan counters: %w", err)
	}

	var outcome []byte
	if scan.Outcome != nil {
		outcome, err = json.Marshal(scan.Outcome)
		if err != nil {
			return nil, fmt.Errorf("encode scan outcome: %w", err)
		}
	}
	insert := `
		INSERT INTO credential_scans (id, credential_id, scanned_at, location, scanned_by, device, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, insert,
		uuid.UUID(scan.ID),
		scan.CredentialID.String(),
		scan.Timestamp,
		scan.Location,
		scan.ScannedBy.String(),
		sql.NullString{String: scan.Device, Valid: scan.Device != ""},
		outcome,
	); err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	scans, err := s.listScans(ctx, scan.CredentialID)
	if err != nil {
		return nil, err
	}
	credential.Scans = scans
	return credential, nil
}

func (s *PostgresStore) listScans(ctx context.Context, credentialID id.CredentialID) ([]models.ScanEvent, error) {
	query := `
		SELECT id, credential_id, scanned_at, location, scanned_by, device, outcome
		FROM credential_scans
		WHERE credential_id = $1
		ORDER BY scanned_at ASC, seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, credentialID.String())
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := make([]models.ScanEvent, 0)
	for rows.Next() {
		var scan models.ScanEvent
		var scanID uuid.UUID
		var credID, scannedBy string
		var device sql.NullString
		var outcome []byte
		if err := rows.Scan(&scanID, &credID, &scan.Timestamp, &scan.Location, &scannedBy, &device, &outcome); err != nil {
			return nil, fmt.Errorf("scan credential scan: %w", err)
		}
		scan.ID = id.ScanID(scanID)
		scan.CredentialID = id.CredentialID(credID)
		scan.ScannedBy = id.ActorID(scannedBy)
		scan.Device = device.String
		if len(outcome) > 0 {
			var o models.ScanOutcome
			if err := json.Unmarshal(outcome, &o); err != nil {
				return nil, fmt.Errorf("decode scan outcome: %w", err)
			}
			scan.Outcome = &o
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var c models.Credential
	var credentialID, status string
	var residentID uuid.UUID
	var lastScannedAt, supersededAt sql.NullTime
	if err := row.Scan(
		&credentialID, &residentID, &status, &c.IssuedAt, &c.ExpiresAt, &c.Checksum, &c.Version,
		&c.ScanCount, &lastScannedAt, &supersededAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CredentialID(credentialID)
	c.ResidentID = id.ResidentID(residentID)
	c.Status = vmodels.Status(status)
	c.IssuedAt = models.CanonicalTime(c.IssuedAt)
	c.ExpiresAt = models.CanonicalTime(c.ExpiresAt)
	if lastScannedAt.Valid {
		t := lastScannedAt.Time
		c.LastScannedAt = &t
	}
	if supersededAt.Valid {
		t := supersededAt.Time
		c.SupersededAt = &t
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
