// Package models holds the credential aggregate, its wire payload and the
// checksum that ties them together.
//
// Domain purity: no I/O, no context.Context and no time.Now() calls. Time is
// always received from the service layer.
package models

import (
	"time"

	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// Credential is a time-boxed proof of a resident's verification status.
//
// Invariants:
//   - ExpiresAt is strictly after IssuedAt
//   - Checksum always equals Checksummer.Sum over the immutable fields
//   - SupersededAt is nil for the resident's single active credential
type Credential struct {
	ID            id.CredentialID
	ResidentID    id.ResidentID
	Status        vmodels.Status
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Checksum      string
	Version       int
	ScanCount     int
	LastScannedAt *time.Time
	SupersededAt  *time.Time
	Scans         []ScanEvent
}

// NewCredential assembles a credential and seals it with a checksum.
// issuedAt is canonicalised so the stored value and the payload agree byte for byte.
func NewCredential(
	credentialID id.CredentialID,
	residentID id.ResidentID,
	status vmodels.Status,
	issuedAt time.Time,
	validity time.Duration,
	version int,
	sum *Checksummer,
) (*Credential, error) {
	if credentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential ID required")
	}
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "resident ID required")
	}
	if !status.QualifiesForCredential() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "status "+status.String()+" does not qualify for a credential")
	}
	if issuedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issue time required")
	}
	if validity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "validity window must be positive")
	}
	if version < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential version starts at 1")
	}

	issuedAt = CanonicalTime(issuedAt)
	expiresAt := CanonicalTime(issuedAt.Add(validity))
	if !expiresAt.After(issuedAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expires_at must be after issued_at")
	}

	return &Credential{
		ID:         credentialID,
		ResidentID: residentID,
		Status:     status,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Checksum:   sum.Sum(residentID.String(), issuedAt, credentialID.String(), version),
		Version:    version,
	}, nil
}

// IsActive reports whether the credential has not been superseded.
func (c *Credential) IsActive() bool {
	return c.SupersededAt == nil
}

// IsExpiredAt reports whether now has reached the expiry instant.
func (c *Credential) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Supersede retires the credential. Calling it twice keeps the first instant.
func (c *Credential) Supersede(now time.Time) {
	if c.SupersededAt != nil {
		return
	}
	t := now
	c.SupersededAt = &t
}

// RecordScan appends a scan and updates the counters.
func (c *Credential) RecordScan(scan ScanEvent) {
	c.Scans = append(c.Scans, scan)
	c.ScanCount++
	t := scan.Timestamp
	c.LastScannedAt = &t
}

// NeedsRefreshAt reports whether fewer than threshold remain before expiry.
func (c *Credential) NeedsRefreshAt(now time.Time, threshold time.Duration) bool {
	return c.ExpiresAt.Sub(now) < threshold
}

// Payload returns the wire form encoded into the QR code.
func (c *Credential) Payload() Payload {
	return Payload{
		ResidentID:   c.ResidentID.String(),
		CredentialID: c.ID.String(),
		IssuedAt:     c.IssuedAt,
		ExpiresAt:    c.ExpiresAt,
		Checksum:     c.Checksum,
		Version:      c.Version,
	}
}

// ActiveSnapshot is the immutable part of a resident's active credential:
// every field validation compares a payload against. Scan counters are left
// out so recording a scan never stales a cached snapshot.
type ActiveSnapshot struct {
	CredentialID id.CredentialID
	ResidentID   id.ResidentID
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Checksum     string
	Version      int
}

// Snapshot captures the fields a cached copy may carry.
func (c *Credential) Snapshot() *ActiveSnapshot {
	return &ActiveSnapshot{
		CredentialID: c.ID,
		ResidentID:   c.ResidentID,
		IssuedAt:     c.IssuedAt,
		ExpiresAt:    c.ExpiresAt,
		Checksum:     c.Checksum,
		Version:      c.Version,
	}
}

// ScanEvent is one presentation of a credential at a counter.
type ScanEvent struct {
	ID           id.ScanID
	CredentialID id.CredentialID
	Timestamp    time.Time
	Location     string
	ScannedBy    id.ActorID
	Device       string
	Outcome      *ScanOutcome
}

// ScanOutcome is the validation result observed when the scan happened, if any.
type ScanOutcome struct {
	Valid   bool         `json:"valid"`
	Reasons []ReasonCode `json:"reasons"`
}

// ReasonCode is a displayable validation failure.
type ReasonCode string

const (
	ReasonMalformed        ReasonCode = "malformed"
	ReasonChecksumMismatch ReasonCode = "checksum_mismatch"
	ReasonExpired          ReasonCode = "expired"
	ReasonResidentMismatch ReasonCode = "resident_mismatch"
	ReasonSuperseded       ReasonCode = "superseded"
)

var validReasons = map[ReasonCode]bool{
	ReasonMalformed:        true,
	ReasonChecksumMismatch: true,
	ReasonExpired:          true,
	ReasonResidentMismatch: true,
	ReasonSuperseded:       true,
}

func (r ReasonCode) IsValid() bool { return validReasons[r] }

// ValidationResult is returned by the validator; it never carries an error.
// Payload is nil when the input could not be parsed.
type ValidationResult struct {
	Valid   bool
	Reasons []ReasonCode
	Payload *Payload
}
