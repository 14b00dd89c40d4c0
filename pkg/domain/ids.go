// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "barangay/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a ResidentID where an AuditEntryID is expected.
type (
	ResidentID   uuid.UUID
	AuditEntryID uuid.UUID
	ScanID       uuid.UUID
)

// CredentialID is a prefixed string identifier ("cred_" + UUIDv7).
// The v7 layout makes ids time-ordered with a random tail.
type CredentialID string

// ActorID identifies a staff member or resident as asserted by the external auth layer.
type ActorID string

const credentialIDPrefix = "cred_"

// NewCredentialID mints a fresh credential id. uuid.NewV7 is monotonic within
// the process and random across processes.
func NewCredentialID() CredentialID {
	return CredentialID(credentialIDPrefix + uuid.Must(uuid.NewV7()).String())
}

func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }
func NewScanID() ScanID             { return ScanID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseResidentID(s string) (ResidentID, error) {
	id, err := parseUUID(s, "resident ID")
	return ResidentID(id), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	raw, ok := strings.CutPrefix(s, credentialIDPrefix)
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID must start with "+credentialIDPrefix)
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID format")
	}
	return CredentialID(s), nil
}

func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor ID cannot be empty")
	}
	return ActorID(s), nil
}

// String methods - for logging and debugging.

func (id ResidentID) String() string   { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string { return uuid.UUID(id).String() }
func (id ScanID) String() string       { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return string(id) }
func (id ActorID) String() string      { return string(id) }

// IsNil checks - used for service-layer validation.

func (id ResidentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return id == "" }
func (id ActorID) IsNil() bool      { return id == "" }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; services reject them with IsNil so store
// lookups can still return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
