// Package outbox implements the transactional outbox: domain events are
// written in the same transaction as the state change and published later.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate types.
const (
	AggregateResident   = "resident"
	AggregateCredential = "credential"
)

// Event types.
const (
	EventResidentRegistered     = "verification.resident_registered"
	EventVerificationTransition = "verification.transitioned"
	EventVerificationReopened   = "verification.reopened"
	EventCredentialIssued       = "credential.issued"
	EventCredentialSuperseded   = "credential.superseded"
)

// Entry represents a pending event in the outbox table.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte     // JSON document
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil = pending
}

// IsPending returns true if this entry has not been published yet.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry encodes payload as JSON and wraps it in a pending entry.
func NewEntry(aggregateType, aggregateID, eventType string, payload any, now time.Time) (*Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		CreatedAt:     now,
	}, nil
}
