// Package store persists residents and their append-only audit trail.
//
// Error contract:
//   - ErrNotFound when the resident does not exist
//   - ErrConflict when registering a resident twice
//   - ErrVersionMoved when a compare-and-swap lost to another writer
//   - wrapped errors with context for infrastructure failures
package store

import "barangay/internal/sentinel"

var (
	ErrNotFound     = sentinel.ErrNotFound
	ErrConflict     = sentinel.ErrConflict
	ErrVersionMoved = sentinel.ErrVersionMoved
)
