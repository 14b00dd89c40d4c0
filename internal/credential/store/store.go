// Package store persists credentials and their scan events.
//
// Error contract:
//   - ErrNotFound when the credential (or a resident's active credential) does not exist
//   - ErrConflict when an issuance collides with an existing (resident, status, issued_at)
//     triple, version, or active credential
//   - wrapped errors with context for infrastructure failures
package store

import "barangay/internal/sentinel"

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)
