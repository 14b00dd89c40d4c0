package models

import (
	"fmt"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// InvalidTransitionError reports an edge outside the legal-edge table.
func InvalidTransitionError(from, to Status) error {
	return dErrors.New(dErrors.CodeInvalidTransition, fmt.Sprintf("illegal transition %s -> %s", from, to))
}

// ConcurrentModificationError reports that another actor changed the resident
// after the caller read it. Callers re-read and retry.
func ConcurrentModificationError(residentID id.ResidentID) error {
	return dErrors.New(dErrors.CodeConcurrentModification,
		fmt.Sprintf("resident %s was modified concurrently, re-read and retry", residentID))
}
