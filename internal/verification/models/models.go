package models

import (
	"fmt"
	"time"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// Resident is the identity anchor whose verification status this subsystem owns.
// Profile fields belong to the profile subsystem and are not modelled here.
//
// Invariants:
//   - Status only changes through ApplyTransition or Reopen
//   - Version increments by exactly one per accepted change and is the
//     optimistic-concurrency token used by stores
type Resident struct {
	ID        id.ResidentID
	Status    Status
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewResident registers a resident at the bottom of the trust ladder.
func NewResident(residentID id.ResidentID, now time.Time) (*Resident, error) {
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "resident ID required")
	}
	if now.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration time required")
	}
	return &Resident{
		ID:        residentID,
		Status:    StatusNonVerified,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyTransition moves the resident to target. observed is the status the
// caller based its decision on; the edge is judged against it first, then
// against the stored status. The version is bumped on success.
func (r *Resident) ApplyTransition(observed, target Status, now time.Time) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", target))
	}
	if !CanTransition(observed, target) {
		return InvalidTransitionError(observed, target)
	}
	if observed != r.Status {
		return ConcurrentModificationError(r.ID)
	}
	r.Status = target
	r.Version++
	r.UpdatedAt = now
	return nil
}

// Reopen returns a rejected resident to NonVerified. It is deliberately not an
// edge of the transition table.
func (r *Resident) Reopen(now time.Time) error {
	if r.Status != StatusRejected {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("only rejected residents can be reopened, current status is %s", r.Status))
	}
	r.Status = StatusNonVerified
	r.Version++
	r.UpdatedAt = now
	return nil
}

// Actor is the authenticated principal driving a change.
type Actor struct {
	ID   id.ActorID `json:"id"`
	Role Role       `json:"role"`
}

func (a Actor) Validate() error {
	if a.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "actor ID is required")
	}
	if !a.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown actor role %q", a.Role))
	}
	return nil
}

// CanAccess reports whether the actor may read or act on the resident's
// record: staff see every record, residents only their own.
func (a Actor) CanAccess(residentID id.ResidentID) bool {
	if a.Role.IsStaff() {
		return true
	}
	return a.Role == RoleResident && a.ID.String() == residentID.String()
}

// AuditEntry is one immutable row of a resident's verification history.
type AuditEntry struct {
	ID             id.AuditEntryID
	ResidentID     id.ResidentID
	Timestamp      time.Time
	Action         string
	PreviousStatus Status
	NewStatus      Status
	ApprovedBy     Actor
	Reason         string
}

// NewAuditEntry builds the entry for an accepted change.
func NewAuditEntry(residentID id.ResidentID, action string, previous, next Status, actor Actor, reason string, now time.Time) (*AuditEntry, error) {
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "resident ID required")
	}
	if action == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit action required")
	}
	if err := actor.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "audit actor invalid")
	}
	return &AuditEntry{
		ID:             id.NewAuditEntryID(),
		ResidentID:     residentID,
		Timestamp:      now,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      next,
		ApprovedBy:     actor,
		Reason:         reason,
	}, nil
}
