package models

import (
	"fmt"
	"strings"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	limits "barangay/pkg/platform/validation"
	"barangay/pkg/validation"
)

// TransitionCommand asks the state machine to move a resident to Target.
// ExpectedStatus and ExpectedVersion carry what the caller last read; when
// present they are compared against the stored row.
type TransitionCommand struct {
	ResidentID      id.ResidentID
	Target          Status
	Actor           Actor
	Reason          string
	ExpectedStatus  *Status
	ExpectedVersion *int
}

// Normalize trims free-text input.
func (c *TransitionCommand) Normalize() {
	if c == nil {
		return
	}
	c.Reason = strings.TrimSpace(c.Reason)
}

// Validate checks that the command is well-formed.
func (c *TransitionCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "transition command is required")
	}
	if c.ResidentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "resident ID is required")
	}
	if !c.Target.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown target status %q", c.Target))
	}
	if c.ExpectedStatus != nil && !c.ExpectedStatus.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown expected status %q", *c.ExpectedStatus))
	}
	if c.ExpectedVersion != nil && *c.ExpectedVersion < 0 {
		return dErrors.New(dErrors.CodeValidation, "expected version cannot be negative")
	}
	if err := limits.CheckStringLength("reason", c.Reason, limits.MaxReasonLength); err != nil {
		return err
	}
	return c.Actor.Validate()
}

// Authorize applies the actor policy: residents may only self-report
// updated details on their own record; staff may request any edge.
func (c *TransitionCommand) Authorize() error {
	if c.Actor.Role.IsStaff() {
		return nil
	}
	if c.Target != StatusDetailsUpdated {
		return dErrors.New(dErrors.CodeForbidden, "residents may only mark their own details as updated")
	}
	if c.Actor.ID.String() != c.ResidentID.String() {
		return dErrors.New(dErrors.CodeForbidden, "residents may only update their own record")
	}
	return nil
}

// ReopenCommand returns a rejected resident to NonVerified.
type ReopenCommand struct {
	ResidentID id.ResidentID
	Actor      Actor
	Reason     string
}

func (c *ReopenCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "reopen command is required")
	}
	if c.ResidentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "resident ID is required")
	}
	if err := c.Actor.Validate(); err != nil {
		return err
	}
	if !c.Actor.Role.IsStaff() {
		return dErrors.New(dErrors.CodeForbidden, "only staff may reopen a rejected case")
	}
	if strings.TrimSpace(c.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required to reopen a case")
	}
	return nil
}

// TransitionRequest is the HTTP body for POST /residents/{id}/transitions.
type TransitionRequest struct {
	TargetStatus    string  `json:"target_status" validate:"required,oneof=non_verified details_updated semi_verified verified rejected"`
	Reason          string  `json:"reason" validate:"max=1024"`
	ExpectedStatus  *string `json:"expected_status,omitempty" validate:"omitempty,oneof=non_verified details_updated semi_verified verified rejected"`
	ExpectedVersion *int    `json:"expected_version,omitempty" validate:"omitempty,min=0"`
}

// ReopenRequest is the HTTP body for POST /residents/{id}/reopen.
type ReopenRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1024"`
}

// RegisterRequest is the HTTP body for POST /residents.
type RegisterRequest struct {
	ResidentID string `json:"resident_id" validate:"required,uuid"`
}

// Normalize trims input and lower-cases status names.
func (r *TransitionRequest) Normalize() {
	r.TargetStatus = strings.ToLower(strings.TrimSpace(r.TargetStatus))
	if r.ExpectedStatus != nil {
		expected := strings.ToLower(strings.TrimSpace(*r.ExpectedStatus))
		r.ExpectedStatus = &expected
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *TransitionRequest) Sanitize() { r.Reason = limits.StripControl(r.Reason) }
func (r *ReopenRequest) Sanitize()     { r.Reason = limits.StripControl(r.Reason) }
func (r *ReopenRequest) Normalize()    { r.Reason = strings.TrimSpace(r.Reason) }
func (r *RegisterRequest) Normalize()  { r.ResidentID = strings.TrimSpace(r.ResidentID) }

func (r *TransitionRequest) Validate() error { return validation.Validate(r) }
func (r *ReopenRequest) Validate() error     { return validation.Validate(r) }
func (r *RegisterRequest) Validate() error   { return validation.Validate(r) }

// ToCommand builds the state machine command for the resident named in the path.
func (r *TransitionRequest) ToCommand(residentID id.ResidentID, actor Actor) *TransitionCommand {
	cmd := &TransitionCommand{
		ResidentID:      residentID,
		Target:          Status(r.TargetStatus),
		Actor:           actor,
		Reason:          r.Reason,
		ExpectedVersion: r.ExpectedVersion,
	}
	if r.ExpectedStatus != nil {
		expected := Status(*r.ExpectedStatus)
		cmd.ExpectedStatus = &expected
	}
	return cmd
}
