package models

import (
	"strings"

	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	limits "barangay/pkg/platform/validation"
	"barangay/pkg/validation"
)

// ScanCommand records one presentation of a credential.
type ScanCommand struct {
	CredentialID id.CredentialID
	Location     string
	ScannedBy    id.ActorID
	Device       string
	Outcome      *ScanOutcome
}

// Normalize trims free-text input.
func (c *ScanCommand) Normalize() {
	if c == nil {
		return
	}
	c.Location = strings.TrimSpace(c.Location)
	c.Device = limits.TruncateString(strings.TrimSpace(c.Device), limits.MaxDeviceLength)
}

// Validate checks that the command is well-formed.
func (c *ScanCommand) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "scan command is required")
	}
	if c.CredentialID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "credential ID is required")
	}
	if c.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if err := limits.CheckStringLength("location", c.Location, limits.MaxLocationLength); err != nil {
		return err
	}
	if c.ScannedBy.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "scanned_by is required")
	}
	if c.Outcome != nil {
		for _, r := range c.Outcome.Reasons {
			if !r.IsValid() {
				return dErrors.New(dErrors.CodeValidation, "unknown reason code "+string(r))
			}
		}
	}
	return nil
}

// ValidateRequest is the HTTP body for POST /credentials/validate. Payload
// carries no validation tags: an empty or oversized payload is a malformed
// credential, answered with reasons rather than a 400.
type ValidateRequest struct {
	Payload            string  `json:"payload"`
	ExpectedResidentID *string `json:"expected_resident_id,omitempty" validate:"omitempty,uuid"`
}

// ScanRequest is the HTTP body for POST /credentials/{id}/scans.
type ScanRequest struct {
	Location string       `json:"location" validate:"required,notblank,max=256"`
	Outcome  *ScanOutcome `json:"outcome,omitempty"`
}

// Normalize trims input; handheld scanners often append a newline to the
// decoded QR text.
// A blank expected_resident_id means no binding.
func (r *ValidateRequest) Normalize() {
	r.Payload = strings.TrimSpace(r.Payload)
	if r.ExpectedResidentID != nil {
		trimmed := strings.TrimSpace(*r.ExpectedResidentID)
		r.ExpectedResidentID = &trimmed
		if trimmed == "" {
			r.ExpectedResidentID = nil
		}
	}
}

func (r *ScanRequest) Sanitize()  { r.Location = limits.StripControl(r.Location) }
func (r *ScanRequest) Normalize() { r.Location = strings.TrimSpace(r.Location) }

func (r *ValidateRequest) Validate() error { return validation.Validate(r) }
func (r *ScanRequest) Validate() error     { return validation.Validate(r) }

// ExpectedResident parses the optional resident binding. Call after Validate.
func (r *ValidateRequest) ExpectedResident() (*id.ResidentID, error) {
	if r.ExpectedResidentID == nil {
		return nil, nil
	}
	residentID, err := id.ParseResidentID(*r.ExpectedResidentID)
	if err != nil {
		return nil, err
	}
	return &residentID, nil
}
