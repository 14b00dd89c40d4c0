package models

import "time"

// CredentialResponse is the HTTP view of a credential, including the QR payload.
type CredentialResponse struct {
	ID            string         `json:"credential_id"`
	ResidentID    string         `json:"resident_id"`
	Status        string         `json:"status"`
	IssuedAt      time.Time      `json:"issued_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Checksum      string         `json:"checksum"`
	Version       int            `json:"version"`
	Active        bool           `json:"active"`
	ScanCount     int            `json:"scan_count"`
	LastScannedAt *time.Time     `json:"last_scanned_at,omitempty"`
	SupersededAt  *time.Time     `json:"superseded_at,omitempty"`
	NeedsRefresh  bool           `json:"needs_refresh"`
	Payload       string         `json:"payload"`
	Scans         []ScanResponse `json:"scans,omitempty"`
}

// ScanResponse is the HTTP view of a scan event.
type ScanResponse struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Location  string       `json:"location"`
	ScannedBy string       `json:"scanned_by"`
	Device    string       `json:"device,omitempty"`
	Outcome   *ScanOutcome `json:"outcome,omitempty"`
}

// ValidationResponse is the HTTP view of a validation outcome.
type ValidationResponse struct {
	Valid   bool         `json:"valid"`
	Reasons []ReasonCode `json:"reasons"`
}

func ToCredentialResponse(c *Credential, needsRefresh bool) CredentialResponse {
	resp := CredentialResponse{
		ID:            c.ID.String(),
		ResidentID:    c.ResidentID.String(),
		Status:        c.Status.String(),
		IssuedAt:      c.IssuedAt,
		ExpiresAt:     c.ExpiresAt,
		Checksum:      c.Checksum,
		Version:       c.Version,
		Active:        c.IsActive(),
		ScanCount:     c.ScanCount,
		LastScannedAt: c.LastScannedAt,
		SupersededAt:  c.SupersededAt,
		NeedsRefresh:  needsRefresh,
		Payload:       c.Payload().Encode(),
	}
	for _, s := range c.Scans {
		resp.Scans = append(resp.Scans, ScanResponse{
			ID:        s.ID.String(),
			Timestamp: s.Timestamp,
			Location:  s.Location,
			ScannedBy: s.ScannedBy.String(),
			Device:    s.Device,
			Outcome:   s.Outcome,
		})
	}
	return resp
}

func ToValidationResponse(r ValidationResult) ValidationResponse {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []ReasonCode{}
	}
	return ValidationResponse{Valid: r.Valid, Reasons: reasons}
}
