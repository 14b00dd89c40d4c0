package models

import "time"

// ResidentResponse is the HTTP view of a resident.
type ResidentResponse struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToResidentResponse(r *Resident) ResidentResponse {
	return ResidentResponse{
		ID:        r.ID.String(),
		Status:    r.Status,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// AuditEntryResponse is the HTTP view of one audit row.
type AuditEntryResponse struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
	ApprovedBy     Actor     `json:"approved_by"`
	Reason         string    `json:"reason,omitempty"`
}

// AuditHistoryResponse lists a resident's entries oldest first.
type AuditHistoryResponse struct {
	ResidentID string               `json:"resident_id"`
	Entries    []AuditEntryResponse `json:"entries"`
}

func ToAuditHistoryResponse(residentID string, entries []*AuditEntry) AuditHistoryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToAuditEntryResponse(e))
	}
	return AuditHistoryResponse{ResidentID: residentID, Entries: out}
}

func ToAuditEntryResponse(e *AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:             e.ID.String(),
		Timestamp:      e.Timestamp,
		Action:         e.Action,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		ApprovedBy:     e.ApprovedBy,
		Reason:         e.Reason,
	}
}
