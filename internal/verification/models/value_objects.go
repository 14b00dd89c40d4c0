package models

// Status is a resident's verification level. The set is closed; values are
// ordered by trust except Rejected, which is terminal.
type Status string

const (
	StatusNonVerified    Status = "non_verified"
	StatusDetailsUpdated Status = "details_updated"
	StatusSemiVerified   Status = "semi_verified"
	StatusVerified       Status = "verified"
	StatusRejected       Status = "rejected"
)

// ValidStatuses is the single source of truth for the status enum.
var ValidStatuses = map[Status]bool{
	StatusNonVerified:    true,
	StatusDetailsUpdated: true,
	StatusSemiVerified:   true,
	StatusVerified:       true,
	StatusRejected:       true,
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return ValidStatuses[s]
}

func (s Status) String() string { return string(s) }

// legalEdges is the exhaustive transition table. Anything absent is illegal,
// which makes Verified and Rejected terminal.
var legalEdges = map[Status]map[Status]struct{}{
	StatusNonVerified: {
		StatusDetailsUpdated: {},
		StatusRejected:       {},
	},
	StatusDetailsUpdated: {
		StatusSemiVerified: {},
		StatusRejected:     {},
	},
	StatusSemiVerified: {
		StatusVerified: {},
		StatusRejected: {},
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	_, ok := legalEdges[from][to]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(legalEdges[s]) == 0
}

// QualifiesForCredential reports whether reaching s issues a credential.
func (s Status) QualifiesForCredential() bool {
	return s == StatusSemiVerified || s == StatusVerified
}

// Role is the actor's role as asserted by the external auth layer.
type Role string

const (
	RoleResident Role = "resident"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleResident || r == RoleOfficial || r == RoleAdmin
}

// IsStaff reports whether the role may approve transitions for other residents.
func (r Role) IsStaff() bool {
	return r == RoleOfficial || r == RoleAdmin
}

// Audit actions recorded on AuditEntry.Action.
const (
	AuditActionDetailsUpdated = "details_updated"
	AuditActionSemiVerified   = "semi_verified"
	AuditActionVerified       = "verified"
	AuditActionRejected       = "rejected"
	AuditActionReopened       = "reopened"
)

// ActionFor returns the audit label for a transition into target.
func ActionFor(target Status) string {
	switch target {
	case StatusDetailsUpdated:
		return AuditActionDetailsUpdated
	case StatusSemiVerified:
		return AuditActionSemiVerified
	case StatusVerified:
		return AuditActionVerified
	case StatusRejected:
		return AuditActionRejected
	default:
		return string(target)
	}
}
