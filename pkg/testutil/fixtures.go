package testutil

import (
	"time"

	"github.com/google/uuid"

	cmodels "barangay/internal/credential/models"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
var TestIDs = struct {
	ResidentID1 id.ResidentID
	ResidentID2 id.ResidentID
	OfficialA   id.ActorID
	OfficialB   id.ActorID
}{
	ResidentID1: id.ResidentID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	ResidentID2: id.ResidentID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	OfficialA:   id.ActorID("OfficialA"),
	OfficialB:   id.ActorID("OfficialB"),
}

// T0 is the reference instant used across fixtures.
var T0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// ResidentBuilder provides a fluent interface for building test residents.
type ResidentBuilder struct {
	resident *vmodels.Resident
}

// NewResidentBuilder starts from a fresh NonVerified resident registered an hour before T0.
func NewResidentBuilder() *ResidentBuilder {
	return &ResidentBuilder{
		resident: &vmodels.Resident{
			ID:        id.ResidentID(uuid.New()),
			Status:    vmodels.StatusNonVerified,
			CreatedAt: T0.Add(-time.Hour),
			UpdatedAt: T0.Add(-time.Hour),
		},
	}
}

func (b *ResidentBuilder) WithID(residentID id.ResidentID) *ResidentBuilder {
	b.resident.ID = residentID
	return b
}

// WithStatus sets the status directly; it does not walk the transition table.
func (b *ResidentBuilder) WithStatus(status vmodels.Status, version int) *ResidentBuilder {
	b.resident.Status = status
	b.resident.Version = version
	return b
}

func (b *ResidentBuilder) Build() *vmodels.Resident {
	r := *b.resident
	return &r
}

// Official returns a staff actor.
func Official(actorID id.ActorID) vmodels.Actor {
	return vmodels.Actor{ID: actorID, Role: vmodels.RoleOfficial}
}

// Self returns the resident acting on their own record.
func Self(residentID id.ResidentID) vmodels.Actor {
	return vmodels.Actor{ID: id.ActorID(residentID.String()), Role: vmodels.RoleResident}
}

// NewCredential seals a credential for residentID issued at issuedAt with a 24h window.
func NewCredential(residentID id.ResidentID, status vmodels.Status, issuedAt time.Time, version int, key []byte) *cmodels.Credential {
	c, err := cmodels.NewCredential(id.NewCredentialID(), residentID, status, issuedAt, 24*time.Hour, version, cmodels.NewChecksummer(key))
	if err != nil {
		panic(err)
	}
	return c
}
