package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "barangay/pkg/domain-errors"
)

func TestParseResidentID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseResidentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseResidentID("R1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseResidentID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, ResidentID(raw), id)
		assert.False(t, id.IsNil())
	})
}

func TestCredentialID(t *testing.T) {
	t.Run("minted ids are prefixed and parse back", func(t *testing.T) {
		id := NewCredentialID()
		assert.True(t, strings.HasPrefix(id.String(), "cred_"))

		parsed, err := ParseCredentialID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("minted ids are unique and ordered", func(t *testing.T) {
		prev := NewCredentialID()
		for range 500 {
			next := NewCredentialID()
			require.NotEqual(t, prev, next)
			require.Less(t, prev.String(), next.String())
			prev = next
		}
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseCredentialID(uuid.NewString())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects garbage after prefix", func(t *testing.T) {
		_, err := ParseCredentialID("cred_nope")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseActorID(t *testing.T) {
	_, err := ParseActorID("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	id, err := ParseActorID(" official-a ")
	require.NoError(t, err)
	assert.Equal(t, ActorID("official-a"), id)
}
