package secrets

import (
	"crypto/rand"
	"encoding/base64"

	dErrors "barangay/pkg/domain-errors"
)

// Size is the number of random bytes behind a generated secret.
const Size = 32

// Generate returns a URL-safe base64 secret suitable for HMAC keys.
func Generate() (string, error) {
	buf := make([]byte, Size)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
