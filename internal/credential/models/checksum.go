package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the canonical timestamp encoding used in payloads and
// checksum input: UTC with a fixed six-digit fraction.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// checksumSeparator joins checksum fields. Payload parsing rejects ids containing it.
const checksumSeparator = "|"

// CanonicalTime normalises t to the precision and zone every store can round-trip.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return CanonicalTime(t).Format(TimestampLayout)
}

// ChecksumInput is the documented combination function:
//
//	residentId|issuedAt|credentialId|version
//
// with issuedAt in TimestampLayout and version in base 10.
func ChecksumInput(residentID string, issuedAt time.Time, credentialID string, version int) string {
	var b strings.Builder
	b.WriteString(residentID)
	b.WriteString(checksumSeparator)
	b.WriteString(FormatTimestamp(issuedAt))
	b.WriteString(checksumSeparator)
	b.WriteString(credentialID)
	b.WriteString(checksumSeparator)
	b.WriteString(strconv.Itoa(version))
	return b.String()
}

// Checksummer computes credential checksums. Without a key it is a plain
// SHA-256 digest that anyone can recompute; with a key it is HMAC-SHA256.
type Checksummer struct {
	key []byte
}

// NewChecksummer returns a checksummer; an empty key selects plain SHA-256.
func NewChecksummer(key []byte) *Checksummer {
	return &Checksummer{key: key}
}

// Keyed reports whether checksums depend on a server-held secret.
func (c *Checksummer) Keyed() bool {
	return c != nil && len(c.key) > 0
}

// Sum returns the lowercase hex checksum for the given fields.
func (c *Checksummer) Sum(residentID string, issuedAt time.Time, credentialID string, version int) string {
	var h hash.Hash
	if c.Keyed() {
		h = hmac.New(sha256.New, c.key)
	} else {
		h = sha256.New()
	}
	h.Write([]byte(ChecksumInput(residentID, issuedAt, credentialID, version)))
	return hex.EncodeToString(h.Sum(nil))
}

// Matches recomputes the checksum of p and compares it in constant time.
func (c *Checksummer) Matches(p Payload) bool {
	want := c.Sum(p.ResidentID, p.IssuedAt, p.CredentialID, p.Version)
	return subtle.ConstantTimeCompare([]byte(want), []byte(p.Checksum)) == 1
}
