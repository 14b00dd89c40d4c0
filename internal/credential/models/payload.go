package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"barangay/pkg/platform/validation"
)

// maxPayloadBytes bounds what a QR scanner may hand us.
const maxPayloadBytes = validation.MaxPayloadLength

// ErrMalformedPayload is returned for any structural problem with a payload.
var ErrMalformedPayload = errors.New("malformed credential payload")

// Payload is the compact, deterministic structure a QR code carries.
type Payload struct {
	ResidentID   string
	CredentialID string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Checksum     string
	Version      int
}

// wirePayload fixes the field order and encoding of the serialized form.
type wirePayload struct {
	ResidentID   string `json:"residentId"`
	CredentialID string `json:"credentialId"`
	IssuedAt     string `json:"issuedAt"`
	ExpiresAt    string `json:"expiresAt"`
	Checksum     string `json:"checksum"`
	Version      int    `json:"version"`
}

// wireFields is used on decode so missing fields can be told apart from zero values.
type wireFields struct {
	ResidentID   *string `json:"residentId"`
	CredentialID *string `json:"credentialId"`
	IssuedAt     *string `json:"issuedAt"`
	ExpiresAt    *string `json:"expiresAt"`
	Checksum     *string `json:"checksum"`
	Version      *int    `json:"version"`
}

// Encode serializes the payload. Equal payloads always encode to identical bytes.
func (p Payload) Encode() string {
	data, err := json.Marshal(wirePayload{
		ResidentID:   p.ResidentID,
		CredentialID: p.CredentialID,
		IssuedAt:     FormatTimestamp(p.IssuedAt),
		ExpiresAt:    FormatTimestamp(p.ExpiresAt),
		Checksum:     p.Checksum,
		Version:      p.Version,
	})
	if err != nil {
		// only strings and an int; Marshal cannot fail here
		panic(fmt.Sprintf("encode credential payload: %v", err))
	}
	return string(data)
}

// ParsePayload decodes a serialized payload. Every structural failure wraps
// ErrMalformedPayload.
func ParsePayload(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, fmt.Errorf("empty payload: %w", ErrMalformedPayload)
	}
	if len(raw) > maxPayloadBytes {
		return Payload{}, fmt.Errorf("payload exceeds %d bytes: %w", maxPayloadBytes, ErrMalformedPayload)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var w wireFields
	if err := dec.Decode(&w); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %v: %w", err, ErrMalformedPayload)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("trailing data after payload: %w", ErrMalformedPayload)
	}

	if w.ResidentID == nil || w.CredentialID == nil || w.IssuedAt == nil ||
		w.ExpiresAt == nil || w.Checksum == nil || w.Version == nil {
		return Payload{}, fmt.Errorf("payload is missing a field: %w", ErrMalformedPayload)
	}
	if *w.Checksum == "" {
		return Payload{}, fmt.Errorf("checksum is empty: %w", ErrMalformedPayload)
	}
	// Only the ids feed the checksum input, so only they must stay free of
	// the separator. A bad checksum is a mismatch, not a malformed payload.
	for name, v := range map[string]string{"residentId": *w.ResidentID, "credentialId": *w.CredentialID} {
		if v == "" {
			return Payload{}, fmt.Errorf("%s is empty: %w", name, ErrMalformedPayload)
		}
		if strings.Contains(v, checksumSeparator) {
			return Payload{}, fmt.Errorf("%s contains %q: %w", name, checksumSeparator, ErrMalformedPayload)
		}
	}
	if *w.Version < 1 {
		return Payload{}, fmt.Errorf("version must be positive: %w", ErrMalformedPayload)
	}

	issuedAt, err := parseCanonicalTimestamp(*w.IssuedAt)
	if err != nil {
		return Payload{}, fmt.Errorf("issuedAt: %v: %w", err, ErrMalformedPayload)
	}
	expiresAt, err := parseCanonicalTimestamp(*w.ExpiresAt)
	if err != nil {
		return Payload{}, fmt.Errorf("expiresAt: %v: %w", err, ErrMalformedPayload)
	}
	if !expiresAt.After(issuedAt) {
		return Payload{}, fmt.Errorf("expiresAt not after issuedAt: %w", ErrMalformedPayload)
	}

	return Payload{
		ResidentID:   *w.ResidentID,
		CredentialID: *w.CredentialID,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		Checksum:     *w.Checksum,
		Version:      *w.Version,
	}, nil
}

// parseCanonicalTimestamp accepts only the exact TimestampLayout rendering so
// the checksum input is reproduced byte for byte.
func parseCanonicalTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Format(TimestampLayout) != s {
		return time.Time{}, fmt.Errorf("non-canonical timestamp %q", s)
	}
	return t, nil
}
