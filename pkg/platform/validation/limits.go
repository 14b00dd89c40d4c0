package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "barangay/pkg/domain-errors"
)

// MaxBodySize is the largest request body the router accepts (64 KB).
const MaxBodySize = 64 * 1024

// Free-text and token limits. Lengths are counted in runes so that
// Filipino place names with diacritics are not penalised.
const (
	// MaxReasonLength bounds the reason attached to a transition or reopen.
	MaxReasonLength = 1024

	// MaxLocationLength bounds the checkpoint name recorded with a scan.
	MaxLocationLength = 256

	// MaxDeviceLength bounds the scanner device label.
	MaxDeviceLength = 128

	// MaxPayloadLength bounds a QR payload handed over by a scanner.
	MaxPayloadLength = 2048
)

// CheckStringLength validates that a string does not exceed max runes.
func CheckStringLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", fieldName, max))
	}
	return nil
}

// TruncateString cuts value to at most max runes. Used for values such as
// device labels that come from headers rather than from the caller's body.
func TruncateString(value string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max])
}

// StripControl removes control characters (newlines, tabs, escapes) from
// single-line free text before it is stored or logged.
func StripControl(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
