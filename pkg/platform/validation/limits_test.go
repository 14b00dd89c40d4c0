package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "barangay/pkg/domain-errors"
)

// LimitsSuite checks the boundary behaviour of the length helpers:
// max passes, max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("reason", strings.Repeat("a", MaxReasonLength), MaxReasonLength))
	})

	s.Run("passes on empty value", func() {
		s.NoError(CheckStringLength("location", "", MaxLocationLength))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("location", strings.Repeat("a", MaxLocationLength+1), MaxLocationLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "location must be at most 256 characters")
	})

	s.Run("counts runes rather than bytes", func() {
		value := strings.Repeat("ñ", 10)
		s.Len(value, 20)
		s.NoError(CheckStringLength("location", value, 10))
	})
}

func (s *LimitsSuite) TestTruncateString() {
	s.Equal("Pixel", TruncateString("Pixel", 10))
	s.Equal("Pix", TruncateString("Pixel", 3))
	s.Equal("Parañ", TruncateString("Parañaque", 5))
	s.Equal("", TruncateString("Pixel", 0))
}

func (s *LimitsSuite) TestStripControl() {
	s.Equal("Purok 3 gate", StripControl("Purok 3 gate"))
	s.Equal("checkpointforged", StripControl("checkpoint\nforged"))
	s.Equal("Parañaque", StripControl("Parañaque\x1b"))
}
