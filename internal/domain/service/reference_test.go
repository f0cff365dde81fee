package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/pkg/errors"
)

func TestNewReferenceRoundTrip(t *testing.T) {
	for _, kind := range []ReferenceKind{KindListingFee, KindContactFee, KindCommission, KindPayout} {
		ref := NewReference(kind)
		assert.True(t, strings.HasPrefix(ref, "BIMS-"), ref)

		parsed, err := ParseReference(ref)
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
}

func TestNewReferenceIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewReference(KindListingFee)
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestParseReferenceRejectsMalformed(t *testing.T) {
	for _, ref := range []string{
		"",
		"   ",
		"ORDER-123",
		"BIMS-LST",
		"BIMS-LST-not-a-uuid",
		"BIMS-XYZ-6f1c2f0e-5f55-4c57-9d7a-0b8f2d5a4c11",
		"ACME-LST-6f1c2f0e-5f55-4c57-9d7a-0b8f2d5a4c11",
	} {
		_, err := ParseReference(ref)
		assert.True(t, errors.Is(err, "VALIDATION_ERROR"), "reference %q", ref)
	}
}
