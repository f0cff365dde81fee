package service

import (
	"strings"

	"github.com/google/uuid"

	"bims/pkg/errors"
)

type ReferenceKind string

const (
	KindListingFee ReferenceKind = "listing_fee"
	KindContactFee ReferenceKind = "contact_fee"
	KindCommission ReferenceKind = "commission"
	KindPayout     ReferenceKind = "payout"
)

const referenceNamespace = "BIMS"

var kindPrefixes = map[ReferenceKind]string{
	KindListingFee: "LST",
	KindContactFee: "CNT",
	KindCommission: "COM",
	KindPayout:     "PAY",
}

// NewReference returns a gateway reference of the form BIMS-<prefix>-<uuid>.
// The gateway only echoes this string back, so the prefix is what routes a
// callback to the right entity.
func NewReference(kind ReferenceKind) string {
	return referenceNamespace + "-" + kindPrefixes[kind] + "-" + uuid.NewString()
}

func ParseReference(reference string) (ReferenceKind, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", errors.Validation("reference is required")
	}
	parts := strings.SplitN(reference, "-", 3)
	if len(parts) != 3 || parts[0] != referenceNamespace {
		return "", errors.Validation("reference is malformed")
	}
	if _, err := uuid.Parse(parts[2]); err != nil {
		return "", errors.Validation("reference is malformed")
	}
	for kind, prefix := range kindPrefixes {
		if parts[1] == prefix {
			return kind, nil
		}
	}
	return "", errors.Validation("reference has an unknown prefix")
}
