package repository

import (
	"context"

	"bims/internal/domain/entity"
)

type PaymentReferenceRepository interface {
	// Claim records a reference. A reference that was already claimed is a conflict.
	Claim(ctx context.Context, ref *entity.PaymentReference) error
	Get(ctx context.Context, reference string) (*entity.PaymentReference, error)
}
