package memory

import (
	"context"

	"bims/internal/domain/entity"
	"bims/pkg/errors"
)

type paymentReferenceRepository struct {
	s *Store
}

func (r *paymentReferenceRepository) Claim(_ context.Context, ref *entity.PaymentReference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.references[ref.Reference]; exists {
		return errors.Conflict("Payment reference already issued")
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = r.s.now()
	}
	clone := *ref
	r.s.references[ref.Reference] = &clone
	return nil
}

func (r *paymentReferenceRepository) Get(_ context.Context, reference string) (*entity.PaymentReference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, ok := r.s.references[reference]
	if !ok {
		return nil, errors.NotFound("Payment reference", nil)
	}
	clone := *ref
	return &clone, nil
}
