package memory

import (
	"context"

	"bims/internal/domain/entity"
	"bims/pkg/errors"
)

type contactRequestRepository struct {
	s *Store
}

func (r *contactRequestRepository) Create(_ context.Context, request *entity.ContactRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if request.ID == "" {
		request.ID = r.s.newID()
	}
	for _, existing := range r.s.contacts {
		if existing.TransactionID == request.TransactionID {
			return errors.Conflict("Transaction reference already in use")
		}
	}
	now := r.s.now()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	clone := *request
	r.s.contacts[request.ID] = &clone
	r.s.track(request.ID)
	return nil
}

func (r *contactRequestRepository) GetByID(_ context.Context, id string) (*entity.ContactRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	request, ok := r.s.contacts[id]
	if !ok {
		return nil, errors.NotFound("Contact request", nil)
	}
	clone := *request
	return &clone, nil
}

func (r *contactRequestRepository) GetByTransactionID(_ context.Context, transactionID string) (*entity.ContactRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, request := range r.s.contacts {
		if request.TransactionID == transactionID {
			clone := *request
			return &clone, nil
		}
	}
	return nil, errors.NotFound("Contact request", nil)
}

func (r *contactRequestRepository) HasPaid(_ context.Context, buyerID, listingID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, request := range r.s.contacts {
		if request.BuyerID == buyerID && request.ListingID == listingID && request.Status == entity.ContactStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (r *contactRequestRepository) MarkPaid(_ context.Context, transactionID string) (*entity.ContactRequest, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, request := range r.s.contacts {
		if request.TransactionID != transactionID {
			continue
		}
		if request.Status == entity.ContactStatusPaid {
			clone := *request
			return &clone, false, nil
		}
		now := r.s.now()
		request.Status = entity.ContactStatusPaid
		request.PaidAt = &now
		request.UpdatedAt = now
		clone := *request
		return &clone, true, nil
	}
	return nil, false, errors.NotFound("Contact request", nil)
}
