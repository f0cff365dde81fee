package memory

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

type listingRepository struct {
	s *Store
}

func cloneListing(l *entity.Listing) *entity.Listing {
	clone := *l
	if l.Images != nil {
		clone.Images = append([]string(nil), l.Images...)
	}
	if l.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(l.Metadata))
		for k, v := range l.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// transactionInUse must be called with the store lock held.
func (r *listingRepository) transactionInUse(reference, exceptID string) bool {
	if reference == "" {
		return false
	}
	for id, l := range r.s.listings {
		if id != exceptID && l.TransactionID == reference {
			return true
		}
	}
	return false
}

func (r *listingRepository) Create(_ context.Context, listing *entity.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if listing.ID == "" {
		listing.ID = r.s.newID()
	}
	if _, exists := r.s.listings[listing.ID]; exists {
		return errors.Conflict("Listing already exists")
	}
	if r.transactionInUse(listing.TransactionID, listing.ID) {
		return errors.Conflict("Transaction reference already in use")
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = r.s.now()
	}

	r.s.listings[listing.ID] = cloneListing(listing)
	r.s.track(listing.ID)
	return nil
}

func (r *listingRepository) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	listing, ok := r.s.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return cloneListing(listing), nil
}

func (r *listingRepository) GetByTransactionID(_ context.Context, transactionID string) (*entity.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, listing := range r.s.listings {
		if listing.TransactionID == transactionID {
			return cloneListing(listing), nil
		}
	}
	return nil, errors.NotFound("Listing", nil)
}

func (r *listingRepository) List(_ context.Context, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*entity.Listing
	for _, listing := range r.s.listings {
		if matchesListing(listing, filter) {
			matched = append(matched, cloneListing(listing))
		}
	}
	sortNewestFirst(r.s, matched, func(l *entity.Listing) time.Time { return l.CreatedAt }, func(l *entity.Listing) string { return l.ID })

	return page(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func matchesListing(l *entity.Listing, f repository.ListingFilter) bool {
	switch {
	case f.OwnerID != "" && l.OwnerID != f.OwnerID:
		return false
	case f.Type != "" && l.Type != f.Type:
		return false
	case f.Location != "" && !strings.EqualFold(l.Location, f.Location):
		return false
	case f.Status != "" && l.Status != f.Status:
		return false
	case f.VerificationStatus != "" && l.VerificationStatus != f.VerificationStatus:
		return false
	case f.PaymentStatus != "" && l.PaymentStatus != f.PaymentStatus:
		return false
	case f.AssignedBroker != "" && l.AssignedBroker != f.AssignedBroker:
		return false
	case f.HasBroker && l.AssignedBroker == "":
		return false
	case f.MinPrice > 0 && l.Price < f.MinPrice:
		return false
	case f.MaxPrice > 0 && l.Price > f.MaxPrice:
		return false
	}
	return true
}

func (r *listingRepository) Update(_ context.Context, id string, fn func(listing *entity.Listing) error) (*entity.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}

	working := cloneListing(stored)
	if err := fn(working); err != nil {
		if stderrors.Is(err, repository.ErrNoChange) {
			return cloneListing(stored), nil
		}
		return nil, err
	}
	if r.transactionInUse(working.TransactionID, id) {
		return nil, errors.Conflict("Transaction reference already in use")
	}

	working.ID = id
	r.s.listings[id] = working
	return cloneListing(working), nil
}

func (r *listingRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.listings[id]; !ok {
		return errors.NotFound("Listing", nil)
	}
	delete(r.s.listings, id)
	delete(r.s.order, id)
	return nil
}

func (r *listingRepository) ListStale(_ context.Context, createdBefore time.Time) ([]*entity.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var stale []*entity.Listing
	for _, listing := range r.s.listings {
		if listing.Stage == entity.StageAwaitingPayment && !listing.FeePaid() && listing.CreatedAt.Before(createdBefore) {
			stale = append(stale, cloneListing(listing))
		}
	}
	return stale, nil
}
