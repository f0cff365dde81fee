package memory

import (
	"context"
	"time"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

type commissionRepository struct {
	s *Store
}

func cloneCommission(c *entity.Commission) *entity.Commission {
	clone := *c
	return &clone
}

func (r *commissionRepository) CreateForListing(_ context.Context, commission *entity.Commission) (*entity.Commission, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.commissions {
		if existing.ListingID == commission.ListingID {
			return cloneCommission(existing), false, nil
		}
	}

	if commission.ID == "" {
		commission.ID = r.s.newID()
	}
	now := r.s.now()
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = now
	}
	commission.UpdatedAt = now

	r.s.commissions[commission.ID] = cloneCommission(commission)
	r.s.track(commission.ID)
	return cloneCommission(commission), true, nil
}

func (r *commissionRepository) GetByID(_ context.Context, id string) (*entity.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	commission, ok := r.s.commissions[id]
	if !ok {
		return nil, errors.NotFound("Commission", nil)
	}
	return cloneCommission(commission), nil
}

func (r *commissionRepository) GetByListingID(_ context.Context, listingID string) (*entity.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, commission := range r.s.commissions {
		if commission.ListingID == listingID {
			return cloneCommission(commission), nil
		}
	}
	return nil, errors.NotFound("Commission", nil)
}

func (r *commissionRepository) List(_ context.Context, filter repository.CommissionFilter) ([]*entity.Commission, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*entity.Commission
	for _, c := range r.s.commissions {
		if filter.BrokerID != "" && c.BrokerID != filter.BrokerID {
			continue
		}
		if filter.SellerID != "" && c.SellerID != filter.SellerID {
			continue
		}
		if filter.ListingID != "" && c.ListingID != filter.ListingID {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, c.Status) {
			continue
		}
		matched = append(matched, cloneCommission(c))
	}
	sortNewestFirst(r.s, matched, func(c *entity.Commission) time.Time { return c.CreatedAt }, func(c *entity.Commission) string { return c.ID })

	return page(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *commissionRepository) AssignTransaction(_ context.Context, ids []string, from []string, reference string) ([]*entity.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	targets := make([]*entity.Commission, 0, len(ids))
	for _, id := range ids {
		c, ok := r.s.commissions[id]
		if !ok {
			return nil, errors.NotFound("Commission", nil)
		}
		if !contains(from, c.Status) {
			return nil, errors.Conflict("Commission " + id + " is not payable in status " + c.Status)
		}
		targets = append(targets, c)
	}

	now := r.s.now()
	result := make([]*entity.Commission, 0, len(targets))
	for _, c := range targets {
		c.Status = entity.CommissionStatusInProgress
		c.TransactionID = reference
		c.UpdatedAt = now
		result = append(result, cloneCommission(c))
	}
	return result, nil
}

func (r *commissionRepository) Transition(_ context.Context, reference string, from []string, to string) ([]*entity.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var changed []*entity.Commission
	for _, c := range r.s.commissions {
		if c.TransactionID != reference || !contains(from, c.Status) {
			continue
		}
		c.Status = to
		c.UpdatedAt = now
		if to == entity.CommissionStatusPaid {
			paidAt := now
			c.PaidAt = &paidAt
		}
		changed = append(changed, cloneCommission(c))
	}
	sortNewestFirst(r.s, changed, func(c *entity.Commission) time.Time { return c.CreatedAt }, func(c *entity.Commission) string { return c.ID })
	return changed, nil
}

func (r *commissionRepository) Release(_ context.Context, reference string, to string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, c := range r.s.commissions {
		if c.TransactionID == reference && c.Status == entity.CommissionStatusInProgress {
			c.Status = to
			c.TransactionID = ""
			c.UpdatedAt = now
		}
	}
	return nil
}
