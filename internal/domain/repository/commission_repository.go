package repository

import (
	"context"

	"bims/internal/domain/entity"
)

type CommissionFilter struct {
	BrokerID  string
	SellerID  string
	ListingID string
	Statuses  []string
	Limit     int
	Offset    int
}

type CommissionRepository interface {
	// CreateForListing stores the commission unless one already exists for the
	// listing, in which case the existing record is returned with created=false.
	CreateForListing(ctx context.Context, commission *entity.Commission) (existing *entity.Commission, created bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Commission, error)
	GetByListingID(ctx context.Context, listingID string) (*entity.Commission, error)
	List(ctx context.Context, filter CommissionFilter) ([]*entity.Commission, int64, error)
	// AssignTransaction moves every listed commission whose status is in from to
	// in_progress under reference. It is all-or-nothing: if any commission is not
	// in an allowed state nothing is written and a conflict is returned.
	AssignTransaction(ctx context.Context, ids []string, from []string, reference string) ([]*entity.Commission, error)
	// Transition moves every commission carrying reference whose status is in
	// from to status to, and returns only the records it changed.
	Transition(ctx context.Context, reference string, from []string, to string) ([]*entity.Commission, error)
	// Release undoes AssignTransaction after the gateway refused the checkout.
	Release(ctx context.Context, reference string, to string) error
}
