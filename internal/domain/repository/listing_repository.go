package repository

import (
	"context"
	"errors"
	"time"

	"bims/internal/domain/entity"
)

// ErrNoChange is returned by an update function to leave the record untouched.
// Update then returns the current record and a nil error.
var ErrNoChange = errors.New("no change")

// ListingFilter narrows List. Empty fields do not filter.
type ListingFilter struct {
	OwnerID            string
	Type               string
	Location           string
	Status             string
	VerificationStatus string
	PaymentStatus      string
	AssignedBroker     string
	// HasBroker restricts to listings with an assigned broker (admin "assigned" view).
	HasBroker bool
	MinPrice  float64
	MaxPrice  float64
	Limit     int
	Offset    int
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*entity.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]*entity.Listing, int64, error)
	// Update runs fn against the latest stored copy and persists the result
	// atomically with respect to other Update calls on the same listing.
	Update(ctx context.Context, id string, fn func(listing *entity.Listing) error) (*entity.Listing, error)
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, createdBefore time.Time) ([]*entity.Listing, error)
}
