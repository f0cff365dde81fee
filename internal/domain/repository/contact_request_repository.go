package repository

import (
	"context"

	"bims/internal/domain/entity"
)

type ContactRequestRepository interface {
	Create(ctx context.Context, request *entity.ContactRequest) error
	GetByID(ctx context.Context, id string) (*entity.ContactRequest, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*entity.ContactRequest, error)
	HasPaid(ctx context.Context, buyerID, listingID string) (bool, error)
	// MarkPaid flips a pending request to paid. changed is false when it was already paid.
	MarkPaid(ctx context.Context, transactionID string) (request *entity.ContactRequest, changed bool, err error)
}
