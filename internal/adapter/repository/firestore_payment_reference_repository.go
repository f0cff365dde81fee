package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

const paymentReferencesCollection = "payment_references"

type firestorePaymentReferenceRepository struct {
	client *firestore.Client
}

func NewFirestorePaymentReferenceRepository(client *firestore.Client) repository.PaymentReferenceRepository {
	return &firestorePaymentReferenceRepository{
		client: client,
	}
}

// Claim relies on Create failing for an existing document ID, so the
// reference doubles as its own uniqueness key.
func (r *firestorePaymentReferenceRepository) Claim(ctx context.Context, ref *entity.PaymentReference) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now()
	}
	_, err := r.client.Collection(paymentReferencesCollection).Doc(ref.Reference).Create(ctx, ref)
	if status.Code(err) == codes.AlreadyExists {
		return errors.Conflict("Payment reference already issued")
	}
	return storeError(err, "Payment reference", "claim payment reference")
}

func (r *firestorePaymentReferenceRepository) Get(ctx context.Context, reference string) (*entity.PaymentReference, error) {
	doc, err := r.client.Collection(paymentReferencesCollection).Doc(reference).Get(ctx)
	if err != nil {
		return nil, storeError(err, "Payment reference", "get payment reference")
	}
	var ref entity.PaymentReference
	if err := doc.DataTo(&ref); err != nil {
		return nil, errors.Internal("Failed to parse payment reference", err)
	}
	return &ref, nil
}
