package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

const contactRequestsCollection = "contact_requests"

type firestoreContactRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreContactRequestRepository(client *firestore.Client) repository.ContactRequestRepository {
	return &firestoreContactRequestRepository{
		client: client,
	}
}

func (r *firestoreContactRequestRepository) Create(ctx context.Context, request *entity.ContactRequest) error {
	if request.ID == "" {
		request.ID = r.client.Collection(contactRequestsCollection).NewDoc().ID
	}
	now := time.Now()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	_, err := r.client.Collection(contactRequestsCollection).Doc(request.ID).Create(ctx, request)
	return storeError(err, "Contact request", "create contact request")
}

func (r *firestoreContactRequestRepository) GetByID(ctx context.Context, id string) (*entity.ContactRequest, error) {
	doc, err := r.client.Collection(contactRequestsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError(err, "Contact request", "get contact request")
	}
	return contactRequestFromDoc(doc)
}

func (r *firestoreContactRequestRepository) GetByTransactionID(ctx context.Context, transactionID string) (*entity.ContactRequest, error) {
	doc, err := r.findByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return contactRequestFromDoc(doc)
}

func (r *firestoreContactRequestRepository) HasPaid(ctx context.Context, buyerID, listingID string) (bool, error) {
	iter := r.client.Collection(contactRequestsCollection).
		Where("buyerId", "==", buyerID).
		Where("listingId", "==", listingID).
		Where("status", "==", entity.ContactStatusPaid).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "Contact request", "check contact access")
	}
	return true, nil
}

func (r *firestoreContactRequestRepository) MarkPaid(ctx context.Context, transactionID string) (*entity.ContactRequest, bool, error) {
	found, err := r.findByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, false, err
	}

	var (
		result  *entity.ContactRequest
		changed bool
	)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		doc, err := tx.Get(found.Ref)
		if err != nil {
			return err
		}
		request, err := contactRequestFromDoc(doc)
		if err != nil {
			return err
		}
		result = request
		if request.Status == entity.ContactStatusPaid {
			return nil
		}

		now := time.Now()
		request.Status = entity.ContactStatusPaid
		request.PaidAt = &now
		request.UpdatedAt = now
		changed = true
		return tx.Set(found.Ref, request)
	})
	if err != nil {
		return nil, false, storeError(err, "Contact request", "mark contact request paid")
	}

	return result, changed, nil
}

func (r *firestoreContactRequestRepository) findByTransactionID(ctx context.Context, transactionID string) (*firestore.DocumentSnapshot, error) {
	iter := r.client.Collection(contactRequestsCollection).Where("transactionId", "==", transactionID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Contact request", nil)
	}
	if err != nil {
		return nil, storeError(err, "Contact request", "find contact request")
	}
	return doc, nil
}

func contactRequestFromDoc(doc *firestore.DocumentSnapshot) (*entity.ContactRequest, error) {
	var request entity.ContactRequest
	if err := doc.DataTo(&request); err != nil {
		return nil, errors.Internal("Failed to parse contact request data", err)
	}
	if request.ID == "" {
		request.ID = doc.Ref.ID
	}
	return &request, nil
}
