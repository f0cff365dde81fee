package repository

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

const listingsCollection = "listings"

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = r.client.Collection(listingsCollection).NewDoc().ID
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(listingsCollection).Doc(listing.ID).Create(ctx, listing)
	return storeError(err, "Listing", "create listing")
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError(err, "Listing", "get listing")
	}
	return listingFromDoc(doc)
}

func (r *firestoreListingRepository) GetByTransactionID(ctx context.Context, transactionID string) (*entity.Listing, error) {
	iter := r.client.Collection(listingsCollection).Where("transactionId", "==", transactionID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Listing", nil)
	}
	if err != nil {
		return nil, storeError(err, "Listing", "find listing by transaction")
	}
	return listingFromDoc(doc)
}

// List pushes equality filters to Firestore and applies range filters and
// pagination in process, which avoids a composite index per filter combination.
func (r *firestoreListingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	query := r.client.Collection(listingsCollection).Query
	for field, value := range map[string]string{
		"ownerId":            filter.OwnerID,
		"type":               filter.Type,
		"status":             filter.Status,
		"verificationStatus": filter.VerificationStatus,
		"paymentStatus":      filter.PaymentStatus,
		"assignedBroker":     filter.AssignedBroker,
	} {
		if value != "" {
			query = query.Where(field, "==", value)
		}
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError(err, "Listing", "list listings")
	}

	var listings []*entity.Listing
	for _, doc := range docs {
		listing, err := listingFromDoc(doc)
		if err != nil {
			return nil, 0, err
		}
		if filter.Location != "" && !strings.EqualFold(listing.Location, filter.Location) {
			continue
		}
		if filter.HasBroker && listing.AssignedBroker == "" {
			continue
		}
		if filter.MinPrice > 0 && listing.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && listing.Price > filter.MaxPrice {
			continue
		}
		listings = append(listings, listing)
	}

	total := int64(len(listings))
	start := filter.Offset
	if start > len(listings) {
		start = len(listings)
	}
	end := len(listings)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return listings[start:end], total, nil
}

func (r *firestoreListingRepository) Update(ctx context.Context, id string, fn func(listing *entity.Listing) error) (*entity.Listing, error) {
	docRef := r.client.Collection(listingsCollection).Doc(id)

	var result *entity.Listing
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		listing, err := listingFromDoc(doc)
		if err != nil {
			return err
		}

		if err := fn(listing); err != nil {
			if stderrors.Is(err, repository.ErrNoChange) {
				current, _ := listingFromDoc(doc)
				result = current
				return nil
			}
			return err
		}

		listing.ID = id
		result = listing
		return tx.Set(docRef, listing)
	})
	if err != nil {
		return nil, storeError(err, "Listing", "update listing")
	}

	return result, nil
}

func (r *firestoreListingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection(listingsCollection).Doc(id).Delete(ctx, firestore.Exists)
	return storeError(err, "Listing", "delete listing")
}

func (r *firestoreListingRepository) ListStale(ctx context.Context, createdBefore time.Time) ([]*entity.Listing, error) {
	iter := r.client.Collection(listingsCollection).
		Where("stage", "==", string(entity.StageAwaitingPayment)).
		Where("createdAt", "<", createdBefore).
		Documents(ctx)
	defer iter.Stop()

	var stale []*entity.Listing
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeError(err, "Listing", "list stale listings")
		}
		listing, err := listingFromDoc(doc)
		if err != nil {
			return nil, err
		}
		if !listing.FeePaid() {
			stale = append(stale, listing)
		}
	}

	return stale, nil
}

func listingFromDoc(doc *firestore.DocumentSnapshot) (*entity.Listing, error) {
	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	if listing.ID == "" {
		listing.ID = doc.Ref.ID
	}
	listing.Normalize()
	return &listing, nil
}
