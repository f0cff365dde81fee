package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

const (
	commissionsCollection = "commissions"
	// one guard document per listing, keyed by listing ID
	commissionGuardsCollection = "listing_commissions"
)

type commissionGuard struct {
	CommissionID string    `firestore:"commissionId"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type firestoreCommissionRepository struct {
	client *firestore.Client
}

func NewFirestoreCommissionRepository(client *firestore.Client) repository.CommissionRepository {
	return &firestoreCommissionRepository{
		client: client,
	}
}

func (r *firestoreCommissionRepository) CreateForListing(ctx context.Context, commission *entity.Commission) (*entity.Commission, bool, error) {
	guardRef := r.client.Collection(commissionGuardsCollection).Doc(commission.ListingID)

	var (
		result  *entity.Commission
		created bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false
		guardDoc, err := tx.Get(guardRef)
		switch {
		case err == nil:
			var guard commissionGuard
			if err := guardDoc.DataTo(&guard); err != nil {
				return err
			}
			existingDoc, err := tx.Get(r.client.Collection(commissionsCollection).Doc(guard.CommissionID))
			if err != nil {
				return err
			}
			result, err = commissionFromDoc(existingDoc)
			return err
		case status.Code(err) != codes.NotFound:
			return err
		}

		c := *commission
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		now := time.Now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now

		if err := tx.Create(guardRef, commissionGuard{CommissionID: c.ID, CreatedAt: now}); err != nil {
			return err
		}
		if err := tx.Create(r.client.Collection(commissionsCollection).Doc(c.ID), &c); err != nil {
			return err
		}
		result = &c
		created = true
		return nil
	})
	if err != nil {
		return nil, false, storeError(err, "Commission", "create commission")
	}

	return result, created, nil
}

func (r *firestoreCommissionRepository) GetByID(ctx context.Context, id string) (*entity.Commission, error) {
	doc, err := r.client.Collection(commissionsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError(err, "Commission", "get commission")
	}
	return commissionFromDoc(doc)
}

func (r *firestoreCommissionRepository) GetByListingID(ctx context.Context, listingID string) (*entity.Commission, error) {
	docs, err := r.client.Collection(commissionsCollection).Where("listingId", "==", listingID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, storeError(err, "Commission", "get commission by listing")
	}
	if len(docs) == 0 {
		return nil, errors.NotFound("Commission", nil)
	}
	return commissionFromDoc(docs[0])
}

func (r *firestoreCommissionRepository) List(ctx context.Context, filter repository.CommissionFilter) ([]*entity.Commission, int64, error) {
	query := r.client.Collection(commissionsCollection).Query
	if filter.BrokerID != "" {
		query = query.Where("brokerId", "==", filter.BrokerID)
	}
	if filter.SellerID != "" {
		query = query.Where("sellerId", "==", filter.SellerID)
	}
	if filter.ListingID != "" {
		query = query.Where("listingId", "==", filter.ListingID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status", "in", filter.Statuses)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError(err, "Commission", "count commissions")
	}
	total := int64(len(countDocs))

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError(err, "Commission", "list commissions")
	}

	commissions := make([]*entity.Commission, 0, len(docs))
	for _, doc := range docs {
		c, err := commissionFromDoc(doc)
		if err != nil {
			return nil, 0, err
		}
		commissions = append(commissions, c)
	}
	return commissions, total, nil
}

func (r *firestoreCommissionRepository) AssignTransaction(ctx context.Context, ids []string, from []string, reference string) ([]*entity.Commission, error) {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection(commissionsCollection).Doc(id))
	}

	var result []*entity.Commission
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = result[:0]
		docs, err := tx.GetAll(refs)
		if err != nil {
			return err
		}

		commissions := make([]*entity.Commission, 0, len(docs))
		for _, doc := range docs {
			if !doc.Exists() {
				return errors.NotFound("Commission", nil)
			}
			c, err := commissionFromDoc(doc)
			if err != nil {
				return err
			}
			if !containsString(from, c.Status) {
				return errors.Conflict("Commission " + c.ID + " is not payable in status " + c.Status)
			}
			commissions = append(commissions, c)
		}

		now := time.Now()
		for i, c := range commissions {
			c.Status = entity.CommissionStatusInProgress
			c.TransactionID = reference
			c.UpdatedAt = now
			if err := tx.Set(refs[i], c); err != nil {
				return err
			}
			result = append(result, c)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "Commission", "assign commission transaction")
	}

	return result, nil
}

func (r *firestoreCommissionRepository) Transition(ctx context.Context, reference string, from []string, to string) ([]*entity.Commission, error) {
	query := r.client.Collection(commissionsCollection).Where("transactionId", "==", reference)

	var changed []*entity.Commission
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = changed[:0]
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}

		now := time.Now()
		for _, doc := range docs {
			c, err := commissionFromDoc(doc)
			if err != nil {
				return err
			}
			if !containsString(from, c.Status) {
				continue
			}
			c.Status = to
			c.UpdatedAt = now
			if to == entity.CommissionStatusPaid {
				paidAt := now
				c.PaidAt = &paidAt
			}
			if err := tx.Set(doc.Ref, c); err != nil {
				return err
			}
			changed = append(changed, c)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "Commission", "update commission status")
	}

	return changed, nil
}

func (r *firestoreCommissionRepository) Release(ctx context.Context, reference string, to string) error {
	query := r.client.Collection(commissionsCollection).
		Where("transactionId", "==", reference).
		Where("status", "==", entity.CommissionStatusInProgress)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(query).GetAll()
		if err != nil {
			return err
		}
		now := time.Now()
		for _, doc := range docs {
			if err := tx.Update(doc.Ref, []firestore.Update{
				{Path: "status", Value: to},
				{Path: "transactionId", Value: firestore.Delete},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return storeError(err, "Commission", "release commission transaction")
}

func commissionFromDoc(doc *firestore.DocumentSnapshot) (*entity.Commission, error) {
	var c entity.Commission
	if err := doc.DataTo(&c); err != nil {
		return nil, errors.Internal("Failed to parse commission data", err)
	}
	if c.ID == "" {
		c.ID = doc.Ref.ID
	}
	return &c, nil
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
