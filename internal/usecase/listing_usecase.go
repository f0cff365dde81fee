package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/pkg/errors"
	"bims/pkg/logger"
)

type ListingUseCase struct {
	listingRepo    repository.ListingRepository
	userRepo       repository.UserRepository
	commissionRepo repository.CommissionRepository
	referenceRepo  repository.PaymentReferenceRepository
	gateway        service.PaymentGateway
	notifier       Notifier
	settings       PaymentSettings
	now            func() time.Time
}

func NewListingUseCase(
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	commissionRepo repository.CommissionRepository,
	referenceRepo repository.PaymentReferenceRepository,
	gateway service.PaymentGateway,
	notifier Notifier,
	settings PaymentSettings,
) *ListingUseCase {
	return &ListingUseCase{
		listingRepo:    listingRepo,
		userRepo:       userRepo,
		commissionRepo: commissionRepo,
		referenceRepo:  referenceRepo,
		gateway:        gateway,
		notifier:       notifier,
		settings:       settings,
		now:            time.Now,
	}
}

type CreateListingInput struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description" validate:"required"`
	Price       float64                `json:"price" validate:"required,gt=0"`
	Location    string                 `json:"location" validate:"required"`
	Type        string                 `json:"type" validate:"required,oneof=property vehicle"`
	Metadata    map[string]interface{} `json:"metadata"`
	Images      []string               `json:"images" validate:"omitempty,dive,url"`
}

type UpdateListingInput struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Price       *float64               `json:"price" validate:"omitempty,gt=0"`
	Location    *string                `json:"location"`
	Metadata    map[string]interface{} `json:"metadata"`
	Images      []string               `json:"images" validate:"omitempty,dive,url"`
}

type ListingCheckout struct {
	Listing     *entity.Listing `json:"listing"`
	Reference   string          `json:"reference"`
	CheckoutURL string          `json:"checkout_url"`
}

type SaleResult struct {
	Listing           *entity.Listing    `json:"listing"`
	Commission        *entity.Commission `json:"commission"`
	CommissionCreated bool               `json:"commission_created"`
}

type SweepResult struct {
	Deleted   []string `json:"deleted"`
	Confirmed []string `json:"confirmed"`
	Skipped   []string `json:"skipped"`
}

func (uc *ListingUseCase) CreateListing(ctx context.Context, ownerID string, input CreateListingInput) (*ListingCheckout, error) {
	if err := validateListingFields(input.Title, input.Description, input.Location, input.Price); err != nil {
		return nil, err
	}
	if !entity.IsValidListingType(input.Type) {
		return nil, errors.Validation("type must be one of: property vehicle")
	}

	now := uc.now()
	listing := entity.NewListing(ownerID, now)
	listing.ID = uuid.New().String()
	listing.Title = strings.TrimSpace(input.Title)
	listing.Description = strings.TrimSpace(input.Description)
	listing.Price = input.Price
	listing.Location = strings.TrimSpace(input.Location)
	listing.Type = input.Type
	listing.Metadata = input.Metadata
	listing.Images = input.Images
	if listing.Images == nil {
		listing.Images = []string{}
	}

	reference := service.NewReference(service.KindListingFee)
	if err := uc.referenceRepo.Claim(ctx, &entity.PaymentReference{
		Reference: reference,
		Kind:      string(service.KindListingFee),
		EntityID:  listing.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	listing.TransactionID = reference

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	checkout, err := uc.gateway.InitializePayment(ctx, uc.paymentRequest(ctx, ownerID, reference, uc.settings.ListingFee, "Listing fee: "+listing.Title))
	if err != nil {
		// Compensate so no listing is left waiting on a checkout nobody received.
		if delErr := uc.listingRepo.Delete(ctx, listing.ID); delErr != nil {
			logger.Error("Failed to roll back listing %s after gateway error: %v", listing.ID, delErr)
		}
		logger.PaymentError(reference, "create_listing", err)
		return nil, err
	}
	logger.Payment(reference, "create_listing", "listing="+listing.ID)

	uc.notifier.NotifyAdmins(ctx, Message{
		Title:         "New listing awaiting payment",
		Body:          fmt.Sprintf("Listing %q was created and is awaiting its listing fee.", listing.Title),
		Type:          entity.NotificationInfo,
		RelatedEntity: listing.ID,
	})

	return &ListingCheckout{
		Listing:     listing,
		Reference:   reference,
		CheckoutURL: checkout.CheckoutURL,
	}, nil
}

// RetryListingPayment issues a fresh reference and checkout for a listing whose fee is still unpaid.
func (uc *ListingUseCase) RetryListingPayment(ctx context.Context, actor Actor, listingID string) (*ListingCheckout, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actor.UserID {
		return nil, errors.Forbidden("Only the listing owner can pay the listing fee", nil)
	}
	if listing.FeePaid() {
		return nil, errors.Conflict("Listing fee is already paid")
	}
	if listing.Stage == entity.StageSold || listing.Stage == entity.StageWithdrawn {
		return nil, errors.Conflict("Listing is no longer open for payment")
	}

	reference := service.NewReference(service.KindListingFee)
	if err := uc.referenceRepo.Claim(ctx, &entity.PaymentReference{
		Reference: reference,
		Kind:      string(service.KindListingFee),
		EntityID:  listing.ID,
		CreatedAt: uc.now(),
	}); err != nil {
		return nil, err
	}

	checkout, err := uc.gateway.InitializePayment(ctx, uc.paymentRequest(ctx, listing.OwnerID, reference, uc.settings.ListingFee, "Listing fee: "+listing.Title))
	if err != nil {
		logger.PaymentError(reference, "retry_listing_payment", err)
		return nil, err
	}

	updated, err := uc.listingRepo.Update(ctx, listing.ID, func(l *entity.Listing) error {
		return l.RestartFee(reference, uc.now())
	})
	if err != nil {
		return nil, err
	}
	logger.Payment(reference, "retry_listing_payment", "listing="+listing.ID)

	return &ListingCheckout{
		Listing:     updated,
		Reference:   reference,
		CheckoutURL: checkout.CheckoutURL,
	}, nil
}

// ConfirmListingPayment applies a verified listing-fee payment. It reports
// whether anything changed; repeated calls are no-ops.
func (uc *ListingUseCase) ConfirmListingPayment(ctx context.Context, reference string) (bool, error) {
	listingID, err := uc.listingIDForReference(ctx, reference)
	if err != nil {
		return false, err
	}

	changed := false
	listing, err := uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
		changed = false
		if !l.ConfirmFee(uc.now()) {
			return repository.ErrNoChange
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !changed {
		logger.Payment(reference, "confirm_listing_payment", "noop=already_paid")
		return false, nil
	}
	logger.Payment(reference, "confirm_listing_payment", "listing="+listing.ID)

	uc.notifier.Notify(ctx, []string{listing.OwnerID}, Message{
		Title:         "Listing payment received",
		Body:          fmt.Sprintf("Your listing fee for %q was received. An admin will assign a broker shortly.", listing.Title),
		Type:          entity.NotificationSuccess,
		RelatedEntity: listing.ID,
	})
	uc.notifier.NotifyAdmins(ctx, Message{
		Title:         "Listing ready for broker assignment",
		Body:          fmt.Sprintf("The listing fee for %q was paid.", listing.Title),
		Type:          entity.NotificationInfo,
		RelatedEntity: listing.ID,
	})
	return true, nil
}

// FailListingPayment records a gateway-reported failure for the listing's
// current reference. A failure on a superseded reference is ignored.
func (uc *ListingUseCase) FailListingPayment(ctx context.Context, reference string) (bool, error) {
	listingID, err := uc.listingIDForReference(ctx, reference)
	if err != nil {
		return false, err
	}

	changed := false
	listing, err := uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
		changed = false
		if l.TransactionID != reference || !l.FailFee(uc.now()) {
			return repository.ErrNoChange
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	logger.Payment(reference, "fail_listing_payment", "listing="+listing.ID)

	uc.notifier.Notify(ctx, []string{listing.OwnerID}, Message{
		Title:         "Listing payment failed",
		Body:          fmt.Sprintf("The listing fee payment for %q did not go through. You can retry the payment.", listing.Title),
		Type:          entity.NotificationError,
		RelatedEntity: listing.ID,
	})
	return true, nil
}

func (uc *ListingUseCase) AssignBroker(ctx context.Context, actor Actor, listingID, brokerID string) (*entity.Listing, error) {
	if brokerID == "" {
		return nil, errors.Validation("broker_id is required")
	}
	broker, err := uc.userRepo.GetByID(ctx, brokerID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.Validation("broker does not exist")
		}
		return nil, err
	}
	if !broker.IsBroker() {
		return nil, errors.Validation("assigned user is not a broker")
	}

	listing, err := uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
		return l.AssignBroker(brokerID, actor.IsAdmin(), uc.now())
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Listing %s assigned to broker %s by %s", listing.ID, brokerID, actor.UserID)

	uc.notifier.Notify(ctx, []string{brokerID}, Message{
		Title:         "New listing to verify",
		Body:          fmt.Sprintf("You have been assigned to verify %q.", listing.Title),
		Type:          entity.NotificationInfo,
		RelatedEntity: listing.ID,
	})
	return listing, nil
}

func (uc *ListingUseCase) VerifyListing(ctx context.Context, actor Actor, listingID, decision, notes string) (*entity.Listing, error) {
	if decision != entity.VerificationApproved && decision != entity.VerificationRejected {
		return nil, errors.Validation("decision must be one of: approved rejected")
	}

	listing, err := uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
		if !actor.IsAdmin() && (l.AssignedBroker == "" || l.AssignedBroker != actor.UserID) {
			return errors.Forbidden("Only the assigned broker can verify this listing", nil)
		}
		return l.Verify(decision, strings.TrimSpace(notes), actor.UserID, uc.now())
	})
	if err != nil {
		return nil, err
	}

	msg := Message{
		Title:         "Listing approved",
		Body:          fmt.Sprintf("Your listing %q was approved and is now live.", listing.Title),
		Type:          entity.NotificationSuccess,
		RelatedEntity: listing.ID,
	}
	if decision == entity.VerificationRejected {
		msg.Title = "Listing rejected"
		msg.Body = fmt.Sprintf("Your listing %q was rejected.", listing.Title)
		msg.Type = entity.NotificationWarning
	}
	if listing.VerificationNotes != "" {
		msg.Body += " Notes: " + listing.VerificationNotes
	}
	uc.notifier.Notify(ctx, []string{listing.OwnerID}, msg)

	return listing, nil
}

// SellListing marks the listing sold and creates its commission. Repeating the
// call on a sold listing creates nothing new and returns the existing commission.
func (uc *ListingUseCase) SellListing(ctx context.Context, actor Actor, listingID, buyerID string) (*SaleResult, error) {
	if buyerID == "" {
		return nil, errors.Validation("buyer_id is required")
	}
	if _, err := uc.userRepo.GetByID(ctx, buyerID); err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.Validation("buyer does not exist")
		}
		return nil, err
	}

	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSale(actor, listing); err != nil {
		return nil, err
	}

	sold, err := uc.listingRepo.Update(ctx, listing.ID, func(l *entity.Listing) error {
		if err := authorizeSale(actor, l); err != nil {
			return err
		}
		l.MarkSold(buyerID, uc.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The commission is derived from the stored sale. If creating it fails the
	// listing stays sold and a repeated call creates the missing commission.
	rate := uc.settings.commissionRate()
	commission, created, err := uc.commissionRepo.CreateForListing(ctx, &entity.Commission{
		ListingID: sold.ID,
		BrokerID:  sold.AssignedBroker,
		SellerID:  sold.OwnerID,
		BuyerID:   sold.BuyerID,
		Amount:    entity.CommissionAmount(sold.Price, rate),
		Rate:      rate,
		Status:    entity.CommissionStatusPending,
	})
	if err != nil {
		logger.Error("Listing %s is sold but its commission was not created: %v", sold.ID, err)
		return nil, err
	}

	if created {
		logger.Info("Commission %s created for listing %s: %.2f", commission.ID, sold.ID, commission.Amount)
		uc.notifier.Notify(ctx, []string{commission.BrokerID}, Message{
			Title:         "Commission pending",
			Body:          fmt.Sprintf("A commission of %.2f is pending for %q.", commission.Amount, sold.Title),
			Type:          entity.NotificationInfo,
			RelatedEntity: sold.ID,
		})
		uc.notifier.Notify(ctx, []string{commission.SellerID}, Message{
			Title:         "Commission payment due",
			Body:          fmt.Sprintf("Your listing %q was sold. A commission of %.2f is due.", sold.Title, commission.Amount),
			Type:          entity.NotificationWarning,
			RelatedEntity: sold.ID,
		})
	}

	return &SaleResult{
		Listing:           sold,
		Commission:        commission,
		CommissionCreated: created,
	}, nil
}

func authorizeSale(actor Actor, l *entity.Listing) error {
	if !actor.IsAdmin() && (l.AssignedBroker == "" || l.AssignedBroker != actor.UserID) {
		return errors.Forbidden("Only an admin or the assigned broker can mark this listing sold", nil)
	}
	if l.AssignedBroker == "" {
		return errors.Conflict("A listing without an assigned broker cannot be sold")
	}
	return nil
}

// ListListings applies the visibility rule: anonymous and unprivileged viewers
// only ever see approved, active listings unless they ask for their own.
func (uc *ListingUseCase) ListListings(ctx context.Context, viewer Actor, filter repository.ListingFilter) ([]*entity.Listing, int64, error) {
	privileged := viewer.IsAdmin() || viewer.IsBroker()
	ownListings := !viewer.IsAnonymous() && filter.OwnerID == viewer.UserID

	if !privileged && !ownListings {
		filter.VerificationStatus = entity.VerificationApproved
		filter.Status = entity.ListingStatusActive
		filter.PaymentStatus = ""
		filter.HasBroker = false
		filter.AssignedBroker = ""
	}

	listings, total, err := uc.listingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if listings == nil {
		listings = []*entity.Listing{}
	}
	return listings, total, nil
}

func (uc *ListingUseCase) GetListing(ctx context.Context, viewer Actor, listingID string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.IsPubliclyVisible() || viewer.IsAdmin() || viewer.IsBroker() {
		return listing, nil
	}
	if !viewer.IsAnonymous() && listing.OwnerID == viewer.UserID {
		return listing, nil
	}
	return nil, errors.NotFound("Listing", nil)
}

func (uc *ListingUseCase) UpdateListing(ctx context.Context, actor Actor, listingID string, input UpdateListingInput) (*entity.Listing, error) {
	return uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
		if l.OwnerID != actor.UserID {
			return errors.Forbidden("You don't have permission to update this listing", nil)
		}
		if l.Stage == entity.StageWithdrawn {
			return errors.Conflict("Listing has been withdrawn")
		}

		title, description, location, price := l.Title, l.Description, l.Location, l.Price
		if input.Title != nil {
			title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			description = strings.TrimSpace(*input.Description)
		}
		if input.Location != nil {
			location = strings.TrimSpace(*input.Location)
		}
		if input.Price != nil {
			price = *input.Price
		}
		if err := validateListingFields(title, description, location, price); err != nil {
			return err
		}

		l.Title, l.Description, l.Location, l.Price = title, description, location, price
		if input.Metadata != nil {
			l.Metadata = input.Metadata
		}
		if input.Images != nil {
			l.Images = input.Images
		}
		l.UpdatedAt = uc.now()
		return nil
	})
}

// DeleteListing hard-deletes for the owner and withdraws for an admin.
func (uc *ListingUseCase) DeleteListing(ctx context.Context, actor Actor, listingID string) error {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}

	switch {
	case actor.IsAdmin():
		_, err := uc.listingRepo.Update(ctx, listingID, func(l *entity.Listing) error {
			if l.Stage == entity.StageWithdrawn {
				return repository.ErrNoChange
			}
			l.Withdraw(uc.now())
			return nil
		})
		return err
	case listing.OwnerID == actor.UserID:
		return uc.listingRepo.Delete(ctx, listingID)
	default:
		return errors.Forbidden("You don't have permission to delete this listing", nil)
	}
}

// SweepStaleListings removes listings whose fee was never paid and that were
// created before now-olderThan. Each candidate is checked with the gateway
// first; a payment that did settle is confirmed instead of deleted.
func (uc *ListingUseCase) SweepStaleListings(ctx context.Context, olderThan time.Duration) (*SweepResult, error) {
	if olderThan < 0 {
		return nil, errors.Validation("older_than must not be negative")
	}

	stale, err := uc.listingRepo.ListStale(ctx, uc.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Deleted: []string{}, Confirmed: []string{}, Skipped: []string{}}
	for _, listing := range stale {
		if listing.TransactionID != "" {
			verification, err := uc.gateway.VerifyPayment(ctx, listing.TransactionID)
			if err != nil {
				logger.Warn("Sweep skipped listing %s: %v", listing.ID, err)
				result.Skipped = append(result.Skipped, listing.ID)
				continue
			}
			if verification.Succeeded() {
				if _, err := uc.ConfirmListingPayment(ctx, listing.TransactionID); err != nil {
					logger.Warn("Sweep failed to confirm listing %s: %v", listing.ID, err)
					result.Skipped = append(result.Skipped, listing.ID)
					continue
				}
				result.Confirmed = append(result.Confirmed, listing.ID)
				continue
			}
		}

		current, err := uc.listingRepo.GetByID(ctx, listing.ID)
		if err != nil || current.FeePaid() || current.Stage != entity.StageAwaitingPayment {
			result.Skipped = append(result.Skipped, listing.ID)
			continue
		}
		if err := uc.listingRepo.Delete(ctx, listing.ID); err != nil {
			logger.Warn("Sweep failed to delete listing %s: %v", listing.ID, err)
			result.Skipped = append(result.Skipped, listing.ID)
			continue
		}
		result.Deleted = append(result.Deleted, listing.ID)
	}

	logger.Info("Stale listing sweep: deleted=%d confirmed=%d skipped=%d", len(result.Deleted), len(result.Confirmed), len(result.Skipped))
	return result, nil
}

// listingIDForReference resolves a reference through the claim record so a
// payment on a superseded reference still finds its listing.
func (uc *ListingUseCase) listingIDForReference(ctx context.Context, reference string) (string, error) {
	ref, err := uc.referenceRepo.Get(ctx, reference)
	if err == nil {
		return ref.EntityID, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return "", err
	}

	listing, err := uc.listingRepo.GetByTransactionID(ctx, reference)
	if err != nil {
		return "", err
	}
	return listing.ID, nil
}

func (uc *ListingUseCase) paymentRequest(ctx context.Context, payerID, reference string, amount float64, item string) service.PaymentRequest {
	return buildPaymentRequest(ctx, uc.userRepo, uc.settings, payerID, reference, amount, item)
}

func validateListingFields(title, description, location string, price float64) error {
	switch {
	case strings.TrimSpace(title) == "":
		return errors.Validation("title is required")
	case strings.TrimSpace(description) == "":
		return errors.Validation("description is required")
	case strings.TrimSpace(location) == "":
		return errors.Validation("location is required")
	case price <= 0:
		return errors.Validation("price must be greater than 0")
	}
	return nil
}

// buildPaymentRequest fills payer details from the user record when one exists.
func buildPaymentRequest(ctx context.Context, users repository.UserRepository, settings PaymentSettings, payerID, reference string, amount float64, item string) service.PaymentRequest {
	req := service.PaymentRequest{
		Reference:   reference,
		Amount:      amount,
		Currency:    settings.Currency,
		ItemName:    item,
		CallbackURL: settings.CallbackURL,
		ReturnURL:   settings.ReturnURL,
	}
	if payer, err := users.GetByID(ctx, payerID); err == nil {
		req.Email = payer.Email
		req.FirstName = payer.FirstName
		req.LastName = payer.LastName
	}
	return req
}
