package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/pkg/errors"
	"bims/pkg/logger"
)

type ContactUseCase struct {
	contactRepo   repository.ContactRequestRepository
	listingRepo   repository.ListingRepository
	userRepo      repository.UserRepository
	referenceRepo repository.PaymentReferenceRepository
	gateway       service.PaymentGateway
	settings      PaymentSettings
}

func NewContactUseCase(
	contactRepo repository.ContactRequestRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	referenceRepo repository.PaymentReferenceRepository,
	gateway service.PaymentGateway,
	settings PaymentSettings,
) *ContactUseCase {
	return &ContactUseCase{
		contactRepo:   contactRepo,
		listingRepo:   listingRepo,
		userRepo:      userRepo,
		referenceRepo: referenceRepo,
		gateway:       gateway,
		settings:      settings,
	}
}

type ContactCheckout struct {
	ContactID   string `json:"contact_id"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// InitiateContactPayment starts the contact-fee checkout for (buyer, listing).
// Listing state is not checked. The request is stored only after the gateway
// accepted the checkout, so a gateway failure leaves nothing behind.
func (uc *ContactUseCase) InitiateContactPayment(ctx context.Context, buyerID, listingID string) (*ContactCheckout, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	paid, err := uc.contactRepo.HasPaid(ctx, buyerID, listingID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, errors.Conflict("Contact with this listing owner is already unlocked")
	}

	now := time.Now()
	request := &entity.ContactRequest{
		ID:          uuid.New().String(),
		BuyerID:     buyerID,
		ListingID:   listing.ID,
		RecipientID: listing.OwnerID,
		Amount:      uc.settings.ContactFee,
		Status:      entity.ContactStatusPending,
		CreatedAt:   now,
	}

	reference := service.NewReference(service.KindContactFee)
	if err := uc.referenceRepo.Claim(ctx, &entity.PaymentReference{
		Reference: reference,
		Kind:      string(service.KindContactFee),
		EntityID:  request.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	request.TransactionID = reference

	checkout, err := uc.gateway.InitializePayment(ctx, buildPaymentRequest(ctx, uc.userRepo, uc.settings, buyerID, reference, uc.settings.ContactFee, "Contact fee: "+listing.Title))
	if err != nil {
		logger.PaymentError(reference, "initiate_contact_payment", err)
		return nil, err
	}

	if err := uc.contactRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	logger.Payment(reference, "initiate_contact_payment", "contact="+request.ID, "listing="+listing.ID)

	return &ContactCheckout{
		ContactID:   request.ID,
		Reference:   reference,
		CheckoutURL: checkout.CheckoutURL,
	}, nil
}

func (uc *ContactUseCase) CheckContactAccess(ctx context.Context, buyerID, listingID string) (bool, error) {
	return uc.contactRepo.HasPaid(ctx, buyerID, listingID)
}

// ConfirmContactPayment unlocks messaging silently. It reports false when the
// request was already paid.
func (uc *ContactUseCase) ConfirmContactPayment(ctx context.Context, reference string) (bool, error) {
	request, changed, err := uc.contactRepo.MarkPaid(ctx, reference)
	if err != nil {
		return false, err
	}
	if changed {
		logger.Payment(reference, "confirm_contact_payment", "contact="+request.ID)
	}
	return changed, nil
}

func (uc *ContactUseCase) GetContactRequest(ctx context.Context, actor Actor, contactID string) (*entity.ContactRequest, error) {
	request, err := uc.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && request.BuyerID != actor.UserID && request.RecipientID != actor.UserID {
		return nil, errors.Forbidden("You don't have permission to view this contact request", nil)
	}
	return request, nil
}
