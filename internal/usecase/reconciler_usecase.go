package usecase

import (
	"context"

	"bims/internal/domain/service"
	"bims/internal/infrastructure/lock"
	"bims/pkg/errors"
	"bims/pkg/logger"
)

type ReconcileResult struct {
	Reference string `json:"reference"`
	Kind      string `json:"kind"`
	Outcome   string `json:"outcome"`
	Applied   bool   `json:"applied"`
}

// ReconcilerUseCase turns a payment reference into exactly one entity
// transition. Webhook deliveries and manual verifications share the same path.
type ReconcilerUseCase struct {
	gateway    service.PaymentGateway
	locker     lock.Locker
	listings   *ListingUseCase
	contacts   *ContactUseCase
	commission *CommissionUseCase
}

func NewReconcilerUseCase(
	gateway service.PaymentGateway,
	locker lock.Locker,
	listings *ListingUseCase,
	contacts *ContactUseCase,
	commission *CommissionUseCase,
) *ReconcilerUseCase {
	return &ReconcilerUseCase{
		gateway:    gateway,
		locker:     locker,
		listings:   listings,
		contacts:   contacts,
		commission: commission,
	}
}

// HandleWebhook only fails for a missing or malformed reference. Everything
// after parsing is logged and swallowed: the gateway retries on any non-success
// answer and those retries cannot fix an internal error.
func (uc *ReconcilerUseCase) HandleWebhook(ctx context.Context, reference string) error {
	kind, err := service.ParseReference(reference)
	if err != nil {
		return err
	}

	result, err := uc.reconcile(ctx, kind, reference)
	if err != nil {
		logger.PaymentError(reference, "webhook", err)
		return nil
	}
	logger.Payment(reference, "webhook", "outcome="+result.Outcome, boolField("applied", result.Applied))
	return nil
}

// ManuallyVerifyPayment runs the webhook path synchronously and reports the outcome.
func (uc *ReconcilerUseCase) ManuallyVerifyPayment(ctx context.Context, reference string) (*ReconcileResult, error) {
	kind, err := service.ParseReference(reference)
	if err != nil {
		return nil, err
	}

	result, err := uc.reconcile(ctx, kind, reference)
	if err != nil {
		logger.PaymentError(reference, "manual_verify", err)
		return nil, err
	}
	logger.Payment(reference, "manual_verify", "outcome="+result.Outcome, boolField("applied", result.Applied))
	return result, nil
}

func (uc *ReconcilerUseCase) reconcile(ctx context.Context, kind service.ReferenceKind, reference string) (*ReconcileResult, error) {
	release, err := uc.locker.Acquire(ctx, "payment:"+reference)
	if err != nil {
		return nil, err
	}
	defer release()

	verification, err := uc.gateway.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		Reference: reference,
		Kind:      string(kind),
		Outcome:   verification.Status,
	}

	switch verification.Status {
	case service.PaymentOutcomeSuccess, service.PaymentOutcomeFailure:
		applied, err := uc.dispatch(ctx, kind, reference, verification.Status)
		if err != nil {
			return nil, err
		}
		result.Applied = applied
	default:
		result.Outcome = service.PaymentOutcomePending
	}

	return result, nil
}

func (uc *ReconcilerUseCase) dispatch(ctx context.Context, kind service.ReferenceKind, reference, outcome string) (bool, error) {
	success := outcome == service.PaymentOutcomeSuccess

	switch kind {
	case service.KindListingFee:
		if success {
			return uc.listings.ConfirmListingPayment(ctx, reference)
		}
		return uc.listings.FailListingPayment(ctx, reference)

	case service.KindContactFee:
		if success {
			return uc.contacts.ConfirmContactPayment(ctx, reference)
		}
		// a failed contact payment leaves the request pending; the buyer starts a new one
		return false, nil

	case service.KindCommission, service.KindPayout:
		changed, err := uc.commission.ConfirmCommissionPayment(ctx, reference, outcome)
		return changed > 0, err
	}

	return false, errors.Validation("reference has an unknown prefix")
}

func boolField(name string, v bool) string {
	if v {
		return name + "=true"
	}
	return name + "=false"
}
