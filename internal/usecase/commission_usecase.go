package usecase

import (
	"context"
	"fmt"
	"time"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/pkg/errors"
	"bims/pkg/logger"
)

// payableStatuses are the states a new checkout may start from. A failed
// commission re-enters the flow on retry.
var payableStatuses = []string{entity.CommissionStatusPending, entity.CommissionStatusFailed}

type CommissionUseCase struct {
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
	referenceRepo  repository.PaymentReferenceRepository
	gateway        service.PaymentGateway
	notifier       Notifier
	settings       PaymentSettings
}

func NewCommissionUseCase(
	commissionRepo repository.CommissionRepository,
	userRepo repository.UserRepository,
	referenceRepo repository.PaymentReferenceRepository,
	gateway service.PaymentGateway,
	notifier Notifier,
	settings PaymentSettings,
) *CommissionUseCase {
	return &CommissionUseCase{
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		referenceRepo:  referenceRepo,
		gateway:        gateway,
		notifier:       notifier,
		settings:       settings,
	}
}

type CommissionCheckout struct {
	Reference     string   `json:"reference"`
	CheckoutURL   string   `json:"checkout_url"`
	Amount        float64  `json:"amount"`
	CommissionIDs []string `json:"commission_ids"`
}

// PaySingleCommission starts the seller's checkout for one commission. The
// commission is claimed into in_progress before the gateway call, so a second
// attempt fails with a conflict instead of opening another checkout.
func (uc *CommissionUseCase) PaySingleCommission(ctx context.Context, actor Actor, commissionID string) (*CommissionCheckout, error) {
	commission, err := uc.commissionRepo.GetByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission.SellerID != actor.UserID {
		return nil, errors.Forbidden("Only the seller can pay this commission", nil)
	}
	if !commission.CanInitiatePayment() {
		return nil, errors.Conflict(fmt.Sprintf("Commission cannot be paid in status %s", commission.Status))
	}

	reference := service.NewReference(service.KindCommission)
	return uc.startCheckout(ctx, actor.UserID, reference, service.KindCommission, commission.ID,
		[]*entity.Commission{commission}, commission.Status, "Commission payment")
}

// RequestPayout gathers every payable commission of the broker under one
// shared reference and one checkout for the total.
func (uc *CommissionUseCase) RequestPayout(ctx context.Context, actor Actor) (*CommissionCheckout, error) {
	if !actor.IsBroker() {
		return nil, errors.Forbidden("Only brokers can request a payout", nil)
	}

	commissions, _, err := uc.commissionRepo.List(ctx, repository.CommissionFilter{
		BrokerID: actor.UserID,
		Statuses: payableStatuses,
	})
	if err != nil {
		return nil, err
	}
	if len(commissions) == 0 {
		return nil, errors.Conflict("No commissions are due for payout")
	}

	reference := service.NewReference(service.KindPayout)
	return uc.startCheckout(ctx, actor.UserID, reference, service.KindPayout, actor.UserID,
		commissions, entity.CommissionStatusPending, fmt.Sprintf("Commission payout (%d)", len(commissions)))
}

func (uc *CommissionUseCase) startCheckout(
	ctx context.Context,
	payerID, reference string,
	kind service.ReferenceKind,
	entityID string,
	commissions []*entity.Commission,
	releaseTo string,
	item string,
) (*CommissionCheckout, error) {
	if err := uc.referenceRepo.Claim(ctx, &entity.PaymentReference{
		Reference: reference,
		Kind:      string(kind),
		EntityID:  entityID,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(commissions))
	for _, c := range commissions {
		ids = append(ids, c.ID)
	}

	claimed, err := uc.commissionRepo.AssignTransaction(ctx, ids, payableStatuses, reference)
	if err != nil {
		return nil, err
	}
	total := entity.SumCommissions(claimed)

	checkout, err := uc.gateway.InitializePayment(ctx, buildPaymentRequest(ctx, uc.userRepo, uc.settings, payerID, reference, total, item))
	if err != nil {
		if relErr := uc.commissionRepo.Release(ctx, reference, releaseTo); relErr != nil {
			logger.Error("Failed to release commissions for %s: %v", reference, relErr)
		}
		logger.PaymentError(reference, "start_commission_checkout", err)
		return nil, err
	}
	logger.Payment(reference, "start_commission_checkout", fmt.Sprintf("commissions=%d", len(claimed)), fmt.Sprintf("amount=%.2f", total))

	return &CommissionCheckout{
		Reference:     reference,
		CheckoutURL:   checkout.CheckoutURL,
		Amount:        total,
		CommissionIDs: ids,
	}, nil
}

// ConfirmCommissionPayment applies a verified outcome to every commission
// carrying the reference. Commissions already in the target state are left
// alone, so repeated calls change and notify nothing.
func (uc *CommissionUseCase) ConfirmCommissionPayment(ctx context.Context, reference, outcome string) (int, error) {
	kind, err := service.ParseReference(reference)
	if err != nil {
		return 0, err
	}
	if kind != service.KindCommission && kind != service.KindPayout {
		return 0, errors.Validation("reference is not a commission payment")
	}

	switch outcome {
	case service.PaymentOutcomeSuccess:
		changed, err := uc.commissionRepo.Transition(ctx, reference,
			[]string{entity.CommissionStatusPending, entity.CommissionStatusInProgress, entity.CommissionStatusFailed},
			entity.CommissionStatusPaid)
		if err != nil {
			return 0, err
		}
		if len(changed) > 0 {
			logger.Payment(reference, "confirm_commission_payment", fmt.Sprintf("paid=%d", len(changed)))
			uc.notifyPaid(ctx, kind, changed)
		}
		return len(changed), nil

	case service.PaymentOutcomeFailure:
		changed, err := uc.commissionRepo.Transition(ctx, reference,
			[]string{entity.CommissionStatusInProgress}, entity.CommissionStatusFailed)
		if err != nil {
			return 0, err
		}
		if len(changed) > 0 {
			logger.Payment(reference, "fail_commission_payment", fmt.Sprintf("failed=%d", len(changed)))
			uc.notifyFailed(ctx, changed)
		}
		return len(changed), nil
	}

	return 0, nil
}

func (uc *CommissionUseCase) notifyPaid(ctx context.Context, kind service.ReferenceKind, changed []*entity.Commission) {
	if kind == service.KindPayout {
		total := entity.SumCommissions(changed)
		uc.notifier.Notify(ctx, []string{changed[0].BrokerID}, Message{
			Title: "Commission payout completed",
			Body:  fmt.Sprintf("Payout of %.2f for %d commission(s) was completed.", total, len(changed)),
			Type:  entity.NotificationSuccess,
		})
		return
	}

	for _, c := range changed {
		uc.notifier.Notify(ctx, []string{c.SellerID, c.BrokerID}, Message{
			Title:         "Commission paid",
			Body:          fmt.Sprintf("The commission of %.2f was paid.", c.Amount),
			Type:          entity.NotificationSuccess,
			RelatedEntity: c.ListingID,
		})
	}
}

func (uc *CommissionUseCase) notifyFailed(ctx context.Context, changed []*entity.Commission) {
	for _, c := range changed {
		uc.notifier.Notify(ctx, []string{c.SellerID}, Message{
			Title:         "Commission payment failed",
			Body:          fmt.Sprintf("The payment for a commission of %.2f did not go through. You can retry.", c.Amount),
			Type:          entity.NotificationError,
			RelatedEntity: c.ListingID,
		})
	}
}

// ListCommissions scopes the query to what the actor may see: everything for
// admins, their own for brokers, and the ones they owe otherwise.
func (uc *CommissionUseCase) ListCommissions(ctx context.Context, actor Actor, filter repository.CommissionFilter) ([]*entity.Commission, int64, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsBroker():
		filter.BrokerID = actor.UserID
	default:
		filter.SellerID = actor.UserID
	}

	commissions, total, err := uc.commissionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if commissions == nil {
		commissions = []*entity.Commission{}
	}
	return commissions, total, nil
}

func (uc *CommissionUseCase) GetCommission(ctx context.Context, actor Actor, commissionID string) (*entity.Commission, error) {
	commission, err := uc.commissionRepo.GetByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && commission.BrokerID != actor.UserID && commission.SellerID != actor.UserID {
		return nil, errors.Forbidden("You don't have permission to view this commission", nil)
	}
	return commission, nil
}
