package entity

import (
	"time"

	"bims/pkg/errors"
)

type ListingStage string

const (
	StageAwaitingPayment  ListingStage = "awaiting_payment"
	StagePaymentConfirmed ListingStage = "payment_confirmed"
	StageAssigned         ListingStage = "assigned"
	StageApproved         ListingStage = "approved"
	StageRejected         ListingStage = "rejected"
	StageSold             ListingStage = "sold"
	StageWithdrawn        ListingStage = "withdrawn"
)

// NewListing returns a listing in its initial state: fee pending, awaiting payment.
func NewListing(ownerID string, now time.Time) *Listing {
	l := &Listing{
		OwnerID:       ownerID,
		Stage:         StageAwaitingPayment,
		PaymentStatus: PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.refresh()
	return l
}

// ConfirmFee records a verified listing-fee payment. It reports false when the
// fee was already paid so callers can skip side effects.
func (l *Listing) ConfirmFee(now time.Time) bool {
	l.Normalize()
	if l.FeePaid() {
		return false
	}
	l.PaymentStatus = PaymentStatusPaid
	l.PaidAt = &now
	if l.Stage == StageAwaitingPayment {
		l.Stage = StagePaymentConfirmed
	}
	l.touch(now)
	return true
}

// FailFee records a gateway-reported failure. A paid fee never reverts.
func (l *Listing) FailFee(now time.Time) bool {
	l.Normalize()
	if l.FeePaid() || l.PaymentStatus == PaymentStatusFailed {
		return false
	}
	l.PaymentStatus = PaymentStatusFailed
	l.touch(now)
	return true
}

// RestartFee attaches a fresh payment reference to an unpaid listing.
func (l *Listing) RestartFee(reference string, now time.Time) error {
	l.Normalize()
	if l.FeePaid() {
		return errors.Conflict("Listing fee is already paid")
	}
	if l.Stage == StageSold || l.Stage == StageWithdrawn {
		return errors.Conflict("Listing is no longer open for payment")
	}
	l.TransactionID = reference
	l.PaymentStatus = PaymentStatusPending
	l.touch(now)
	return nil
}

// AssignBroker moves the listing into broker review. The lifecycle status is
// left as it was, so an approved listing stays active while it is re-reviewed.
// force skips the payment precondition and is reserved for admins.
func (l *Listing) AssignBroker(brokerID string, force bool, now time.Time) error {
	l.Normalize()
	switch l.Stage {
	case StageSold:
		return errors.Conflict("Listing is already sold")
	case StageWithdrawn:
		return errors.Conflict("Listing has been withdrawn")
	}
	if !force && !l.FeePaid() && l.Status != ListingStatusActive {
		return errors.Forbidden("Listing fee must be paid before a broker can be assigned", nil)
	}
	l.AssignedBroker = brokerID
	l.Stage = StageAssigned
	l.Decision = ""
	l.touch(now)
	return nil
}

// Verify applies a review decision from any review state, with or without an
// assigned broker. Re-verification is allowed until the listing is sold or withdrawn.
func (l *Listing) Verify(decision, notes, verifierID string, now time.Time) error {
	l.Normalize()
	switch l.Stage {
	case StageSold:
		return errors.Conflict("Listing is already sold")
	case StageWithdrawn:
		return errors.Conflict("Listing has been withdrawn")
	}
	switch decision {
	case VerificationApproved:
		l.Stage = StageApproved
	case VerificationRejected:
		l.Stage = StageRejected
	default:
		return errors.Validation("decision must be one of: approved rejected")
	}
	l.Decision = decision
	l.VerificationNotes = notes
	l.VerifiedBy = verifierID
	l.VerifiedAt = &now
	l.touch(now)
	return nil
}

// MarkSold is safe to reapply on an already sold listing; the buyer of the first sale is kept.
func (l *Listing) MarkSold(buyerID string, now time.Time) {
	l.Normalize()
	if l.Stage != StageSold {
		l.BuyerID = buyerID
		l.SoldAt = &now
		l.Stage = StageSold
	}
	l.touch(now)
}

// Withdraw is the admin soft delete: the record stays, the listing goes inactive.
func (l *Listing) Withdraw(now time.Time) {
	l.Normalize()
	l.Stage = StageWithdrawn
	l.touch(now)
}

// Normalize fills Stage for records written before the stage field existed and
// recomputes the derived view.
func (l *Listing) Normalize() {
	if l.Stage == "" {
		l.Stage = stageFromView(l)
	}
	if l.PaymentStatus == "" {
		l.PaymentStatus = PaymentStatusPending
	}
	l.refresh()
}

func (l *Listing) touch(now time.Time) {
	l.UpdatedAt = now
	l.refresh()
}

func (l *Listing) refresh() {
	switch l.Stage {
	case StageAwaitingPayment, StagePaymentConfirmed:
		l.Status, l.VerificationStatus = ListingStatusPending, VerificationPending
	case StageAssigned:
		if l.Status == "" {
			l.Status = ListingStatusPending
		}
		l.VerificationStatus = VerificationAssigned
	case StageApproved:
		l.Status, l.VerificationStatus = ListingStatusActive, VerificationApproved
	case StageRejected:
		l.Status, l.VerificationStatus = ListingStatusInactive, VerificationRejected
	case StageSold:
		l.Status, l.VerificationStatus = ListingStatusSold, l.settledVerification()
	case StageWithdrawn:
		l.Status, l.VerificationStatus = ListingStatusInactive, l.settledVerification()
	}
}

// settledVerification is the review view of a listing that left the review flow.
func (l *Listing) settledVerification() string {
	if l.Decision != "" {
		return l.Decision
	}
	if l.AssignedBroker != "" {
		return VerificationAssigned
	}
	return VerificationPending
}

func stageFromView(l *Listing) ListingStage {
	switch {
	case l.Status == ListingStatusSold:
		if l.VerificationStatus == VerificationApproved || l.VerificationStatus == VerificationRejected {
			l.Decision = l.VerificationStatus
		}
		return StageSold
	case l.VerificationStatus == VerificationApproved:
		l.Decision = VerificationApproved
		return StageApproved
	case l.VerificationStatus == VerificationRejected:
		l.Decision = VerificationRejected
		return StageRejected
	case l.VerificationStatus == VerificationAssigned:
		return StageAssigned
	case l.Status == ListingStatusInactive:
		return StageWithdrawn
	case l.FeePaid():
		return StagePaymentConfirmed
	default:
		return StageAwaitingPayment
	}
}
