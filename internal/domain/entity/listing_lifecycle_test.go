package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/pkg/errors"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func paidListing() *Listing {
	l := NewListing("owner-1", t0)
	l.ConfirmFee(t0)
	return l
}

func TestNewListing(t *testing.T) {
	l := NewListing("owner-1", t0)

	assert.Equal(t, StageAwaitingPayment, l.Stage)
	assert.Equal(t, PaymentStatusPending, l.PaymentStatus)
	assert.Equal(t, ListingStatusPending, l.Status)
	assert.Equal(t, VerificationPending, l.VerificationStatus)
	assert.False(t, l.IsPubliclyVisible())
}

func TestConfirmFee(t *testing.T) {
	l := NewListing("owner-1", t0)

	assert.True(t, l.ConfirmFee(t0.Add(time.Minute)))
	assert.Equal(t, PaymentStatusPaid, l.PaymentStatus)
	assert.Equal(t, StagePaymentConfirmed, l.Stage)
	require.NotNil(t, l.PaidAt)

	// second confirmation is a no-op
	assert.False(t, l.ConfirmFee(t0.Add(time.Hour)))
	assert.Equal(t, t0.Add(time.Minute), *l.PaidAt)
}

func TestConfirmFeeAfterForcedAssignmentKeepsStage(t *testing.T) {
	l := NewListing("owner-1", t0)
	require.NoError(t, l.AssignBroker("broker-1", true, t0))

	assert.True(t, l.ConfirmFee(t0))
	assert.Equal(t, StageAssigned, l.Stage)
	assert.Equal(t, VerificationAssigned, l.VerificationStatus)
}

func TestFailFee(t *testing.T) {
	l := NewListing("owner-1", t0)
	assert.True(t, l.FailFee(t0))
	assert.Equal(t, PaymentStatusFailed, l.PaymentStatus)
	assert.False(t, l.FailFee(t0), "already failed")

	paid := paidListing()
	assert.False(t, paid.FailFee(t0), "paid fee never reverts")
	assert.Equal(t, PaymentStatusPaid, paid.PaymentStatus)
}

func TestRestartFee(t *testing.T) {
	l := NewListing("owner-1", t0)
	l.FailFee(t0)

	require.NoError(t, l.RestartFee("BIMS-LST-new", t0))
	assert.Equal(t, "BIMS-LST-new", l.TransactionID)
	assert.Equal(t, PaymentStatusPending, l.PaymentStatus)

	err := paidListing().RestartFee("BIMS-LST-other", t0)
	assert.True(t, errors.Is(err, "CONFLICT"))
}

func TestAssignBroker(t *testing.T) {
	t.Run("requires paid fee", func(t *testing.T) {
		l := NewListing("owner-1", t0)
		err := l.AssignBroker("broker-1", false, t0)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
		assert.Empty(t, l.AssignedBroker)
	})

	t.Run("admin can force", func(t *testing.T) {
		l := NewListing("owner-1", t0)
		require.NoError(t, l.AssignBroker("broker-1", true, t0))
		assert.Equal(t, "broker-1", l.AssignedBroker)
		assert.Equal(t, PaymentStatusPending, l.PaymentStatus)
	})

	t.Run("paid listing moves to assigned", func(t *testing.T) {
		l := paidListing()
		require.NoError(t, l.AssignBroker("broker-1", false, t0))
		assert.Equal(t, ListingStatusPending, l.Status)
		assert.Equal(t, VerificationAssigned, l.VerificationStatus)
	})

	t.Run("sold listing rejects assignment", func(t *testing.T) {
		l := paidListing()
		require.NoError(t, l.AssignBroker("broker-1", false, t0))
		l.MarkSold("buyer-1", t0)
		err := l.AssignBroker("broker-2", true, t0)
		assert.True(t, errors.Is(err, "CONFLICT"))
		assert.Equal(t, "broker-1", l.AssignedBroker)
	})

	t.Run("withdrawn listing rejects assignment", func(t *testing.T) {
		l := paidListing()
		l.Withdraw(t0)
		err := l.AssignBroker("broker-1", true, t0)
		assert.True(t, errors.Is(err, "CONFLICT"))
		assert.Equal(t, StageWithdrawn, l.Stage)
		assert.Equal(t, ListingStatusInactive, l.Status)
		assert.Empty(t, l.AssignedBroker)
	})

	t.Run("reassigning an approved listing keeps it active", func(t *testing.T) {
		l := paidListing()
		require.NoError(t, l.AssignBroker("broker-1", false, t0))
		require.NoError(t, l.Verify(VerificationApproved, "", "broker-1", t0))

		require.NoError(t, l.AssignBroker("broker-2", false, t0))
		assert.Equal(t, ListingStatusActive, l.Status)
		assert.Equal(t, VerificationAssigned, l.VerificationStatus)
		assert.Equal(t, "broker-2", l.AssignedBroker)
	})

	t.Run("reassigning a rejected listing keeps it inactive", func(t *testing.T) {
		l := paidListing()
		require.NoError(t, l.Verify(VerificationRejected, "", "admin-1", t0))

		require.NoError(t, l.AssignBroker("broker-1", false, t0))
		assert.Equal(t, ListingStatusInactive, l.Status)
		assert.Equal(t, VerificationAssigned, l.VerificationStatus)
	})
}

func TestVerify(t *testing.T) {
	l := paidListing()
	require.NoError(t, l.AssignBroker("broker-1", false, t0))
	require.NoError(t, l.Verify(VerificationApproved, "looks good", "broker-1", t0))
	assert.Equal(t, ListingStatusActive, l.Status)
	assert.Equal(t, VerificationApproved, l.VerificationStatus)
	assert.True(t, l.IsPubliclyVisible())

	// re-verification is allowed before sale
	require.NoError(t, l.Verify(VerificationRejected, "missing deed", "broker-1", t0))
	assert.Equal(t, ListingStatusInactive, l.Status)
	assert.Equal(t, VerificationRejected, l.VerificationStatus)

	assert.True(t, errors.Is(l.Verify("maybe", "", "broker-1", t0), "VALIDATION_ERROR"))
}

func TestVerifyWithoutBroker(t *testing.T) {
	l := paidListing()
	require.NoError(t, l.Verify(VerificationApproved, "ok", "admin-1", t0))
	assert.Empty(t, l.AssignedBroker)
	assert.Equal(t, ListingStatusActive, l.Status)
	assert.Equal(t, VerificationApproved, l.VerificationStatus)
	assert.Equal(t, "admin-1", l.VerifiedBy)
}

func TestVerifyAfterSaleOrWithdrawal(t *testing.T) {
	sold := paidListing()
	require.NoError(t, sold.AssignBroker("broker-1", false, t0))
	require.NoError(t, sold.Verify(VerificationApproved, "", "broker-1", t0))
	sold.MarkSold("buyer-1", t0)
	assert.True(t, errors.Is(sold.Verify(VerificationRejected, "", "broker-1", t0), "CONFLICT"))
	assert.Equal(t, VerificationApproved, sold.VerificationStatus)

	withdrawn := paidListing()
	require.NoError(t, withdrawn.AssignBroker("broker-1", false, t0))
	withdrawn.Withdraw(t0)
	assert.True(t, errors.Is(withdrawn.Verify(VerificationApproved, "", "broker-1", t0), "CONFLICT"))
}

func TestMarkSoldKeepsFirstBuyer(t *testing.T) {
	l := paidListing()
	require.NoError(t, l.AssignBroker("broker-1", false, t0))
	require.NoError(t, l.Verify(VerificationApproved, "", "broker-1", t0))

	l.MarkSold("buyer-1", t0)
	l.MarkSold("buyer-2", t0.Add(time.Hour))

	assert.Equal(t, ListingStatusSold, l.Status)
	assert.Equal(t, VerificationApproved, l.VerificationStatus)
	assert.Equal(t, "buyer-1", l.BuyerID)
	assert.Equal(t, t0, *l.SoldAt)
}

func TestWithdraw(t *testing.T) {
	l := paidListing()
	l.Withdraw(t0)

	assert.Equal(t, ListingStatusInactive, l.Status)
	assert.Equal(t, VerificationPending, l.VerificationStatus)
	assert.False(t, l.IsPubliclyVisible())
}

func TestNormalizeLegacyRecords(t *testing.T) {
	tests := []struct {
		name    string
		listing Listing
		stage   ListingStage
	}{
		{"unpaid", Listing{Status: ListingStatusPending, VerificationStatus: VerificationPending, PaymentStatus: PaymentStatusPending}, StageAwaitingPayment},
		{"paid with legacy success", Listing{Status: ListingStatusPending, VerificationStatus: VerificationPending, PaymentStatus: PaymentStatusSuccess}, StagePaymentConfirmed},
		{"assigned", Listing{Status: ListingStatusPending, VerificationStatus: VerificationAssigned, AssignedBroker: "b"}, StageAssigned},
		{"approved", Listing{Status: ListingStatusActive, VerificationStatus: VerificationApproved}, StageApproved},
		{"rejected", Listing{Status: ListingStatusInactive, VerificationStatus: VerificationRejected}, StageRejected},
		{"sold", Listing{Status: ListingStatusSold, VerificationStatus: VerificationApproved}, StageSold},
		{"withdrawn", Listing{Status: ListingStatusInactive, VerificationStatus: VerificationPending}, StageWithdrawn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.listing
			status, verification := l.Status, l.VerificationStatus
			l.Normalize()
			assert.Equal(t, tt.stage, l.Stage)
			assert.Equal(t, status, l.Status)
			assert.Equal(t, verification, l.VerificationStatus)
		})
	}
}

func TestCommissionAmount(t *testing.T) {
	assert.Equal(t, 2500.0, CommissionAmount(250000, DefaultCommissionRate))
	assert.Equal(t, 1.23, CommissionAmount(123.4, 0.01))

	total := SumCommissions([]*Commission{{Amount: 0.1}, {Amount: 0.2}})
	assert.Equal(t, 0.3, total)
}

func TestCommissionCanInitiatePayment(t *testing.T) {
	for status, want := range map[string]bool{
		CommissionStatusPending:    true,
		CommissionStatusFailed:     true,
		CommissionStatusInProgress: false,
		CommissionStatusPaid:       false,
	} {
		c := &Commission{Status: status}
		assert.Equal(t, want, c.CanInitiatePayment(), status)
	}
}
