package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/pkg/errors"
)

func TestPaySingleCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, commission := f.soldListing(t, 200000)

	_, err := f.commission.PaySingleCommission(ctx, buyer, commission.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	checkout, err := f.commission.PaySingleCommission(ctx, seller, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, checkout.Amount)
	assert.Equal(t, []string{commission.ID}, checkout.CommissionIDs)

	kind, err := service.ParseReference(checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, service.KindCommission, kind)

	stored, err := f.commissions.GetByID(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CommissionStatusInProgress, stored.Status)
	assert.Equal(t, checkout.Reference, stored.TransactionID)

	_, err = f.commission.PaySingleCommission(ctx, seller, commission.ID)
	assert.True(t, errors.Is(err, "CONFLICT"))

	f.settle(t, checkout.Reference, service.PaymentOutcomeSuccess)
	stored, err = f.commissions.GetByID(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CommissionStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	// paid is terminal
	_, err = f.commission.PaySingleCommission(ctx, seller, commission.ID)
	assert.True(t, errors.Is(err, "CONFLICT"))
}

func TestCommissionGatewayErrorReleasesClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, commission := f.soldListing(t, 100000)

	f.gateway.SetInitializeError(fmt.Errorf("down"))
	_, err := f.commission.PaySingleCommission(ctx, seller, commission.ID)
	assert.True(t, errors.IsRetryable(err))

	stored, err := f.commissions.GetByID(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CommissionStatusPending, stored.Status)
	assert.Empty(t, stored.TransactionID)

	f.gateway.SetInitializeError(nil)
	_, err = f.commission.PaySingleCommission(ctx, seller, commission.ID)
	assert.NoError(t, err)
}

func TestCommissionFailureAndRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, commission := f.soldListing(t, 100000)

	checkout, err := f.commission.PaySingleCommission(ctx, seller, commission.ID)
	require.NoError(t, err)

	sellerBefore := f.notificationCount(t, seller.UserID)
	f.settle(t, checkout.Reference, service.PaymentOutcomeFailure)
	f.settle(t, checkout.Reference, service.PaymentOutcomeFailure)

	stored, err := f.commissions.GetByID(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CommissionStatusFailed, stored.Status)
	assert.Equal(t, sellerBefore+1, f.notificationCount(t, seller.UserID))

	retry, err := f.commission.PaySingleCommission(ctx, seller, commission.ID)
	require.NoError(t, err)
	assert.NotEqual(t, checkout.Reference, retry.Reference)

	f.settle(t, retry.Reference, service.PaymentOutcomeSuccess)
	stored, err = f.commissions.GetByID(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CommissionStatusPaid, stored.Status)
}

func TestRequestPayoutPaysEveryDueCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, c1 := f.soldListing(t, 100000)
	_, c2 := f.soldListing(t, 250000)
	_, c3 := f.soldListing(t, 50000)

	// c3 fails first and is still due
	single, err := f.commission.PaySingleCommission(ctx, seller, c3.ID)
	require.NoError(t, err)
	f.settle(t, single.Reference, service.PaymentOutcomeFailure)

	_, err = f.commission.RequestPayout(ctx, seller)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	payout, err := f.commission.RequestPayout(ctx, broker)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1.ID, c2.ID, c3.ID}, payout.CommissionIDs)
	assert.Equal(t, 1000.0+2500.0+500.0, payout.Amount)

	kind, err := service.ParseReference(payout.Reference)
	require.NoError(t, err)
	assert.Equal(t, service.KindPayout, kind)

	_, err = f.commission.RequestPayout(ctx, broker)
	assert.True(t, errors.Is(err, "CONFLICT"), "nothing left to pay out")

	brokerBefore := f.notificationCount(t, broker.UserID)
	f.settle(t, payout.Reference, service.PaymentOutcomeSuccess)
	f.settle(t, payout.Reference, service.PaymentOutcomeSuccess)

	all, _, err := f.commissions.List(ctx, repository.CommissionFilter{BrokerID: broker.UserID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, c := range all {
		assert.Equal(t, entity.CommissionStatusPaid, c.Status, c.ID)
		assert.Equal(t, payout.Reference, c.TransactionID)
	}
	assert.Equal(t, brokerBefore+1, f.notificationCount(t, broker.UserID), "one payout summary")
}

func TestPayoutGatewayErrorReleasesBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, c1 := f.soldListing(t, 100000)
	_, c2 := f.soldListing(t, 100000)

	f.gateway.SetInitializeError(fmt.Errorf("down"))
	_, err := f.commission.RequestPayout(ctx, broker)
	assert.True(t, errors.IsRetryable(err))

	for _, id := range []string{c1.ID, c2.ID} {
		stored, err := f.commissions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.CommissionStatusPending, stored.Status)
	}
}

func TestPayoutConflictsWithInFlightSinglePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, c1 := f.soldListing(t, 100000)
	_, c2 := f.soldListing(t, 100000)

	_, err := f.commission.PaySingleCommission(ctx, seller, c1.ID)
	require.NoError(t, err)

	payout, err := f.commission.RequestPayout(ctx, broker)
	require.NoError(t, err)
	assert.Equal(t, []string{c2.ID}, payout.CommissionIDs, "in-flight commissions are not gathered")
}

func TestListAndGetCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, commission := f.soldListing(t, 100000)

	for _, actor := range []Actor{admin, broker, seller} {
		list, total, err := f.commission.ListCommissions(ctx, actor, repository.CommissionFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total, actor.UserID)
		assert.Len(t, list, 1)

		_, err = f.commission.GetCommission(ctx, actor, commission.ID)
		assert.NoError(t, err, actor.UserID)
	}

	list, total, err := f.commission.ListCommissions(ctx, buyer, repository.CommissionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, list)

	other := Actor{UserID: "broker-2", Role: entity.RoleBroker}
	_, err = f.commission.GetCommission(ctx, other, commission.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}
