package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/internal/domain/service"
	"bims/pkg/errors"
)

func TestContactPaymentUnlocksAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.approvedListing(t, 1000)

	checkout, err := f.contacts.InitiateContactPayment(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, checkout.ContactID)
	assert.NotEmpty(t, checkout.CheckoutURL)

	req, ok := f.gateway.Request(checkout.Reference)
	require.True(t, ok)
	assert.Equal(t, 50.0, req.Amount)

	paid, err := f.contacts.CheckContactAccess(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	notesBefore := f.notificationCount(t, buyer.UserID) + f.notificationCount(t, seller.UserID)

	f.settle(t, checkout.Reference, service.PaymentOutcomeSuccess)

	paid, err = f.contacts.CheckContactAccess(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)
	assert.True(t, paid)

	// unlocking is silent
	assert.Equal(t, notesBefore, f.notificationCount(t, buyer.UserID)+f.notificationCount(t, seller.UserID))

	// a repeated delivery changes nothing
	changed, err := f.contacts.ConfirmContactPayment(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.contacts.InitiateContactPayment(ctx, buyer.UserID, listing.ID)
	assert.True(t, errors.Is(err, "CONFLICT"))
}

func TestContactPaymentDoesNotCheckListingState(t *testing.T) {
	f := newFixture(t)
	unapproved := f.createListing(t, 1000)

	_, err := f.contacts.InitiateContactPayment(context.Background(), buyer.UserID, unapproved.Listing.ID)
	assert.NoError(t, err)
}

func TestContactPaymentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.approvedListing(t, 1000)

	_, err := f.contacts.InitiateContactPayment(ctx, buyer.UserID, "missing")
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	f.gateway.SetInitializeError(fmt.Errorf("down"))
	_, err = f.contacts.InitiateContactPayment(ctx, buyer.UserID, listing.ID)
	assert.True(t, errors.IsRetryable(err))
	f.gateway.SetInitializeError(nil)

	checkout, err := f.contacts.InitiateContactPayment(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)

	f.settle(t, checkout.Reference, service.PaymentOutcomeFailure)
	paid, err := f.contacts.CheckContactAccess(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)
	assert.False(t, paid)

	request, err := f.contacts.GetContactRequest(ctx, buyer, checkout.ContactID)
	require.NoError(t, err)
	assert.Equal(t, "pending", request.Status)
}

func TestGetContactRequestPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	listing := f.approvedListing(t, 1000)

	checkout, err := f.contacts.InitiateContactPayment(ctx, buyer.UserID, listing.ID)
	require.NoError(t, err)

	for _, actor := range []Actor{buyer, seller, admin} {
		_, err := f.contacts.GetContactRequest(ctx, actor, checkout.ContactID)
		assert.NoError(t, err, actor.UserID)
	}
	_, err = f.contacts.GetContactRequest(ctx, broker, checkout.ContactID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}
