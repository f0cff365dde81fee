package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bims/internal/adapter/repository/memory"
	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/internal/infrastructure/lock"
)

var (
	admin  = Actor{UserID: "admin-1", Role: entity.RoleAdmin}
	broker = Actor{UserID: "broker-1", Role: entity.RoleBroker}
	seller = Actor{UserID: "seller-1", Role: entity.RoleClient}
	buyer  = Actor{UserID: "buyer-1", Role: entity.RoleClient}
	anon   = Actor{}
)

type recordingPusher struct {
	mu     sync.Mutex
	pushes map[string]int
}

func (p *recordingPusher) PushJSON(userID, kind string, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushes == nil {
		p.pushes = make(map[string]int)
	}
	p.pushes[userID]++
}

type fixture struct {
	store   *memory.Store
	gateway *service.SandboxPaymentGateway
	pusher  *recordingPusher

	users         repository.UserRepository
	listingRepo   repository.ListingRepository
	commissions   repository.CommissionRepository
	notifications repository.NotificationRepository

	notifier   *NotificationUseCase
	listings   *ListingUseCase
	contacts   *ContactUseCase
	commission *CommissionUseCase
	reconciler *ReconcilerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	f := &fixture{
		store:         store,
		gateway:       service.NewSandboxPaymentGateway("http://pay.test"),
		pusher:        &recordingPusher{},
		users:         store.Users(),
		listingRepo:   store.Listings(),
		commissions:   store.Commissions(),
		notifications: store.Notifications(),
	}

	for _, a := range []Actor{admin, broker, seller, buyer, {UserID: "broker-2", Role: entity.RoleBroker}} {
		require.NoError(t, f.users.Create(ctx, &entity.User{
			ID:        a.UserID,
			Email:     a.UserID + "@example.com",
			FirstName: a.UserID,
			Role:      a.Role,
		}))
	}

	settings := PaymentSettings{
		Currency:       "ETB",
		ListingFee:     100,
		ContactFee:     50,
		CommissionRate: 0.01,
		CallbackURL:    "http://api.test/v1/payments/webhook",
		ReturnURL:      "http://app.test/done",
	}

	f.notifier = NewNotificationUseCase(f.notifications, f.users, f.pusher)
	f.listings = NewListingUseCase(f.listingRepo, f.users, f.commissions, store.PaymentReferences(), f.gateway, f.notifier, settings)
	f.contacts = NewContactUseCase(store.ContactRequests(), f.listingRepo, f.users, store.PaymentReferences(), f.gateway, settings)
	f.commission = NewCommissionUseCase(f.commissions, f.users, store.PaymentReferences(), f.gateway, f.notifier, settings)
	f.reconciler = NewReconcilerUseCase(f.gateway, lock.NewLocalLocker(), f.listings, f.contacts, f.commission)
	return f
}

func (f *fixture) createListing(t *testing.T, price float64) *ListingCheckout {
	t.Helper()
	checkout, err := f.listings.CreateListing(context.Background(), seller.UserID, CreateListingInput{
		Title:       "Two bedroom apartment",
		Description: "Close to the ring road",
		Price:       price,
		Location:    "Addis Ababa",
		Type:        entity.ListingTypeProperty,
		Images:      []string{"https://img.test/1.jpg"},
	})
	require.NoError(t, err)
	return checkout
}

// settle marks reference as settled at the gateway and delivers the webhook.
func (f *fixture) settle(t *testing.T, reference, outcome string) {
	t.Helper()
	f.gateway.Settle(reference, outcome)
	require.NoError(t, f.reconciler.HandleWebhook(context.Background(), reference))
}

// approvedListing runs a listing through payment, assignment and approval.
func (f *fixture) approvedListing(t *testing.T, price float64) *entity.Listing {
	t.Helper()
	ctx := context.Background()

	checkout := f.createListing(t, price)
	f.settle(t, checkout.Reference, service.PaymentOutcomeSuccess)

	_, err := f.listings.AssignBroker(ctx, admin, checkout.Listing.ID, broker.UserID)
	require.NoError(t, err)
	listing, err := f.listings.VerifyListing(ctx, broker, checkout.Listing.ID, entity.VerificationApproved, "")
	require.NoError(t, err)
	return listing
}

func (f *fixture) soldListing(t *testing.T, price float64) (*entity.Listing, *entity.Commission) {
	t.Helper()
	listing := f.approvedListing(t, price)
	result, err := f.listings.SellListing(context.Background(), admin, listing.ID, buyer.UserID)
	require.NoError(t, err)
	return result.Listing, result.Commission
}

func (f *fixture) notificationCount(t *testing.T, userID string) int64 {
	t.Helper()
	_, total, err := f.notifications.ListByRecipient(context.Background(), userID, false, 0, 0)
	require.NoError(t, err)
	return total
}

func (f *fixture) listing(t *testing.T, id string) *entity.Listing {
	t.Helper()
	l, err := f.listingRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return l
}

func fixedNow(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
