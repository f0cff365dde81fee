// Package app assembles the stores, gateway, locks and use cases shared by the
// API server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bims/internal/adapter/api/handler"
	"bims/internal/adapter/api/middleware"
	"bims/internal/adapter/repository"
	"bims/internal/adapter/repository/memory"
	"bims/internal/domain/entity"
	domainrepo "bims/internal/domain/repository"
	"bims/internal/domain/service"
	"bims/internal/infrastructure/firebase"
	"bims/internal/infrastructure/lock"
	"bims/internal/infrastructure/websocket"
	"bims/internal/usecase"
	"bims/pkg/config"
	"bims/pkg/logger"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Repositories struct {
	Users             domainrepo.UserRepository
	Listings          domainrepo.ListingRepository
	ContactRequests   domainrepo.ContactRequestRepository
	Commissions       domainrepo.CommissionRepository
	Notifications     domainrepo.NotificationRepository
	PaymentReferences domainrepo.PaymentReferenceRepository
}

type App struct {
	Config    *config.Config
	Repos     Repositories
	Gateway   service.PaymentGateway
	Locker    lock.Locker
	Verifier  middleware.TokenVerifier
	WSManager *websocket.Manager

	Notifications *usecase.NotificationUseCase
	Listings      *usecase.ListingUseCase
	Contacts      *usecase.ContactUseCase
	Commissions   *usecase.CommissionUseCase
	Reconciler    *usecase.ReconcilerUseCase

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, WSManager: websocket.NewManager()}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initLocker(); err != nil {
		a.Close()
		return nil, err
	}
	gateway, err := newGateway(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gateway = gateway

	settings := usecase.PaymentSettings{
		Currency:       cfg.PaymentCurrency,
		ListingFee:     cfg.ListingFee,
		ContactFee:     cfg.ContactFee,
		CommissionRate: cfg.CommissionRate,
		CallbackURL:    cfg.PaymentCallbackURL,
		ReturnURL:      cfg.PaymentReturnURL,
	}

	r := a.Repos
	a.Notifications = usecase.NewNotificationUseCase(r.Notifications, r.Users, a.WSManager)
	a.Listings = usecase.NewListingUseCase(r.Listings, r.Users, r.Commissions, r.PaymentReferences, a.Gateway, a.Notifications, settings)
	a.Contacts = usecase.NewContactUseCase(r.ContactRequests, r.Listings, r.Users, r.PaymentReferences, a.Gateway, settings)
	a.Commissions = usecase.NewCommissionUseCase(r.Commissions, r.Users, r.PaymentReferences, a.Gateway, a.Notifications, settings)
	a.Reconciler = usecase.NewReconcilerUseCase(a.Gateway, a.Locker, a.Listings, a.Contacts, a.Commissions)

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case StoreFirestore:
		authClient, firestoreClient, err := firebase.NewClients(ctx, a.Config)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, firestoreClient.Close)

		a.Repos = Repositories{
			Users:             repository.NewFirestoreUserRepository(firestoreClient),
			Listings:          repository.NewFirestoreListingRepository(firestoreClient),
			ContactRequests:   repository.NewFirestoreContactRequestRepository(firestoreClient),
			Commissions:       repository.NewFirestoreCommissionRepository(firestoreClient),
			Notifications:     repository.NewFirestoreNotificationRepository(firestoreClient),
			PaymentReferences: repository.NewFirestorePaymentReferenceRepository(firestoreClient),
		}
		a.Verifier = firebase.NewFirebaseAuthClient(authClient)
		logger.Info("Entity store: firestore (project %s)", a.Config.FirebaseProject)

	case StoreMemory:
		if a.Config.IsProduction() {
			return fmt.Errorf("the memory store is not available in production")
		}
		store := memory.NewStore()
		a.Repos = Repositories{
			Users:             store.Users(),
			Listings:          store.Listings(),
			ContactRequests:   store.ContactRequests(),
			Commissions:       store.Commissions(),
			Notifications:     store.Notifications(),
			PaymentReferences: store.PaymentReferences(),
		}
		if err := seedUsers(ctx, a.Repos.Users, a.Config.DevUsers); err != nil {
			return err
		}
		a.Verifier = firebase.NewDevTokenVerifier()
		logger.Warn("Entity store: memory; data is lost on restart and dev tokens are accepted")

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.Config.StoreDriver)
	}
	return nil
}

func (a *App) initLocker() error {
	if a.Config.RedisAddr == "" {
		a.Locker = lock.NewLocalLocker()
		logger.Info("Reconciler lock: in-process")
		return nil
	}

	client, err := lock.NewRedisClient(a.Config.RedisAddr, a.Config.RedisPassword)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)
	a.Locker = lock.NewRedisLocker(client)
	logger.Info("Reconciler lock: redis at %s", a.Config.RedisAddr)
	return nil
}

func newGateway(cfg *config.Config) (service.PaymentGateway, error) {
	if cfg.MidtransServerKey != "" {
		isProduction := cfg.MidtransEnvironment == "production"
		logger.Info("Payment gateway: midtrans (production=%t)", isProduction)
		return service.NewMidtransPaymentService(cfg.MidtransServerKey, isProduction), nil
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is required in production")
	}
	logger.Warn("Payment gateway: sandbox; no real payments are taken")
	return service.NewSandboxPaymentGateway(""), nil
}

// seedUsers creates the "uid:role" pairs given in DEV_USERS.
func seedUsers(ctx context.Context, users domainrepo.UserRepository, pairs []string) error {
	for _, pair := range pairs {
		uid, role, found := strings.Cut(pair, ":")
		if !found {
			role = entity.RoleClient
		}
		switch role {
		case entity.RoleAdmin, entity.RoleBroker, entity.RoleClient:
		default:
			return fmt.Errorf("DEV_USERS: unknown role %q for %s", role, uid)
		}
		if err := users.Create(ctx, &entity.User{
			ID:        uid,
			Email:     uid + "@dev.local",
			FirstName: uid,
			Role:      role,
			Status:    "active",
			CreatedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", uid, err)
		}
	}
	return nil
}

// Handlers builds the HTTP handlers over the app's use cases.
func (a *App) Handlers() *handler.Handlers {
	return &handler.Handlers{
		Health:       handler.NewHealthHandler(a.Config.StoreDriver),
		Listing:      handler.NewListingHandler(a.Listings, a.Config.StaleListingTTL),
		Contact:      handler.NewContactHandler(a.Contacts),
		Commission:   handler.NewCommissionHandler(a.Commissions),
		Payment:      handler.NewPaymentHandler(a.Reconciler),
		Notification: handler.NewNotificationHandler(a.Notifications),
		WebSocket:    handler.NewWebSocketHandler(a.WSManager, a.Config.AllowedOrigins),
	}
}

func (a *App) AuthMiddleware() *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(a.Verifier, a.Repos.Users)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource: %v", err)
		}
	}
	a.closers = nil
}
