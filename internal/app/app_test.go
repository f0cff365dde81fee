package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/internal/domain/entity"
	"bims/internal/domain/service"
	"bims/pkg/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:     "development",
		StoreDriver:     StoreMemory,
		PaymentCurrency: "ETB",
		ListingFee:      100,
		ContactFee:      50,
		CommissionRate:  0.01,
		DevUsers:        []string{"admin-1:admin", "broker-1:broker", "client-1"},
	}
}

func TestNewMemoryApp(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig())
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Gateway.(*service.SandboxPaymentGateway)
	assert.True(t, ok, "no gateway key selects the sandbox")

	admins, err := a.Repos.Users.ListByRole(ctx, entity.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin-1", admins[0].ID)

	client, err := a.Repos.Users.GetByID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleClient, client.Role)

	uid, err := a.Verifier.VerifyToken(ctx, "dev:broker-1")
	require.NoError(t, err)
	assert.Equal(t, "broker-1", uid)

	h := a.Handlers()
	assert.NotNil(t, h.Listing)
	assert.NotNil(t, h.Payment)
	assert.NotNil(t, a.AuthMiddleware())
}

func TestNewRejectsUnsafeConfigs(t *testing.T) {
	ctx := context.Background()

	cfg := memoryConfig()
	cfg.Environment = "production"
	_, err := New(ctx, cfg)
	assert.Error(t, err, "memory store in production")

	cfg = memoryConfig()
	cfg.StoreDriver = "postgres"
	_, err = New(ctx, cfg)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.DevUsers = []string{"someone:superuser"}
	_, err = New(ctx, cfg)
	assert.Error(t, err)
}

func TestNewGateway(t *testing.T) {
	_, err := newGateway(&config.Config{Environment: "production"})
	assert.Error(t, err, "sandbox is refused in production")

	gateway, err := newGateway(&config.Config{Environment: "production", MidtransServerKey: "SB-key"})
	require.NoError(t, err)
	_, ok := gateway.(*service.MidtransPaymentService)
	assert.True(t, ok)
}
