package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/internal/adapter/api"
	"bims/internal/adapter/api/middleware"
	"bims/internal/adapter/repository/memory"
	"bims/internal/domain/entity"
	"bims/internal/domain/service"
	"bims/internal/infrastructure/lock"
	"bims/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	e        *echo.Echo
	store    *memory.Store
	gateway  *service.SandboxPaymentGateway
	listings *usecase.ListingUseCase
	listing  *ListingHandler
	payment  *PaymentHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	for _, u := range []*entity.User{
		{ID: "admin-1", Role: entity.RoleAdmin},
		{ID: "seller-1", Role: entity.RoleClient},
	} {
		require.NoError(t, store.Users().Create(context.Background(), u))
	}

	gateway := service.NewSandboxPaymentGateway("http://pay.test")
	settings := usecase.PaymentSettings{Currency: "ETB", ListingFee: 100, ContactFee: 50, CommissionRate: 0.01}
	notifier := usecase.NewNotificationUseCase(store.Notifications(), store.Users(), nil)
	listings := usecase.NewListingUseCase(store.Listings(), store.Users(), store.Commissions(), store.PaymentReferences(), gateway, notifier, settings)
	contacts := usecase.NewContactUseCase(store.ContactRequests(), store.Listings(), store.Users(), store.PaymentReferences(), gateway, settings)
	commissions := usecase.NewCommissionUseCase(store.Commissions(), store.Users(), store.PaymentReferences(), gateway, notifier, settings)
	reconciler := usecase.NewReconcilerUseCase(gateway, lock.NewLocalLocker(), listings, contacts, commissions)

	e := echo.New()
	e.Validator = api.NewValidator()

	return &testServer{
		e:        e,
		store:    store,
		gateway:  gateway,
		listings: listings,
		listing:  NewListingHandler(listings, 72*time.Hour),
		payment:  NewPaymentHandler(reconciler),
	}
}

// do runs h for a request made as uid; an empty uid is anonymous.
func (s *testServer) do(h echo.HandlerFunc, method, target, body, uid, role string, params ...string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	if uid != "" {
		c.Set(middleware.ContextUserID, uid)
		c.Set(middleware.ContextRole, role)
	}
	if len(params) > 0 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1:]...)
	}

	_ = h(c)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler("memory")
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, h.CheckHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestCreateListingHandler(t *testing.T) {
	s := newTestServer(t)
	valid := `{"title":"Villa","description":"Garden","price":500000,"location":"Bole","type":"property"}`

	rec, _ := s.do(s.listing.CreateListing, http.MethodPost, "/v1/listings", valid, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(s.listing.CreateListing, http.MethodPost, "/v1/listings",
		`{"description":"Garden","price":500000,"location":"Bole","type":"property"}`, "seller-1", entity.RoleClient)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "title is required", env.Error.Message)

	rec, env = s.do(s.listing.CreateListing, http.MethodPost, "/v1/listings", valid, "seller-1", entity.RoleClient)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	var checkout usecase.ListingCheckout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.NotEmpty(t, checkout.Reference)
	assert.Contains(t, checkout.CheckoutURL, "http://pay.test/checkout/")
}

func TestListListingsHidesUnapprovedFromAnonymous(t *testing.T) {
	s := newTestServer(t)
	_, err := s.listings.CreateListing(context.Background(), "seller-1", usecase.CreateListingInput{
		Title: "Car", Description: "Low mileage", Price: 900000, Location: "Adama", Type: entity.ListingTypeVehicle,
	})
	require.NoError(t, err)

	type page struct {
		Items []entity.Listing `json:"items"`
		Total int64            `json:"total"`
	}
	list := func(uid, role string) page {
		rec, env := s.do(s.listing.ListListings, http.MethodGet, "/v1/listings?verification_status=pending", "", uid, role)
		require.Equal(t, http.StatusOK, rec.Code)
		var p page
		require.NoError(t, json.Unmarshal(env.Data, &p))
		return p
	}

	assert.Zero(t, list("", "").Total, "anonymous filter is overridden")
	assert.Equal(t, int64(1), list("admin-1", entity.RoleAdmin).Total)
}

func TestWebhookHandler(t *testing.T) {
	s := newTestServer(t)
	checkout, err := s.listings.CreateListing(context.Background(), "seller-1", usecase.CreateListingInput{
		Title: "Flat", Description: "Top floor", Price: 300000, Location: "Piassa", Type: entity.ListingTypeProperty,
	})
	require.NoError(t, err)

	rec, env := s.do(s.payment.Webhook, http.MethodPost, "/v1/payments/webhook", `{}`, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = s.do(s.payment.Webhook, http.MethodPost, "/v1/payments/webhook", `{"reference":"ORDER-42"}`, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	unknown := service.NewReference(service.KindCommission)
	rec, _ = s.do(s.payment.Webhook, http.MethodPost, "/v1/payments/webhook", `{"reference":"`+unknown+`"}`, "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "well formed references are always acknowledged")

	s.gateway.Settle(checkout.Reference, service.PaymentOutcomeSuccess)
	body := `{"order_id":"` + checkout.Reference + `","transaction_status":"settlement"}`
	rec, _ = s.do(s.payment.Webhook, http.MethodPost, "/v1/payments/midtrans/notification", body, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())

	listing, err := s.store.Listings().GetByID(context.Background(), checkout.Listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, listing.PaymentStatus)
}

func TestManualVerifyHandler(t *testing.T) {
	s := newTestServer(t)
	checkout, err := s.listings.CreateListing(context.Background(), "seller-1", usecase.CreateListingInput{
		Title: "Flat", Description: "Top floor", Price: 300000, Location: "Piassa", Type: entity.ListingTypeProperty,
	})
	require.NoError(t, err)
	s.gateway.Settle(checkout.Reference, service.PaymentOutcomeFailure)

	rec, env := s.do(s.payment.ManualVerify, http.MethodPost, "/", "", "admin-1", entity.RoleAdmin, "reference", checkout.Reference)
	require.Equal(t, http.StatusOK, rec.Code)

	var result usecase.ReconcileResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, service.PaymentOutcomeFailure, result.Outcome)
	assert.True(t, result.Applied)
}

func TestSweepHandlerRejectsBadDuration(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(s.listing.SweepStaleListings, http.MethodPost, "/", `{"older_than":"soon"}`, "admin-1", entity.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "older_than")

	rec, _ = s.do(s.listing.SweepStaleListings, http.MethodPost, "/", `{"older_than":"1h"}`, "admin-1", entity.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}
