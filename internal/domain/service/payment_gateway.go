package service

import (
	"context"
	"fmt"
	"sync"

	"bims/pkg/errors"
	"bims/pkg/logger"
)

const (
	PaymentOutcomeSuccess = "success"
	PaymentOutcomeFailure = "failure"
	PaymentOutcomePending = "pending"
)

// PaymentRequest describes one checkout. Amount is in major currency units.
type PaymentRequest struct {
	Reference   string
	Amount      float64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	ItemName    string
	CallbackURL string
	ReturnURL   string
}

type Checkout struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Token       string `json:"token,omitempty"`
}

type PaymentVerification struct {
	Reference   string
	Status      string
	PaymentType string
}

func (v *PaymentVerification) Succeeded() bool {
	return v != nil && v.Status == PaymentOutcomeSuccess
}

// PaymentGateway is the external processor. Errors returned from either call
// are GatewayErrors and may be retried by the initiator.
type PaymentGateway interface {
	InitializePayment(ctx context.Context, req PaymentRequest) (*Checkout, error)
	VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error)
}

// SandboxPaymentGateway keeps checkouts in memory and lets the caller decide
// how each one settles. It backs local development and tests.
type SandboxPaymentGateway struct {
	baseURL string

	mu              sync.Mutex
	requests        map[string]PaymentRequest
	outcomes        map[string]string
	initializeErr   error
	verifyErr       error
	initializeCalls int
	verifyCalls     int
}

func NewSandboxPaymentGateway(baseURL string) *SandboxPaymentGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080/sandbox"
	}
	return &SandboxPaymentGateway{
		baseURL:  baseURL,
		requests: make(map[string]PaymentRequest),
		outcomes: make(map[string]string),
	}
}

func (g *SandboxPaymentGateway) InitializePayment(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initializeCalls++
	if g.initializeErr != nil {
		return nil, errors.Gateway("Payment provider rejected the checkout", g.initializeErr)
	}
	if req.Amount <= 0 {
		return nil, errors.Gateway("Payment amount must be positive", nil)
	}

	g.requests[req.Reference] = req
	logger.Debug("Sandbox checkout created: ref=%s amount=%.2f %s", req.Reference, req.Amount, req.Currency)

	return &Checkout{
		Reference:   req.Reference,
		CheckoutURL: fmt.Sprintf("%s/checkout/%s", g.baseURL, req.Reference),
		Token:       "sandbox-" + req.Reference,
	}, nil
}

func (g *SandboxPaymentGateway) VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, errors.Gateway("Payment provider unavailable", g.verifyErr)
	}

	status, ok := g.outcomes[reference]
	if !ok {
		status = PaymentOutcomePending
	}
	return &PaymentVerification{Reference: reference, Status: status, PaymentType: "sandbox"}, nil
}

// Settle fixes the outcome VerifyPayment reports for reference.
func (g *SandboxPaymentGateway) Settle(reference, outcome string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcomes[reference] = outcome
}

func (g *SandboxPaymentGateway) SetInitializeError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initializeErr = err
}

func (g *SandboxPaymentGateway) SetVerifyError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyErr = err
}

// Request returns the checkout request recorded for reference.
func (g *SandboxPaymentGateway) Request(reference string) (PaymentRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.requests[reference]
	return req, ok
}

func (g *SandboxPaymentGateway) InitializeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initializeCalls
}

func (g *SandboxPaymentGateway) VerifyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}
