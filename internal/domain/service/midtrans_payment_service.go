package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"bims/pkg/errors"
	"bims/pkg/logger"
)

// MidtransPaymentService talks to the Midtrans Snap and Core APIs over HTTP.
type MidtransPaymentService struct {
	serverKey  string
	snapURL    string
	apiURL     string
	httpClient *http.Client
}

func NewMidtransPaymentService(serverKey string, isProduction bool) *MidtransPaymentService {
	snapURL := "https://app.sandbox.midtrans.com/snap/v1"
	apiURL := "https://api.sandbox.midtrans.com/v2"
	if isProduction {
		snapURL = "https://app.midtrans.com/snap/v1"
		apiURL = "https://api.midtrans.com/v2"
	}

	return &MidtransPaymentService{
		serverKey: serverKey,
		snapURL:   snapURL,
		apiURL:    apiURL,
		// Initiation endpoints surface provider slowness to the client quickly.
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoints points the service at other hosts; used against test servers.
func (mps *MidtransPaymentService) WithEndpoints(snapURL, apiURL string) *MidtransPaymentService {
	mps.snapURL = snapURL
	mps.apiURL = apiURL
	return mps
}

type midtransSnapRequest struct {
	TransactionDetails midtransTransactionDetails `json:"transaction_details"`
	CustomerDetails    midtransCustomerDetails    `json:"customer_details"`
	ItemDetails        []midtransItemDetail       `json:"item_details"`
	Callbacks          *midtransCallbacks         `json:"callbacks,omitempty"`
}

type midtransTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type midtransCustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type midtransItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int32  `json:"quantity"`
	Name     string `json:"name"`
}

type midtransCallbacks struct {
	Finish string `json:"finish"`
}

type midtransSnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type midtransStatusResponse struct {
	StatusCode        string `json:"status_code"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

func (mps *MidtransPaymentService) InitializePayment(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	logger.Payment(req.Reference, "initialize", fmt.Sprintf("amount=%.2f", req.Amount), "currency="+req.Currency)

	amount := int64(math.Round(req.Amount))
	itemName := req.ItemName
	if itemName == "" {
		itemName = "BIMS payment"
	}

	snapReq := midtransSnapRequest{
		TransactionDetails: midtransTransactionDetails{
			OrderID:     req.Reference,
			GrossAmount: amount,
		},
		CustomerDetails: midtransCustomerDetails{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		},
		ItemDetails: []midtransItemDetail{
			{ID: req.Reference, Price: amount, Quantity: 1, Name: itemName},
		},
	}
	if req.ReturnURL != "" {
		snapReq.Callbacks = &midtransCallbacks{Finish: req.ReturnURL}
	}

	jsonData, err := json.Marshal(snapReq)
	if err != nil {
		return nil, errors.Gateway("Failed to encode payment request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, mps.snapURL+"/transactions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Gateway("Failed to create payment request", err)
	}
	mps.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.CallbackURL != "" {
		httpReq.Header.Set("X-Override-Notification", req.CallbackURL)
	}

	body, status, err := mps.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		logger.PaymentError(req.Reference, "initialize", fmt.Errorf("status %d: %s", status, string(body)))
		return nil, errors.Gateway("Payment provider rejected the checkout", fmt.Errorf("midtrans status %d", status))
	}

	var snapResp midtransSnapResponse
	if err := json.Unmarshal(body, &snapResp); err != nil {
		return nil, errors.Gateway("Failed to parse payment provider response", err)
	}

	return &Checkout{
		Reference:   req.Reference,
		CheckoutURL: snapResp.RedirectURL,
		Token:       snapResp.Token,
	}, nil
}

func (mps *MidtransPaymentService) VerifyPayment(ctx context.Context, reference string) (*PaymentVerification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/status", mps.apiURL, reference), nil)
	if err != nil {
		return nil, errors.Gateway("Failed to create status request", err)
	}
	mps.setHeaders(httpReq)

	body, status, err := mps.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &PaymentVerification{Reference: reference, Status: PaymentOutcomePending}, nil
	}
	if status != http.StatusOK {
		logger.PaymentError(reference, "verify", fmt.Errorf("status %d: %s", status, string(body)))
		return nil, errors.Gateway("Payment provider status check failed", fmt.Errorf("midtrans status %d", status))
	}

	var statusResp midtransStatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return nil, errors.Gateway("Failed to parse payment status", err)
	}

	// Midtrans answers unknown orders with HTTP 200 and status_code 404 in the body.
	if statusResp.StatusCode == "404" {
		return &PaymentVerification{Reference: reference, Status: PaymentOutcomePending}, nil
	}

	result := &PaymentVerification{
		Reference:   reference,
		Status:      mapMidtransStatus(statusResp.TransactionStatus, statusResp.FraudStatus),
		PaymentType: statusResp.PaymentType,
	}
	logger.Payment(reference, "verify", "provider_status="+statusResp.TransactionStatus, "outcome="+result.Status)
	return result, nil
}

func (mps *MidtransPaymentService) setHeaders(req *http.Request) {
	authHeader := base64.StdEncoding.EncodeToString([]byte(mps.serverKey + ":"))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+authHeader)
}

func (mps *MidtransPaymentService) do(req *http.Request) ([]byte, int, error) {
	resp, err := mps.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Gateway("Payment provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Gateway("Failed to read payment provider response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, 0, errors.Gateway("Payment provider rejected credentials", fmt.Errorf("midtrans status 401"))
	}
	return body, resp.StatusCode, nil
}

func mapMidtransStatus(transactionStatus, fraudStatus string) string {
	if fraudStatus == "deny" {
		return PaymentOutcomeFailure
	}

	switch transactionStatus {
	case "capture", "settlement":
		if fraudStatus == "accept" || fraudStatus == "" {
			return PaymentOutcomeSuccess
		}
		return PaymentOutcomePending
	case "cancel", "deny", "expire", "failure":
		return PaymentOutcomeFailure
	default:
		return PaymentOutcomePending
	}
}
