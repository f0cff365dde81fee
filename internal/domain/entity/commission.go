package entity

import (
	"math"
	"time"
)

const (
	CommissionStatusPending    = "pending"
	CommissionStatusInProgress = "in_progress"
	CommissionStatusPaid       = "paid"
	CommissionStatusFailed     = "failed"
)

// DefaultCommissionRate is the share of the sale price owed by the seller.
const DefaultCommissionRate = 0.01

// Commission is owed by the seller once a listing is sold. Amount is fixed at
// sale time and never recomputed.
type Commission struct {
	ID            string     `json:"id" firestore:"id"`
	ListingID     string     `json:"listing_id" firestore:"listingId"`
	BrokerID      string     `json:"broker_id" firestore:"brokerId"`
	SellerID      string     `json:"seller_id" firestore:"sellerId"`
	BuyerID       string     `json:"buyer_id" firestore:"buyerId"`
	Amount        float64    `json:"amount" firestore:"amount"`
	Rate          float64    `json:"rate" firestore:"rate"`
	Status        string     `json:"status" firestore:"status"`
	TransactionID string     `json:"transaction_id,omitempty" firestore:"transactionId,omitempty"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time  `json:"updated_at" firestore:"updatedAt"`
	PaidAt        *time.Time `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
}

// CommissionAmount rounds price*rate to cents.
func CommissionAmount(price, rate float64) float64 {
	return math.Round(price*rate*100) / 100
}

// CanInitiatePayment reports whether a new checkout may be started for the commission.
// A failed payment re-enters the pending state on retry.
func (c *Commission) CanInitiatePayment() bool {
	return c.Status == CommissionStatusPending || c.Status == CommissionStatusFailed
}

func SumCommissions(commissions []*Commission) float64 {
	var total float64
	for _, c := range commissions {
		total += c.Amount
	}
	return math.Round(total*100) / 100
}
