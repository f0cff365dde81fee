package entity

import (
	"time"
)

const (
	ContactStatusPending = "pending"
	ContactStatusPaid    = "paid"
)

// ContactRequest is the one-time fee a buyer pays to unlock messaging with a listing owner.
type ContactRequest struct {
	ID            string     `json:"id" firestore:"id"`
	BuyerID       string     `json:"buyer_id" firestore:"buyerId"`
	ListingID     string     `json:"listing_id" firestore:"listingId"`
	RecipientID   string     `json:"recipient_id" firestore:"recipientId"`
	Amount        float64    `json:"amount" firestore:"amount"`
	Status        string     `json:"status" firestore:"status"`
	TransactionID string     `json:"transaction_id" firestore:"transactionId"`
	CreatedAt     time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time  `json:"updated_at" firestore:"updatedAt"`
	PaidAt        *time.Time `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
}
