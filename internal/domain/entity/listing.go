package entity

import (
	"time"
)

const (
	ListingTypeProperty = "property"
	ListingTypeVehicle  = "vehicle"
)

// Listing fee axis.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusSuccess = "success" // older records; same meaning as paid
	PaymentStatusFailed  = "failed"
)

// Derived lifecycle view.
const (
	ListingStatusPending  = "pending"
	ListingStatusActive   = "active"
	ListingStatusSold     = "sold"
	ListingStatusInactive = "inactive"
)

// Derived review view.
const (
	VerificationPending  = "pending"
	VerificationAssigned = "assigned"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

type Listing struct {
	ID          string                 `json:"id" firestore:"id"`
	Title       string                 `json:"title" firestore:"title"`
	Description string                 `json:"description" firestore:"description"`
	Price       float64                `json:"price" firestore:"price"`
	Location    string                 `json:"location" firestore:"location"`
	Type        string                 `json:"type" firestore:"type"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	Images      []string               `json:"images" firestore:"images"`

	OwnerID           string `json:"owner_id" firestore:"ownerId"`
	AssignedBroker    string `json:"assigned_broker,omitempty" firestore:"assignedBroker,omitempty"`
	VerifiedBy        string `json:"verified_by,omitempty" firestore:"verifiedBy,omitempty"`
	VerificationNotes string `json:"verification_notes,omitempty" firestore:"verificationNotes,omitempty"`
	BuyerID           string `json:"buyer_id,omitempty" firestore:"buyerId,omitempty"`

	// Stage is the single source of truth for the lifecycle. Status and
	// VerificationStatus are derived from it on every transition and are
	// persisted only so the store can filter on them.
	Stage    ListingStage `json:"stage" firestore:"stage"`
	Decision string       `json:"-" firestore:"decision,omitempty"`

	PaymentStatus      string `json:"payment_status" firestore:"paymentStatus"`
	Status             string `json:"status" firestore:"status"`
	VerificationStatus string `json:"verification_status" firestore:"verificationStatus"`
	TransactionID      string `json:"transaction_id,omitempty" firestore:"transactionId,omitempty"`

	CreatedAt  time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time  `json:"updated_at" firestore:"updatedAt"`
	PaidAt     *time.Time `json:"paid_at,omitempty" firestore:"paidAt,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" firestore:"verifiedAt,omitempty"`
	SoldAt     *time.Time `json:"sold_at,omitempty" firestore:"soldAt,omitempty"`
}

func IsValidListingType(t string) bool {
	return t == ListingTypeProperty || t == ListingTypeVehicle
}

// IsPubliclyVisible reports whether anonymous and unprivileged viewers may see the listing.
func (l *Listing) IsPubliclyVisible() bool {
	return l.VerificationStatus == VerificationApproved && l.Status == ListingStatusActive
}

func (l *Listing) FeePaid() bool {
	return l.PaymentStatus == PaymentStatusPaid || l.PaymentStatus == PaymentStatusSuccess
}
