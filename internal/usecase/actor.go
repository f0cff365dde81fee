package usecase

import (
	"bims/internal/domain/entity"
)

// Actor is the caller as established by the auth middleware. An empty UserID
// is an anonymous caller.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

func (a Actor) IsBroker() bool {
	return a.Role == entity.RoleBroker
}

func (a Actor) IsAnonymous() bool {
	return a.UserID == ""
}

// PaymentSettings are the fee amounts and gateway URLs shared by the payment-initiating use cases.
type PaymentSettings struct {
	Currency       string
	ListingFee     float64
	ContactFee     float64
	CommissionRate float64
	CallbackURL    string
	ReturnURL      string
}

func (s PaymentSettings) commissionRate() float64 {
	if s.CommissionRate <= 0 {
		return entity.DefaultCommissionRate
	}
	return s.CommissionRate
}
