package entity

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleBroker = "broker"
	RoleClient = "client"
)

type User struct {
	ID        string `json:"id" firestore:"id"`
	Email     string `json:"email" firestore:"email"`
	FirstName string `json:"first_name" firestore:"firstName"`
	LastName  string `json:"last_name" firestore:"lastName"`
	Phone     string `json:"phone,omitempty" firestore:"phone,omitempty"`
	Role      string `json:"role" firestore:"role"`
	Status    string `json:"status" firestore:"status"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsBroker() bool {
	return u != nil && u.Role == RoleBroker
}
