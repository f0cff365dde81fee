package entity

import (
	"time"
)

// PaymentReference records which entity a gateway reference was issued for.
// References are unique across the store.
type PaymentReference struct {
	Reference string    `json:"reference" firestore:"reference"`
	Kind      string    `json:"kind" firestore:"kind"`
	EntityID  string    `json:"entity_id" firestore:"entityId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
