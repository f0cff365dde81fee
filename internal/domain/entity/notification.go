package entity

import (
	"time"
)

const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

type Notification struct {
	ID            string    `json:"id" firestore:"id"`
	RecipientID   string    `json:"recipient_id" firestore:"recipientId"`
	Title         string    `json:"title" firestore:"title"`
	Message       string    `json:"message" firestore:"message"`
	Type          string    `json:"type" firestore:"type"`
	IsRead        bool      `json:"is_read" firestore:"isRead"`
	RelatedEntity string    `json:"related_entity,omitempty" firestore:"relatedEntity,omitempty"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
}
