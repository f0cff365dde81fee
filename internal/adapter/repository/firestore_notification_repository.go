package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/errors"
)

const notificationsCollection = "notifications"

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = r.client.Collection(notificationsCollection).NewDoc().ID
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	_, err := r.client.Collection(notificationsCollection).Doc(notification.ID).Set(ctx, notification)
	return storeError(err, "Notification", "create notification")
}

func (r *firestoreNotificationRepository) recipientQuery(recipientID string, unreadOnly bool) firestore.Query {
	query := r.client.Collection(notificationsCollection).Where("recipientId", "==", recipientID)
	if unreadOnly {
		query = query.Where("isRead", "==", false)
	}
	return query
}

func (r *firestoreNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, int64, error) {
	query := r.recipientQuery(recipientID, unreadOnly).OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, storeError(err, "Notification", "count notifications")
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var notifications []*entity.Notification
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, storeError(err, "Notification", "iterate notifications")
		}
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, 0, errors.Internal("Failed to parse notification data", err)
		}
		notifications = append(notifications, &n)
	}

	return notifications, total, nil
}

func (r *firestoreNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	docRef := r.client.Collection(notificationsCollection).Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var n entity.Notification
		if err := doc.DataTo(&n); err != nil {
			return err
		}
		// another user's notification looks the same as a missing one
		if n.RecipientID != recipientID {
			return errors.NotFound("Notification", nil)
		}
		if n.IsRead {
			return nil
		}
		return tx.Update(docRef, []firestore.Update{{Path: "isRead", Value: true}})
	})
	return storeError(err, "Notification", "mark notification read")
}

func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	docs, err := r.recipientQuery(recipientID, true).Documents(ctx).GetAll()
	if err != nil {
		return 0, storeError(err, "Notification", "list unread notifications")
	}
	if len(docs) == 0 {
		return 0, nil
	}

	writer := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := writer.Update(doc.Ref, []firestore.Update{{Path: "isRead", Value: true}})
		if err != nil {
			writer.End()
			return 0, storeError(err, "Notification", "mark notifications read")
		}
		jobs = append(jobs, job)
	}
	writer.End()

	count := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return count, storeError(err, "Notification", "mark notifications read")
		}
		count++
	}
	return count, nil
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	docs, err := r.recipientQuery(recipientID, true).Documents(ctx).GetAll()
	if err != nil {
		return 0, storeError(err, "Notification", "count unread notifications")
	}
	return int64(len(docs)), nil
}
