package memory

import (
	"context"
	"time"

	"bims/internal/domain/entity"
	"bims/pkg/errors"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(_ context.Context, notification *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if notification.ID == "" {
		notification.ID = r.s.newID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = r.s.now()
	}
	clone := *notification
	r.s.notifications[notification.ID] = &clone
	r.s.track(notification.ID)
	return nil
}

func (r *notificationRepository) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*entity.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	sortNewestFirst(r.s, matched, func(n *entity.Notification) time.Time { return n.CreatedAt }, func(n *entity.Notification) string { return n.ID })

	return page(matched, limit, offset), int64(len(matched)), nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id, recipientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return errors.NotFound("Notification", nil)
	}
	n.IsRead = true
	return nil
}

func (r *notificationRepository) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) CountUnread(_ context.Context, recipientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var count int64
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
