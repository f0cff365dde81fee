package usecase

import (
	"context"
	"time"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
	"bims/pkg/logger"
)

// Message is the content of a notification before it is addressed.
type Message struct {
	Title         string
	Body          string
	Type          string
	RelatedEntity string
}

// Notifier is the fan-out used by the lifecycle engines. Delivery is best
// effort: it reports how many records were written and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, msg Message) int
	NotifyAdmins(ctx context.Context, msg Message) int
}

// Pusher delivers a payload to a user's live connections, if any.
type Pusher interface {
	PushJSON(userID, kind string, v interface{})
}

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	pusher           Pusher
}

func NewNotificationUseCase(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	pusher Pusher,
) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
	}
}

func (uc *NotificationUseCase) Notify(ctx context.Context, recipients []string, msg Message) int {
	if msg.Type == "" {
		msg.Type = entity.NotificationInfo
	}

	written := 0
	seen := make(map[string]bool, len(recipients))
	for _, recipientID := range recipients {
		if recipientID == "" || seen[recipientID] {
			continue
		}
		seen[recipientID] = true

		notification := &entity.Notification{
			RecipientID:   recipientID,
			Title:         msg.Title,
			Message:       msg.Body,
			Type:          msg.Type,
			RelatedEntity: msg.RelatedEntity,
			CreatedAt:     time.Now(),
		}
		if err := uc.notificationRepo.Create(ctx, notification); err != nil {
			logger.Warn("Failed to notify %s (%s): %v", recipientID, msg.Title, err)
			continue
		}
		written++

		if uc.pusher != nil {
			uc.pusher.PushJSON(recipientID, "notification", notification)
		}
	}
	return written
}

func (uc *NotificationUseCase) NotifyAdmins(ctx context.Context, msg Message) int {
	admins, err := uc.userRepo.ListByRole(ctx, entity.RoleAdmin)
	if err != nil {
		logger.Warn("Failed to resolve admins for %q: %v", msg.Title, err)
		return 0
	}

	ids := make([]string, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.ID)
	}
	return uc.Notify(ctx, ids, msg)
}

type NotificationPage struct {
	Items  []*entity.Notification `json:"items"`
	Total  int64                  `json:"total"`
	Unread int64                  `json:"unread"`
}

func (uc *NotificationUseCase) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) (*NotificationPage, error) {
	items, total, err := uc.notificationRepo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := uc.notificationRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*entity.Notification{}
	}
	return &NotificationPage{Items: items, Total: total, Unread: unread}, nil
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	return uc.notificationRepo.MarkRead(ctx, notificationID, recipientID)
}

func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	return uc.notificationRepo.MarkAllRead(ctx, recipientID)
}
