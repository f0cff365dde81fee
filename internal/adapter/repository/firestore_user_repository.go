package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = r.client.Collection("users").NewDoc().ID
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.client.Collection("users").Doc(user.ID).Create(ctx, user)
	return storeError(err, "User", "create user")
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		return nil, storeError(err, "User", "get user")
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, storeError(err, "User", "parse user data")
	}
	if user.ID == "" {
		user.ID = doc.Ref.ID
	}

	return &user, nil
}

func (r *firestoreUserRepository) ListByRole(ctx context.Context, role string) ([]*entity.User, error) {
	iter := r.client.Collection("users").Where("role", "==", role).Documents(ctx)
	defer iter.Stop()

	var users []*entity.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeError(err, "User", "iterate users")
		}

		var user entity.User
		if err := doc.DataTo(&user); err != nil {
			return nil, storeError(err, "User", "parse user data")
		}
		if user.ID == "" {
			user.ID = doc.Ref.ID
		}
		users = append(users, &user)
	}

	return users, nil
}
