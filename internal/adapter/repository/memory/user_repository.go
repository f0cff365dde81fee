package memory

import (
	"context"
	"time"

	"bims/internal/domain/entity"
	"bims/pkg/errors"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == "" {
		user.ID = r.s.newID()
	}
	if _, exists := r.s.users[user.ID]; exists {
		return errors.Conflict("User already exists")
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	clone := *user
	r.s.users[user.ID] = &clone
	r.s.track(user.ID)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	clone := *user
	return &clone, nil
}

func (r *userRepository) ListByRole(_ context.Context, role string) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var users []*entity.User
	for _, user := range r.s.users {
		if user.Role == role {
			clone := *user
			users = append(users, &clone)
		}
	}
	sortNewestFirst(r.s, users, func(u *entity.User) time.Time { return u.CreatedAt }, func(u *entity.User) string { return u.ID })
	return users, nil
}
