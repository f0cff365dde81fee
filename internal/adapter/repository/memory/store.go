// Package memory is an in-process entity store. Every repository shares one
// mutex, so each method is atomic with respect to all others.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bims/internal/domain/entity"
	"bims/internal/domain/repository"
)

type Store struct {
	mu sync.Mutex

	users         map[string]*entity.User
	listings      map[string]*entity.Listing
	contacts      map[string]*entity.ContactRequest
	commissions   map[string]*entity.Commission
	notifications map[string]*entity.Notification
	references    map[string]*entity.PaymentReference

	// insertion order, used as a stable tiebreak when timestamps collide
	seq   int64
	order map[string]int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*entity.User),
		listings:      make(map[string]*entity.Listing),
		contacts:      make(map[string]*entity.ContactRequest),
		commissions:   make(map[string]*entity.Commission),
		notifications: make(map[string]*entity.Notification),
		references:    make(map[string]*entity.PaymentReference),
		order:         make(map[string]int64),
		now:           time.Now,
	}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{s}
}

func (s *Store) Listings() repository.ListingRepository {
	return &listingRepository{s}
}

func (s *Store) ContactRequests() repository.ContactRequestRepository {
	return &contactRequestRepository{s}
}

func (s *Store) Commissions() repository.CommissionRepository {
	return &commissionRepository{s}
}

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s}
}

func (s *Store) PaymentReferences() repository.PaymentReferenceRepository {
	return &paymentReferenceRepository{s}
}

// track must be called with s.mu held.
func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

func (s *Store) newID() string {
	return uuid.NewString()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// sortNewestFirst orders by creation time, newest first, using insertion order on ties.
func sortNewestFirst[T any](s *Store, items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return s.order[id(items[i])] > s.order[id(items[j])]
	})
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
