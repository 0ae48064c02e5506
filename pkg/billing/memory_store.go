package billing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewMemoryStore returns an in-memory Repository.
// Records are copied on the way in and out so callers never share state with the store.
func NewMemoryStore(subs ...*Subscription) Repository {
	s := &memoryStore{subs: make(map[uuid.UUID]*Subscription, len(subs))}
	for _, sub := range subs {
		s.subs[sub.ID] = sub.Clone()
	}
	return s
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

func (s *memoryStore) FindByUserProduct(_ context.Context, userID uuid.UUID, productID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.UserID == userID && sub.ProductID == productID {
			return sub.Clone(), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *memoryStore) FindByExternalID(_ context.Context, externalID string) (*Subscription, error) {
	if externalID == "" {
		return nil, ErrSubscriptionNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ExternalSubscriptionID == externalID {
			return sub.Clone(), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *memoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; ok {
		return ErrSubscriptionAlreadyExists
	}
	for _, existing := range s.subs {
		if existing.UserID == sub.UserID && existing.ProductID == sub.ProductID {
			return ErrSubscriptionAlreadyExists
		}
	}
	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *memoryStore) Update(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subs[sub.ID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	updated := sub.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.subs[sub.ID] = updated
	return nil
}

func (s *memoryStore) IncrementUsage(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return 0, ErrSubscriptionNotFound
	}
	sub.UsageCount += delta
	return sub.UsageCount, nil
}

func (s *memoryStore) ConsumeUsage(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return 0, ErrSubscriptionNotFound
	}
	if sub.UsageLimit != Unlimited && sub.UsageCount+delta > sub.UsageLimit {
		return sub.UsageCount, &UsageLimitError{Used: sub.UsageCount, Limit: sub.UsageLimit}
	}
	sub.UsageCount += delta
	return sub.UsageCount, nil
}

func (s *memoryStore) ListExpiredPaid(_ context.Context, endedBefore time.Time, limit int) ([]*Subscription, error) {
	return s.list(limit, func(sub *Subscription) bool {
		return sub.IsPaid() && sub.IsLinked() && sub.CurrentPeriodEnd.Before(endedBefore)
	}, func(a, b *Subscription) int {
		return a.CurrentPeriodEnd.Compare(b.CurrentPeriodEnd)
	})
}

func (s *memoryStore) ListHalted(_ context.Context, updatedBefore time.Time, limit int) ([]*Subscription, error) {
	return s.list(limit, func(sub *Subscription) bool {
		return sub.Status == StatusHalted && sub.UpdatedAt.Before(updatedBefore)
	}, func(a, b *Subscription) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
}

func (s *memoryStore) list(limit int, match func(*Subscription) bool, cmp func(a, b *Subscription) int) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Subscription, 0)
	for _, sub := range s.subs {
		if match(sub) {
			out = append(out, sub.Clone())
		}
	}
	slices.SortFunc(out, cmp)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
