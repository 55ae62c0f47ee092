package visitor

import (
	"context"
	"time"
)

// Service coordinates record lifecycle operations on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns one entry with its derived status applied.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	e.Record.Status = e.Record.EffectiveStatus(s.now())
	return e, nil
}

// List returns entries matching f with derived statuses applied.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	entries, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range entries {
		entries[i].Record.Status = entries[i].Record.EffectiveStatus(now)
	}
	return entries, nil
}

// CheckOut finalises a visit at the current time.
func (s *Service) CheckOut(ctx context.Context, id string) (Entry, error) {
	return s.store.CheckOut(ctx, id, s.now())
}

// EmergencyExit marks a present visitor as evacuated. The record becomes
// terminal; the departure time is stamped like a check-out. The terminal
// guard lives in the store so it cannot race a concurrent check-out.
func (s *Service) EmergencyExit(ctx context.Context, id string) (Entry, error) {
	return s.store.EmergencyExit(ctx, id, s.now())
}

// RevokeBadge withdraws a badge by administrative action.
func (s *Service) RevokeBadge(ctx context.Context, number string) error {
	return s.store.UpdateBadgeStatus(ctx, number, BadgeRevoked)
}

// MarkBadgeLost records a badge as lost.
func (s *Service) MarkBadgeLost(ctx context.Context, number string) error {
	return s.store.UpdateBadgeStatus(ctx, number, BadgeLost)
}
