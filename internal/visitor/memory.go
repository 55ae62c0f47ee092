package visitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// SnapshotVersion tags persisted snapshots so a future layout change can be
// migrated instead of silently misread.
const SnapshotVersion = 1

type snapshot struct {
	SchemaVersion int     `json:"schema_version"`
	Entries       []Entry `json:"entries"`
}

// MemoryStore keeps entries in a mutex-guarded map with optional JSON
// snapshot persistence. It is the default backend for a single-desk deploy.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Entry
	path string
}

// NewMemoryStore creates an empty store. When path is non-empty the store
// loads an existing snapshot and rewrites it after every mutation.
func NewMemoryStore(path string) (*MemoryStore, error) {
	s := &MemoryStore{byID: make(map[string]Entry), path: path}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot corrupt: %w", err)
	}
	if snap.SchemaVersion != SnapshotVersion {
		return nil, fmt.Errorf("snapshot schema version %d unsupported (want %d)", snap.SchemaVersion, SnapshotVersion)
	}
	for _, e := range snap.Entries {
		s.byID[e.Record.ID] = e
	}
	return s, nil
}

// Save inserts or replaces the entry keyed by its record ID.
func (s *MemoryStore) Save(ctx context.Context, e Entry) error {
	if e.Record.ID == "" {
		return fmt.Errorf("visitor: record id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.byID[e.Record.ID]
	s.byID[e.Record.ID] = e
	if err := s.persistLocked(); err != nil {
		// Keep memory and disk consistent: roll back the map on write failure.
		if existed {
			s.byID[e.Record.ID] = prev
		} else {
			delete(s.byID, e.Record.ID)
		}
		return err
	}
	return nil
}

// Get returns the entry for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List returns entries matching f, newest check-in first. Status filtering
// uses the effective status so overdue visitors are listable without a
// background sweeper.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC()
	out := make([]Entry, 0)
	for _, e := range s.byID {
		if f.Status != "" && e.Record.EffectiveStatus(now) != f.Status {
			continue
		}
		if f.Department != "" && e.Record.Department != f.Department {
			continue
		}
		if !f.From.IsZero() && e.Record.CheckInTime.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.Record.CheckInTime.After(f.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.CheckInTime.After(out[j].Record.CheckInTime)
	})
	return out, nil
}

// CheckOut finalises a present (or overdue) record exactly once.
func (s *MemoryStore) CheckOut(ctx context.Context, id string, at time.Time) (Entry, error) {
	return s.finalize(id, at, StatusCompleted)
}

// EmergencyExit marks a present (or overdue) record as evacuated.
func (s *MemoryStore) EmergencyExit(ctx context.Context, id string, at time.Time) (Entry, error) {
	return s.finalize(id, at, StatusEmergencyExit)
}

// finalize applies a terminal transition with the check and the write under
// one lock, so concurrent finalisations cannot overwrite each other.
func (s *MemoryStore) finalize(id string, at time.Time, status Status) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Record.Status.Terminal() {
		return Entry{}, ErrInvalidState
	}
	if at.Before(e.Record.CheckInTime) {
		return Entry{}, fmt.Errorf("visitor: check-out before check-in: %w", ErrInvalidState)
	}
	prev := e
	t := at
	e.Record.CheckOutTime = &t
	e.Record.Duration = at.Sub(e.Record.CheckInTime)
	e.Record.Status = status
	s.byID[id] = e
	if err := s.persistLocked(); err != nil {
		s.byID[id] = prev
		return Entry{}, err
	}
	return e, nil
}

// BadgeNumberInUse reports whether number belongs to a badge that is still
// effectively active.
func (s *MemoryStore) BadgeNumberInUse(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC()
	for _, e := range s.byID {
		if e.Badge.Number == number && e.Badge.EffectiveStatus(now) == BadgeActive {
			return true, nil
		}
	}
	return false, nil
}

// UpdateBadgeStatus applies revoked/lost transitions by badge number.
func (s *MemoryStore) UpdateBadgeStatus(ctx context.Context, number string, status BadgeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.byID {
		if e.Badge.Number != number {
			continue
		}
		prev := e
		e.Badge.Status = status
		s.byID[id] = e
		if err := s.persistLocked(); err != nil {
			s.byID[id] = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{SchemaVersion: SnapshotVersion, Entries: make([]Entry, 0, len(s.byID))}
	for _, e := range s.byID {
		snap.Entries = append(snap.Entries, e)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
