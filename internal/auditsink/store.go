// Package auditsink holds the append-only event store behind the audit
// service. Events are immutable once accepted; there is no delete.
package auditsink

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reception/internal/audit"
)

// DefaultSearchLimit applies when a search request does not set one.
const DefaultSearchLimit = 100

// Store keeps accepted events in memory. Appends are serialized; readers
// never observe a partially appended batch.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append validates and stores a batch. Invalid events are counted as failed
// without aborting the rest; the whole accepted portion becomes visible to
// readers atomically.
func (s *Store) Append(events []audit.Event) audit.BatchResult {
	accepted := make([]audit.Event, 0, len(events))
	result := audit.BatchResult{Processed: len(events)}
	for _, evt := range events {
		if err := validate(&evt); err != nil {
			result.Failed++
			continue
		}
		accepted = append(accepted, evt)
		result.Successful++
	}

	s.mu.Lock()
	s.events = append(s.events, accepted...)
	s.mu.Unlock()
	return result
}

// Stats aggregates stored events by action, status and risk level.
type Stats struct {
	TotalEvents int            `json:"totalEvents"`
	ByAction    map[string]int `json:"byAction"`
	ByStatus    map[string]int `json:"byStatus"`
	ByRiskLevel map[string]int `json:"byRiskLevel"`
}

// Stats returns aggregate counts over all stored events.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalEvents: len(s.events),
		ByAction:    make(map[string]int),
		ByStatus:    make(map[string]int),
		ByRiskLevel: make(map[string]int),
	}
	for _, evt := range s.events {
		st.ByAction[evt.Action]++
		st.ByStatus[evt.Status]++
		st.ByRiskLevel[evt.RiskLevel]++
	}
	return st
}

// Query filters a search. Empty fields match everything.
type Query struct {
	Action    string
	UserID    string
	Status    string
	RiskLevel string
	Since     time.Time
	Limit     int
}

// Search returns matching events newest-first, capped at the query limit.
func (s *Store) Search(q Query) []audit.Event {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0)
	for _, evt := range s.events {
		if q.Action != "" && evt.Action != q.Action {
			continue
		}
		if q.UserID != "" && evt.UserID != q.UserID {
			continue
		}
		if q.Status != "" && evt.Status != q.Status {
			continue
		}
		if q.RiskLevel != "" && evt.RiskLevel != q.RiskLevel {
			continue
		}
		if !q.Since.IsZero() && evt.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, evt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

type validationError struct {
	field string
}

func (e *validationError) Error() string { return "auditsink: invalid event field " + e.field }

// validate checks required fields and enum values, filling a missing id.
func validate(evt *audit.Event) error {
	if strings.TrimSpace(evt.ID) == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		return &validationError{field: "timestamp"}
	}
	if strings.TrimSpace(evt.UserID) == "" {
		return &validationError{field: "userId"}
	}
	if strings.TrimSpace(evt.Action) == "" {
		return &validationError{field: "action"}
	}
	switch evt.Status {
	case audit.StatusSuccess, audit.StatusFailure:
	default:
		return &validationError{field: "status"}
	}
	switch evt.RiskLevel {
	case audit.RiskLow, audit.RiskMedium, audit.RiskHigh:
	default:
		return &validationError{field: "riskLevel"}
	}
	return nil
}
