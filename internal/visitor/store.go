package visitor

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the referenced record or badge is unknown.
	ErrNotFound = errors.New("visitor: not found")
	// ErrInvalidState means the operation is illegal in the record's current state.
	ErrInvalidState = errors.New("visitor: invalid state")
)

// Filter narrows List results. Zero values mean "no constraint"; set fields
// combine with AND.
type Filter struct {
	Status     Status
	Department string
	From       time.Time
	To         time.Time
}

// Entry pairs a record with the badge minted for it. The pair is the unit of
// persistence, mirroring how the desk archives its day.
type Entry struct {
	Record Record `json:"record"`
	Badge  Badge  `json:"badge"`
}

// Store persists visitor entries. Save is insert-or-replace by record ID and
// atomic at single-entry granularity: either the whole entry lands or the
// prior state remains.
type Store interface {
	Save(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
	// CheckOut stamps the departure time and finalises the record. Returns
	// ErrNotFound for unknown ids and ErrInvalidState for terminal records.
	CheckOut(ctx context.Context, id string, at time.Time) (Entry, error)
	// EmergencyExit finalises the record as evacuated under the same terminal
	// guard as CheckOut: the check and the write are one atomic step, so a
	// completed visit can never be overwritten.
	EmergencyExit(ctx context.Context, id string, at time.Time) (Entry, error)
	// BadgeNumberInUse reports whether number is held by any non-terminal badge.
	BadgeNumberInUse(ctx context.Context, number string) (bool, error)
	// UpdateBadgeStatus applies an administrative badge transition.
	UpdateBadgeStatus(ctx context.Context, number string, status BadgeStatus) error
}
