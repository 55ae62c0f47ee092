package visitor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ErrNumberSpaceExhausted means issuance could not find a free badge number.
// This is a configuration fault (too many live badges for the scheme), not a
// normal error path.
var ErrNumberSpaceExhausted = errors.New("visitor: badge number space exhausted")

// maxIssueAttempts bounds collision regeneration before giving up.
const maxIssueAttempts = 20

// Issuer mints badges with numbers unique among currently active badges.
type Issuer struct {
	store    Store
	validity time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer. A non-positive validity falls back to 24h.
func NewIssuer(store Store, validity time.Duration) *Issuer {
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &Issuer{store: store, validity: validity, now: func() time.Time { return time.Now().UTC() }}
}

// Issue mints a badge for the given visitor, copying the requested access
// zones. Numbers are checked against the store and regenerated on collision.
func (i *Issuer) Issue(ctx context.Context, visitorID string, zones []string) (Badge, error) {
	issued := i.now()
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		number, err := newBadgeNumber(issued)
		if err != nil {
			return Badge{}, err
		}
		inUse, err := i.store.BadgeNumberInUse(ctx, number)
		if err != nil {
			return Badge{}, err
		}
		if inUse {
			continue
		}
		return Badge{
			Number:      number,
			VisitorID:   visitorID,
			IssuedAt:    issued,
			ExpiresAt:   issued.Add(i.validity),
			Status:      BadgeActive,
			AccessZones: append([]string(nil), zones...),
		}, nil
	}
	return Badge{}, ErrNumberSpaceExhausted
}

// newBadgeNumber produces VIS-YYYYMMDD-XXXX with a random 4-digit suffix.
func newBadgeNumber(at time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("VIS-%s-%04d", at.Format("20060102"), n.Int64()), nil
}
