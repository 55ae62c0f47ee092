package visitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newEntry(id string, checkIn time.Time) Entry {
	return Entry{
		Record: Record{
			ID:               id,
			BadgeNumber:      "VIS-20260828-" + id,
			FirstName:        "Jean",
			LastName:         "NGUEMA",
			DocumentType:     DocCNI,
			DocumentNumber:   "12345678",
			Purpose:          "Déclaration fiscale annuelle",
			EmployeeToVisit:  "Séraphin NDONG NTOUTOUME",
			Department:       "Recouvrement",
			ExpectedDuration: time.Hour,
			Urgency:          UrgencyNormal,
			AccessMode:       AccessBadge,
			SecurityLevel:    SecurityStandard,
			CheckInTime:      checkIn,
			Status:           StatusPresent,
		},
		Badge: Badge{
			Number:    "VIS-20260828-" + id,
			VisitorID: id,
			IssuedAt:  checkIn,
			ExpiresAt: checkIn.Add(24 * time.Hour),
			Status:    BadgeActive,
		},
	}
}

func TestMemoryStore_CheckOutOnce(t *testing.T) {
	s, _ := NewMemoryStore("")
	ctx := context.Background()
	checkIn := time.Now().UTC().Add(-30 * time.Minute)
	if err := s.Save(ctx, newEntry("v1", checkIn)); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.CheckOut(ctx, "v1", time.Now().UTC())
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if out.Record.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", out.Record.Status)
	}
	if out.Record.CheckOutTime == nil || out.Record.CheckOutTime.Before(checkIn) {
		t.Errorf("check-out time not stamped correctly: %v", out.Record.CheckOutTime)
	}
	if out.Record.Duration < 29*time.Minute {
		t.Errorf("duration = %s", out.Record.Duration)
	}

	if _, err := s.CheckOut(ctx, "v1", time.Now().UTC()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second checkout: err = %v, want ErrInvalidState", err)
	}
	if _, err := s.CheckOut(ctx, "missing", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CheckOutBeforeCheckIn(t *testing.T) {
	s, _ := NewMemoryStore("")
	ctx := context.Background()
	checkIn := time.Now().UTC()
	if err := s.Save(ctx, newEntry("v1", checkIn)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.CheckOut(ctx, "v1", checkIn.Add(-time.Minute)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestMemoryStore_CheckOutEmergencyExitTerminal(t *testing.T) {
	s, _ := NewMemoryStore("")
	ctx := context.Background()
	e := newEntry("v1", time.Now().UTC().Add(-time.Hour))
	e.Record.Status = StatusEmergencyExit
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.CheckOut(ctx, "v1", time.Now().UTC()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestRecord_OverdueDerivation(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name     string
		status   Status
		checkIn  time.Time
		expected time.Duration
		want     Status
	}{
		{"present within window", StatusPresent, now.Add(-30 * time.Minute), time.Hour, StatusPresent},
		{"present past window", StatusPresent, now.Add(-2 * time.Hour), time.Hour, StatusOverdue},
		{"present exactly at window", StatusPresent, now.Add(-time.Hour), time.Hour, StatusPresent},
		{"completed past window", StatusCompleted, now.Add(-2 * time.Hour), time.Hour, StatusCompleted},
		{"emergency exit past window", StatusEmergencyExit, now.Add(-2 * time.Hour), time.Hour, StatusEmergencyExit},
		{"no expected duration", StatusPresent, now.Add(-48 * time.Hour), 0, StatusPresent},
	}
	for _, tc := range cases {
		r := Record{Status: tc.status, CheckInTime: tc.checkIn, ExpectedDuration: tc.expected}
		if got := r.EffectiveStatus(now); got != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	s, _ := NewMemoryStore("")
	ctx := context.Background()
	now := time.Now().UTC()

	e1 := newEntry("v1", now.Add(-10*time.Minute))
	e2 := newEntry("v2", now.Add(-3*time.Hour)) // overdue: expected 1h
	e3 := newEntry("v3", now.Add(-20*time.Minute))
	e3.Record.Department = "Contrôle Fiscal"
	for _, e := range []Entry{e1, e2, e3} {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Record.ID != "v1" || all[2].Record.ID != "v2" {
		t.Errorf("not ordered newest-first: %s ... %s", all[0].Record.ID, all[2].Record.ID)
	}

	overdue, _ := s.List(ctx, Filter{Status: StatusOverdue})
	if len(overdue) != 1 || overdue[0].Record.ID != "v2" {
		t.Errorf("overdue filter: %+v", overdue)
	}

	dept, _ := s.List(ctx, Filter{Department: "Contrôle Fiscal"})
	if len(dept) != 1 || dept[0].Record.ID != "v3" {
		t.Errorf("department filter: %+v", dept)
	}

	ranged, _ := s.List(ctx, Filter{From: now.Add(-30 * time.Minute), Status: StatusPresent})
	if len(ranged) != 2 {
		t.Errorf("combined filter: got %d entries", len(ranged))
	}
}

func TestIssuer_DistinctNumbers(t *testing.T) {
	s, _ := NewMemoryStore("")
	issuer := NewIssuer(s, 24*time.Hour)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		badge, err := issuer.Issue(ctx, "v", nil)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if seen[badge.Number] {
			t.Fatalf("duplicate badge number %s", badge.Number)
		}
		seen[badge.Number] = true

		// Register the badge so subsequent issuance collides against it.
		e := newEntry(badge.Number, badge.IssuedAt)
		e.Badge = badge
		e.Record.BadgeNumber = badge.Number
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
}

func TestIssuer_ValidityWindow(t *testing.T) {
	s, _ := NewMemoryStore("")
	issuer := NewIssuer(s, 0) // falls back to 24h
	badge, err := issuer.Issue(context.Background(), "v1", []string{"accueil"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got := badge.ExpiresAt.Sub(badge.IssuedAt); got != 24*time.Hour {
		t.Errorf("validity = %s, want 24h", got)
	}
	if badge.Status != BadgeActive {
		t.Errorf("status = %q", badge.Status)
	}
}

func TestBadge_EffectiveStatus(t *testing.T) {
	now := time.Now().UTC()
	b := Badge{IssuedAt: now.Add(-25 * time.Hour), ExpiresAt: now.Add(-time.Hour), Status: BadgeActive}
	if got := b.EffectiveStatus(now); got != BadgeExpired {
		t.Errorf("past expiry: %q, want expired", got)
	}
	b.Status = BadgeRevoked
	if got := b.EffectiveStatus(now); got != BadgeRevoked {
		t.Errorf("revoked past expiry: %q, want revoked", got)
	}
	b.Status = BadgeLost
	if got := b.EffectiveStatus(now); got != BadgeLost {
		t.Errorf("lost past expiry: %q, want lost", got)
	}
}

func TestMemoryStore_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visitors.json")
	ctx := context.Background()

	s1, err := NewMemoryStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s1.Save(ctx, newEntry("v1", time.Now().UTC())); err != nil {
		t.Fatalf("save: %v", err)
	}

	s2, err := NewMemoryStore(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	e, err := s2.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if e.Record.LastName != "NGUEMA" {
		t.Errorf("reloaded record = %+v", e.Record)
	}
}

func TestMemoryStore_SnapshotVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visitors.json")
	writeFile(t, path, `{"schema_version": 99, "entries": []}`)
	if _, err := NewMemoryStore(path); err == nil {
		t.Fatal("unknown schema version accepted")
	}
}

func TestService_EmergencyExit(t *testing.T) {
	s, _ := NewMemoryStore("")
	svc := NewService(s)
	ctx := context.Background()
	if err := s.Save(ctx, newEntry("v1", time.Now().UTC().Add(-time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	e, err := svc.EmergencyExit(ctx, "v1")
	if err != nil {
		t.Fatalf("emergency exit: %v", err)
	}
	if e.Record.Status != StatusEmergencyExit {
		t.Errorf("status = %q", e.Record.Status)
	}
	if e.Record.CheckOutTime == nil {
		t.Error("departure time not stamped")
	}

	if _, err := svc.EmergencyExit(ctx, "v1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("repeat emergency exit: err = %v, want ErrInvalidState", err)
	}
	if _, err := svc.CheckOut(ctx, "v1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("checkout after emergency exit: err = %v, want ErrInvalidState", err)
	}
}

func TestMemoryStore_ConcurrentFinalization(t *testing.T) {
	// A check-out and an emergency exit racing on the same record must
	// resolve to exactly one terminal transition; the loser sees
	// ErrInvalidState and the stored status stays the winner's.
	for i := 0; i < 50; i++ {
		s, _ := NewMemoryStore("")
		ctx := context.Background()
		if err := s.Save(ctx, newEntry("v1", time.Now().UTC().Add(-time.Hour))); err != nil {
			t.Fatalf("save: %v", err)
		}

		at := time.Now().UTC()
		errs := make([]error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = s.CheckOut(ctx, "v1", at)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = s.EmergencyExit(ctx, "v1", at)
		}()
		wg.Wait()

		var won Status
		switch {
		case errs[0] == nil && errors.Is(errs[1], ErrInvalidState):
			won = StatusCompleted
		case errs[1] == nil && errors.Is(errs[0], ErrInvalidState):
			won = StatusEmergencyExit
		default:
			t.Fatalf("want exactly one winner, got errs = %v", errs)
		}
		got, err := s.Get(ctx, "v1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Record.Status != won {
			t.Fatalf("stored status = %q, want %q", got.Record.Status, won)
		}
	}
}

func TestService_BadgeAdministration(t *testing.T) {
	s, _ := NewMemoryStore("")
	svc := NewService(s)
	ctx := context.Background()
	e := newEntry("v1", time.Now().UTC())
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := svc.RevokeBadge(ctx, e.Badge.Number); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, _ := s.Get(ctx, "v1")
	if got.Badge.Status != BadgeRevoked {
		t.Errorf("badge status = %q, want revoked", got.Badge.Status)
	}

	if err := svc.RevokeBadge(ctx, "VIS-00000000-0000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown badge: err = %v, want ErrNotFound", err)
	}
}
