package visitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists visitor entries in Postgres for multi-desk deploys.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, badge_number, first_name, last_name, phone, email, company,
	document_type, document_number, nationality, purpose, requested_service,
	employee_to_visit, department, appointment_ref, expected_duration_s, urgency,
	access_mode, access_zones, security_level, check_in_time, check_out_time,
	duration_s, status, badge_issued_at, badge_expires_at, badge_status`

// Save inserts or replaces the entry by record id in one statement.
func (s *PostgresStore) Save(ctx context.Context, e Entry) error {
	if e.Record.ID == "" {
		return fmt.Errorf("visitor: record id required")
	}
	zones, err := json.Marshal(e.Record.AccessZones)
	if err != nil {
		return err
	}
	var durationS *int64
	if e.Record.Duration > 0 {
		v := int64(e.Record.Duration.Seconds())
		durationS = &v
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visitor_entries (`+entryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
		ON CONFLICT (id) DO UPDATE SET
			badge_number = EXCLUDED.badge_number,
			check_out_time = EXCLUDED.check_out_time,
			duration_s = EXCLUDED.duration_s,
			status = EXCLUDED.status,
			badge_status = EXCLUDED.badge_status
	`, e.Record.ID, e.Record.BadgeNumber, e.Record.FirstName, e.Record.LastName,
		e.Record.Phone, e.Record.Email, e.Record.Company,
		string(e.Record.DocumentType), e.Record.DocumentNumber, e.Record.Nationality,
		e.Record.Purpose, e.Record.RequestedService, e.Record.EmployeeToVisit,
		e.Record.Department, e.Record.AppointmentRef, int64(e.Record.ExpectedDuration.Seconds()),
		string(e.Record.Urgency), string(e.Record.AccessMode), string(zones),
		string(e.Record.SecurityLevel), e.Record.CheckInTime, e.Record.CheckOutTime,
		durationS, string(e.Record.Status), e.Badge.IssuedAt, e.Badge.ExpiresAt,
		string(e.Badge.Status))
	return err
}

// Get returns the entry for id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM visitor_entries WHERE id = $1`, id)
	return scanEntry(row)
}

// List returns entries with optional status/department/date filters,
// newest check-in first. Overdue is derived, so a status filter on it is
// applied after the scan.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM visitor_entries`
	args := []any{}
	clauses := []string{}
	if f.Department != "" {
		clauses = append(clauses, "department = $"+itoa(len(args)+1))
		args = append(args, f.Department)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "check_in_time >= $"+itoa(len(args)+1))
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "check_in_time <= $"+itoa(len(args)+1))
		args = append(args, f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY check_in_time DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	var res []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if f.Status != "" && e.Record.EffectiveStatus(now) != f.Status {
			continue
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// CheckOut finalises a record; the guard runs in SQL so two desks cannot
// both complete the same visit.
func (s *PostgresStore) CheckOut(ctx context.Context, id string, at time.Time) (Entry, error) {
	return s.finalize(ctx, id, at, StatusCompleted)
}

// EmergencyExit marks a record as evacuated, under the same SQL guard as
// CheckOut so a completed visit is never overwritten.
func (s *PostgresStore) EmergencyExit(ctx context.Context, id string, at time.Time) (Entry, error) {
	return s.finalize(ctx, id, at, StatusEmergencyExit)
}

func (s *PostgresStore) finalize(ctx context.Context, id string, at time.Time, status Status) (Entry, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visitor_entries
		SET check_out_time = $2,
		    duration_s = EXTRACT(EPOCH FROM ($2 - check_in_time))::bigint,
		    status = $3
		WHERE id = $1 AND status NOT IN ('completed', 'emergency_exit') AND check_in_time <= $2
	`, id, at, string(status))
	if err != nil {
		return Entry{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, err
	}
	if n == 0 {
		// Distinguish unknown id from an illegal transition.
		if _, gerr := s.Get(ctx, id); errors.Is(gerr, ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, ErrInvalidState
	}
	return s.Get(ctx, id)
}

// BadgeNumberInUse reports whether number is held by an unexpired active badge.
func (s *PostgresStore) BadgeNumberInUse(ctx context.Context, number string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM visitor_entries
		WHERE badge_number = $1 AND badge_status = 'active' AND badge_expires_at > NOW()
	`, number)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateBadgeStatus applies revoked/lost transitions by badge number.
func (s *PostgresStore) UpdateBadgeStatus(ctx context.Context, number string, status BadgeStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visitor_entries SET badge_status = $2 WHERE badge_number = $1
	`, number, string(status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		docType   string
		urgency   string
		mode      string
		zones     string
		level     string
		status    string
		badgeSt   string
		expectedS int64
		durationS *int64
		checkOut  *time.Time
	)
	err := row.Scan(&e.Record.ID, &e.Record.BadgeNumber, &e.Record.FirstName,
		&e.Record.LastName, &e.Record.Phone, &e.Record.Email, &e.Record.Company,
		&docType, &e.Record.DocumentNumber, &e.Record.Nationality,
		&e.Record.Purpose, &e.Record.RequestedService, &e.Record.EmployeeToVisit,
		&e.Record.Department, &e.Record.AppointmentRef, &expectedS, &urgency,
		&mode, &zones, &level, &e.Record.CheckInTime, &checkOut, &durationS,
		&status, &e.Badge.IssuedAt, &e.Badge.ExpiresAt, &badgeSt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.Record.DocumentType = DocumentType(docType)
	e.Record.Urgency = Urgency(urgency)
	e.Record.AccessMode = AccessMode(mode)
	e.Record.SecurityLevel = SecurityLevel(level)
	e.Record.Status = Status(status)
	e.Record.ExpectedDuration = time.Duration(expectedS) * time.Second
	if durationS != nil {
		e.Record.Duration = time.Duration(*durationS) * time.Second
	}
	e.Record.CheckOutTime = checkOut
	if zones != "" {
		if err := json.Unmarshal([]byte(zones), &e.Record.AccessZones); err != nil {
			return Entry{}, err
		}
	}
	e.Badge.Status = BadgeStatus(badgeSt)
	e.Badge.Number = e.Record.BadgeNumber
	e.Badge.VisitorID = e.Record.ID
	e.Badge.AccessZones = e.Record.AccessZones
	return e, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
