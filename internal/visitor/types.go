package visitor

import "time"

// Status is the lifecycle state of a visitor record.
type Status string

const (
	StatusPresent       Status = "present"
	StatusCompleted     Status = "completed"
	StatusOverdue       Status = "overdue"
	StatusEmergencyExit Status = "emergency_exit"
)

// Terminal reports whether no further transition is allowed from s.
// Overdue visitors are still in the building and can check out.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEmergencyExit
}

// DocumentType is the kind of identity document presented at the desk.
type DocumentType string

const (
	DocCNI      DocumentType = "CNI"
	DocPassport DocumentType = "Passport"
	DocPermit   DocumentType = "Permit"
	DocOther    DocumentType = "Other"
)

// Urgency is the priority class of a visit.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyVIP    Urgency = "vip"
)

// AccessMode describes how the visitor moves inside the building.
type AccessMode string

const (
	AccessFree     AccessMode = "free"
	AccessBadge    AccessMode = "badge"
	AccessEscorted AccessMode = "escorted"
)

// SecurityLevel is the screening tier applied at issuance.
type SecurityLevel string

const (
	SecurityStandard SecurityLevel = "standard"
	SecurityElevated SecurityLevel = "elevated"
	SecurityMaximum  SecurityLevel = "maximum"
)

// BadgeStatus is the stored state of an access badge.
type BadgeStatus string

const (
	BadgeActive  BadgeStatus = "active"
	BadgeExpired BadgeStatus = "expired"
	BadgeRevoked BadgeStatus = "revoked"
	BadgeLost    BadgeStatus = "lost"
)

// Record is one visitor entry, composed at workflow completion and kept for
// reporting after departure. Records are archived, never hard-deleted.
type Record struct {
	ID          string `json:"id"`
	BadgeNumber string `json:"badge_number"`

	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Phone          string       `json:"phone,omitempty"`
	Email          string       `json:"email,omitempty"`
	Company        string       `json:"company,omitempty"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	Nationality    string       `json:"nationality,omitempty"`

	Purpose          string        `json:"purpose"`
	RequestedService string        `json:"requested_service,omitempty"`
	EmployeeToVisit  string        `json:"employee_to_visit"`
	Department       string        `json:"department,omitempty"`
	AppointmentRef   string        `json:"appointment_ref,omitempty"`
	ExpectedDuration time.Duration `json:"expected_duration"`
	Urgency          Urgency       `json:"urgency"`

	AccessMode    AccessMode    `json:"access_mode"`
	AccessZones   []string      `json:"access_zones,omitempty"`
	SecurityLevel SecurityLevel `json:"security_level"`

	CheckInTime  time.Time     `json:"check_in_time"`
	CheckOutTime *time.Time    `json:"check_out_time,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`

	Status Status `json:"status"`
}

// EffectiveStatus applies the canonical overdue rule: a record still present
// whose elapsed time exceeds its expected duration reads as overdue. Stored
// terminal states are returned as-is.
func (r Record) EffectiveStatus(now time.Time) Status {
	if r.Status != StatusPresent {
		return r.Status
	}
	if r.ExpectedDuration > 0 && now.Sub(r.CheckInTime) > r.ExpectedDuration {
		return StatusOverdue
	}
	return StatusPresent
}

// Badge is a time-bounded access credential tied to one visitor record.
type Badge struct {
	Number      string      `json:"number"`
	VisitorID   string      `json:"visitor_id"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Status      BadgeStatus `json:"status"`
	AccessZones []string    `json:"access_zones,omitempty"`
}

// EffectiveStatus reports the badge state at now: past the validity window a
// badge reads expired regardless of stored status, unless revoked or lost.
func (b Badge) EffectiveStatus(now time.Time) BadgeStatus {
	if b.Status == BadgeRevoked || b.Status == BadgeLost {
		return b.Status
	}
	if now.After(b.ExpiresAt) {
		return BadgeExpired
	}
	return b.Status
}
