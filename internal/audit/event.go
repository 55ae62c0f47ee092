package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions emitted by the check-in workflow.
const (
	ActionCheckinStep     = "VISITOR_CHECKIN_STEP"
	ActionCheckinComplete = "VISITOR_CHECKIN_COMPLETE"
	ActionVisitorCheckout = "VISITOR_CHECKOUT"
	ActionEmergencyExit   = "VISITOR_EMERGENCY_EXIT"
	ActionBadgeRevoked    = "BADGE_REVOKED"
	ActionBadgeLost       = "BADGE_LOST"
	ActionOperatorLogin   = "OPERATOR_LOGIN"
)

// Event is an immutable record of a security- or operationally-relevant
// action. Once accepted by the sink it is never modified or deleted.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName,omitempty"`
	UserRole  string         `json:"userRole,omitempty"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource,omitempty"`
	Details   string         `json:"details,omitempty"`
	Status    string         `json:"status"`
	RiskLevel string         `json:"riskLevel"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Statuses and risk levels accepted by the sink.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// NewEvent builds a success/low event with generated id and timestamp.
// Callers adjust status and risk as needed before recording.
func NewEvent(userID, userName, action, resource string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		UserName:  userName,
		Action:    action,
		Resource:  resource,
		Status:    StatusSuccess,
		RiskLevel: RiskLow,
	}
}

// Recorder accepts audit events on a best-effort basis. Implementations must
// not block the caller's workflow: delivery failures are logged and dropped,
// never surfaced as errors to the recording site.
type Recorder interface {
	Record(ctx context.Context, evt Event)
}

// NopRecorder discards every event. Used in tests and when auditing is off.
type NopRecorder struct{}

// Record discards evt.
func (NopRecorder) Record(ctx context.Context, evt Event) {}
