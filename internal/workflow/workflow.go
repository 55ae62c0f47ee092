// Package workflow drives the reception check-in sequence: identity, badge,
// visit type, destination, confirmation. One controller serves one operator
// session; calls are not safe for concurrent use.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"reception/internal/audit"
	"reception/internal/visitor"
)

// StepID identifies one stage of the check-in sequence.
type StepID string

const (
	StepIdentity     StepID = "identity"
	StepBadge        StepID = "badge"
	StepVisitType    StepID = "visit_type"
	StepDestination  StepID = "destination"
	StepConfirmation StepID = "confirmation"
)

// Step is one stage with its completion flags.
type Step struct {
	ID        StepID `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

func newSteps() []Step {
	return []Step{
		{ID: StepIdentity, Title: "Identité du visiteur", Active: true},
		{ID: StepBadge, Title: "Badge et accès"},
		{ID: StepVisitType, Title: "Motif de visite"},
		{ID: StepDestination, Title: "Destination"},
		{ID: StepConfirmation, Title: "Confirmation"},
	}
}

// Registration accumulates form data across steps. Fields submitted at later
// steps merge over earlier ones; resubmitting a step overwrites its fields.
type Registration struct {
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Phone          string               `json:"phone"`
	Email          string               `json:"email"`
	Company        string               `json:"company"`
	DocumentType   visitor.DocumentType `json:"document_type"`
	DocumentNumber string               `json:"document_number"`
	Nationality    string               `json:"nationality"`

	AccessMode    visitor.AccessMode    `json:"access_mode"`
	AccessZones   []string              `json:"access_zones"`
	SecurityLevel visitor.SecurityLevel `json:"security_level"`

	Purpose          string          `json:"purpose"`
	RequestedService string          `json:"requested_service"`
	Urgency          visitor.Urgency `json:"urgency"`

	EmployeeToVisit  string        `json:"employee_to_visit"`
	Department       string        `json:"department"`
	AppointmentRef   string        `json:"appointment_ref"`
	ExpectedDuration time.Duration `json:"expected_duration"`
}

// StepData is the partial form submission for one Advance call. Nil pointers
// leave the accumulated value untouched.
type StepData struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Company        *string `json:"company,omitempty"`
	DocumentType   *string `json:"document_type,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	Nationality    *string `json:"nationality,omitempty"`

	AccessMode    *string  `json:"access_mode,omitempty"`
	AccessZones   []string `json:"access_zones,omitempty"`
	SecurityLevel *string  `json:"security_level,omitempty"`

	Purpose          *string `json:"purpose,omitempty"`
	RequestedService *string `json:"requested_service,omitempty"`
	Urgency          *string `json:"urgency,omitempty"`

	EmployeeToVisit  *string `json:"employee_to_visit,omitempty"`
	Department       *string `json:"department,omitempty"`
	AppointmentRef   *string `json:"appointment_ref,omitempty"`
	ExpectedDuration *string `json:"expected_duration,omitempty"`
}

// ValidationError names the field that failed step validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow: invalid field %s: %s", e.Field, e.Reason)
}

// ErrIncompleteWorkflow means Complete was called before every step validated.
var ErrIncompleteWorkflow = errors.New("workflow: not all steps completed")

// Capabilities describes what the operating user may do, composed per user
// instead of branching on a role string.
type Capabilities struct {
	CanBulkSelectFromGrid bool `json:"can_bulk_select_from_grid"`
	CanManagePersonnel    bool `json:"can_manage_personnel"`
}

// Operator identifies who is driving the session, for audit attribution.
type Operator struct {
	ID   string
	Name string
	Role string
}

// Result is what Complete returns once the record is committed.
type Result struct {
	Entry visitor.Entry
}

// Controller is the check-in state machine for one operator session.
type Controller struct {
	id       string
	steps    []Step
	index    int
	data     Registration
	badgeNum string
	visitID  string

	operator Operator
	caps     Capabilities
	issuer   *visitor.Issuer
	store    visitor.Store
	recorder audit.Recorder
}

// New creates a controller at the identity step with empty data.
func New(operator Operator, caps Capabilities, issuer *visitor.Issuer, store visitor.Store, recorder audit.Recorder) *Controller {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Controller{
		id:       uuid.NewString(),
		steps:    newSteps(),
		operator: operator,
		caps:     caps,
		issuer:   issuer,
		store:    store,
		recorder: recorder,
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Capabilities returns the capability set the session was opened with.
func (c *Controller) Capabilities() Capabilities { return c.caps }

// State is a snapshot of the controller for the UI.
type State struct {
	ID          string       `json:"id"`
	CurrentStep int          `json:"current_step"`
	Steps       []Step       `json:"steps"`
	Data        Registration `json:"data"`
	BadgeNumber string       `json:"badge_number,omitempty"`
	VisitID     string       `json:"visit_id,omitempty"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	steps := make([]Step, len(c.steps))
	copy(steps, c.steps)
	return State{
		ID:          c.id,
		CurrentStep: c.index,
		Steps:       steps,
		Data:        c.data,
		BadgeNumber: c.badgeNum,
		VisitID:     c.visitID,
	}
}

// Advance validates the current step against the merged data and moves
// forward. On validation failure the state is left untouched.
func (c *Controller) Advance(ctx context.Context, in StepData) error {
	merged := c.data
	merge(&merged, in)

	stepID := c.steps[c.index].ID
	if err := c.validateStep(stepID, merged); err != nil {
		c.recordStep(ctx, stepID, audit.StatusFailure, err.Error())
		return err
	}

	c.data = merged
	c.steps[c.index].Completed = true
	if c.index < len(c.steps)-1 {
		c.steps[c.index].Active = false
		c.index++
		c.steps[c.index].Active = true
	}
	c.recordStep(ctx, stepID, audit.StatusSuccess, "")
	return nil
}

// Back moves one step backward without discarding entered data.
func (c *Controller) Back() {
	if c.index == 0 {
		return
	}
	c.steps[c.index].Active = false
	c.index--
	c.steps[c.index].Active = true
	c.steps[c.index].Completed = false
}

// Complete mints a badge, composes the visitor record, persists it and
// rewinds the controller to a fresh identity step. The badge number and
// visit id of the committed visit stay visible in the snapshot until the
// session is cancelled or completes again. Only valid once every step
// before confirmation has completed and the final step validates.
func (c *Controller) Complete(ctx context.Context) (Result, error) {
	if c.index != len(c.steps)-1 {
		return Result{}, ErrIncompleteWorkflow
	}
	for _, s := range c.steps[:len(c.steps)-1] {
		if !s.Completed {
			return Result{}, ErrIncompleteWorkflow
		}
	}
	if err := c.validateStep(StepConfirmation, c.data); err != nil {
		return Result{}, err
	}

	visitID := uuid.NewString()
	badge, err := c.issuer.Issue(ctx, visitID, c.data.AccessZones)
	if err != nil {
		return Result{}, err
	}

	rec := c.composeRecord(visitID, badge)
	entry := visitor.Entry{Record: rec, Badge: badge}
	if err := c.store.Save(ctx, entry); err != nil {
		return Result{}, err
	}

	c.badgeNum = badge.Number
	c.visitID = visitID

	evt := audit.NewEvent(c.operator.ID, c.operator.Name, audit.ActionCheckinComplete, "visitor:"+visitID)
	evt.UserRole = c.operator.Role
	evt.Details = fmt.Sprintf("badge %s issued to %s %s", badge.Number, rec.FirstName, rec.LastName)
	c.recorder.Record(ctx, evt)

	c.resetSteps()
	return Result{Entry: entry}, nil
}

// Cancel discards the session state back to the identity step.
func (c *Controller) Cancel() {
	c.resetSteps()
	c.badgeNum = ""
	c.visitID = ""
}

// resetSteps rewinds the steps and entered data; the last committed badge
// number and visit id are kept for the snapshot.
func (c *Controller) resetSteps() {
	c.steps = newSteps()
	c.index = 0
	c.data = Registration{}
}

func (c *Controller) composeRecord(visitID string, badge visitor.Badge) visitor.Record {
	d := c.data
	checkIn := badge.IssuedAt
	urgency := d.Urgency
	if urgency == "" {
		urgency = visitor.UrgencyNormal
	}
	mode := d.AccessMode
	if mode == "" {
		mode = visitor.AccessBadge
	}
	level := d.SecurityLevel
	if level == "" {
		level = visitor.SecurityStandard
	}
	expected := d.ExpectedDuration
	if expected <= 0 {
		expected = time.Hour
	}
	return visitor.Record{
		ID:               visitID,
		BadgeNumber:      badge.Number,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Phone:            d.Phone,
		Email:            d.Email,
		Company:          d.Company,
		DocumentType:     d.DocumentType,
		DocumentNumber:   d.DocumentNumber,
		Nationality:      d.Nationality,
		Purpose:          d.Purpose,
		RequestedService: d.RequestedService,
		EmployeeToVisit:  d.EmployeeToVisit,
		Department:       d.Department,
		AppointmentRef:   d.AppointmentRef,
		ExpectedDuration: expected,
		Urgency:          urgency,
		AccessMode:       mode,
		AccessZones:      append([]string(nil), d.AccessZones...),
		SecurityLevel:    level,
		CheckInTime:      checkIn,
		Status:           visitor.StatusPresent,
	}
}

func (c *Controller) recordStep(ctx context.Context, stepID StepID, status, details string) {
	evt := audit.NewEvent(c.operator.ID, c.operator.Name, audit.ActionCheckinStep, "workflow:"+c.id)
	evt.UserRole = c.operator.Role
	evt.Status = status
	evt.Details = details
	if details == "" {
		evt.Details = fmt.Sprintf("step %s completed", stepID)
	}
	c.recorder.Record(ctx, evt)
}

var docNumberPatterns = map[visitor.DocumentType]*regexp.Regexp{
	visitor.DocCNI:      regexp.MustCompile(`^[0-9]{6,12}$`),
	visitor.DocPassport: regexp.MustCompile(`^[A-Z0-9]{6,9}$`),
	visitor.DocPermit:   regexp.MustCompile(`^[A-Z0-9-]{4,15}$`),
	visitor.DocOther:    regexp.MustCompile(`^.{3,30}$`),
}

func (c *Controller) validateStep(id StepID, d Registration) error {
	switch id {
	case StepIdentity:
		if strings.TrimSpace(d.FirstName) == "" {
			return &ValidationError{Field: "firstName", Reason: "required"}
		}
		if strings.TrimSpace(d.LastName) == "" {
			return &ValidationError{Field: "lastName", Reason: "required"}
		}
		if d.DocumentType == "" {
			return &ValidationError{Field: "documentType", Reason: "required"}
		}
		pattern, ok := docNumberPatterns[d.DocumentType]
		if !ok {
			return &ValidationError{Field: "documentType", Reason: "unknown document type"}
		}
		if !pattern.MatchString(d.DocumentNumber) {
			return &ValidationError{Field: "documentNumber", Reason: "invalid format for " + string(d.DocumentType)}
		}
	case StepBadge:
		if d.AccessMode != "" {
			switch d.AccessMode {
			case visitor.AccessFree, visitor.AccessBadge, visitor.AccessEscorted:
			default:
				return &ValidationError{Field: "accessMode", Reason: "unknown access mode"}
			}
		}
		if d.SecurityLevel != "" {
			switch d.SecurityLevel {
			case visitor.SecurityStandard, visitor.SecurityElevated, visitor.SecurityMaximum:
			default:
				return &ValidationError{Field: "securityLevel", Reason: "unknown security level"}
			}
		}
	case StepVisitType:
		if strings.TrimSpace(d.Purpose) == "" {
			return &ValidationError{Field: "purpose", Reason: "required"}
		}
		if d.Urgency != "" {
			switch d.Urgency {
			case visitor.UrgencyNormal, visitor.UrgencyHigh, visitor.UrgencyVIP:
			default:
				return &ValidationError{Field: "urgency", Reason: "unknown urgency level"}
			}
		}
	case StepDestination:
		if strings.TrimSpace(d.EmployeeToVisit) == "" {
			return &ValidationError{Field: "employeeToVisit", Reason: "required"}
		}
	case StepConfirmation:
		// Everything was validated on the way here; re-check the essentials
		// so a controller cannot commit a half-entered record.
		if strings.TrimSpace(d.LastName) == "" {
			return &ValidationError{Field: "lastName", Reason: "required"}
		}
		if strings.TrimSpace(d.Purpose) == "" {
			return &ValidationError{Field: "purpose", Reason: "required"}
		}
		if strings.TrimSpace(d.EmployeeToVisit) == "" {
			return &ValidationError{Field: "employeeToVisit", Reason: "required"}
		}
	}
	return nil
}

func merge(dst *Registration, in StepData) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&dst.FirstName, in.FirstName)
	setString(&dst.LastName, in.LastName)
	setString(&dst.Phone, in.Phone)
	setString(&dst.Email, in.Email)
	setString(&dst.Company, in.Company)
	setString(&dst.DocumentNumber, in.DocumentNumber)
	setString(&dst.Nationality, in.Nationality)
	setString(&dst.RequestedService, in.RequestedService)
	setString(&dst.Purpose, in.Purpose)
	setString(&dst.EmployeeToVisit, in.EmployeeToVisit)
	setString(&dst.Department, in.Department)
	setString(&dst.AppointmentRef, in.AppointmentRef)

	if in.DocumentType != nil {
		dst.DocumentType = visitor.DocumentType(*in.DocumentType)
	}
	if in.AccessMode != nil {
		dst.AccessMode = visitor.AccessMode(*in.AccessMode)
	}
	if in.SecurityLevel != nil {
		dst.SecurityLevel = visitor.SecurityLevel(*in.SecurityLevel)
	}
	if in.Urgency != nil {
		dst.Urgency = visitor.Urgency(*in.Urgency)
	}
	if in.AccessZones != nil {
		dst.AccessZones = append([]string(nil), in.AccessZones...)
	}
	if in.ExpectedDuration != nil {
		if parsed, err := time.ParseDuration(*in.ExpectedDuration); err == nil && parsed > 0 {
			dst.ExpectedDuration = parsed
		}
	}
}
