package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the non-conformance domain
var (
	ErrInvalidNCTransition = errors.New("invalid non-conformance status transition")
	ErrInvalidSource       = errors.New("invalid non-conformance source")
	ErrInvalidNCSeverity   = errors.New("invalid non-conformance severity")
	ErrCAPANotFound        = errors.New("capa action not found")
	ErrCAPACompleted       = errors.New("capa action already completed")
	ErrOpenCAPAActions     = errors.New("open capa actions remain")
)

// NCStatus is the linear lifecycle status of a non-conformance
type NCStatus string

const (
	NCStatusOpen             NCStatus = "open"
	NCStatusUnderReview      NCStatus = "under_review"
	NCStatusCorrectiveAction NCStatus = "corrective_action"
	NCStatusVerified         NCStatus = "verified"
	NCStatusClosed           NCStatus = "closed"
)

// IsValid checks if the status is valid
func (s NCStatus) IsValid() bool {
	switch s {
	case NCStatusOpen, NCStatusUnderReview, NCStatusCorrectiveAction, NCStatusVerified, NCStatusClosed:
		return true
	}
	return false
}

// next returns the only status reachable from s, empty at the end of the chain
func (s NCStatus) next() NCStatus {
	switch s {
	case NCStatusOpen:
		return NCStatusUnderReview
	case NCStatusUnderReview:
		return NCStatusCorrectiveAction
	case NCStatusCorrectiveAction:
		return NCStatusVerified
	case NCStatusVerified:
		return NCStatusClosed
	}
	return ""
}

// NCSource identifies where a non-conformance was detected
type NCSource string

const (
	SourceProduction NCSource = "production"
	SourceAudit      NCSource = "audit"
	SourceComplaint  NCSource = "complaint"
	SourceSupplier   NCSource = "supplier"
	SourceInternal   NCSource = "internal"
)

// IsValid checks if the source is valid
func (s NCSource) IsValid() bool {
	switch s {
	case SourceProduction, SourceAudit, SourceComplaint, SourceSupplier, SourceInternal:
		return true
	}
	return false
}

// NCSeverity grades a non-conformance
type NCSeverity string

const (
	NCSeverityMinor    NCSeverity = "minor"
	NCSeverityMajor    NCSeverity = "major"
	NCSeverityCritical NCSeverity = "critical"
)

// IsValid checks if the severity is valid
func (s NCSeverity) IsValid() bool {
	switch s {
	case NCSeverityMinor, NCSeverityMajor, NCSeverityCritical:
		return true
	}
	return false
}

// CAPAType distinguishes corrective from preventive actions
type CAPAType string

const (
	CAPACorrective CAPAType = "corrective"
	CAPAPreventive CAPAType = "preventive"
)

// IsValid checks if the CAPA type is valid
func (t CAPAType) IsValid() bool {
	return t == CAPACorrective || t == CAPAPreventive
}

// CAPAAction is a corrective or preventive action owned by a non-conformance
type CAPAAction struct {
	ActionID    string     `bson:"actionId" json:"actionId"`
	ActionType  CAPAType   `bson:"actionType" json:"actionType"`
	Description string     `bson:"description" json:"description"`
	AssigneeID  string     `bson:"assigneeId" json:"assigneeId"`
	DueDate     time.Time  `bson:"dueDate" json:"dueDate"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}

// NonConformance is a documented deviation with its CAPA actions
type NonConformance struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NCID string             `bson:"ncId" json:"ncId"`

	NCNumber    string     `bson:"ncNumber" json:"ncNumber"`
	Source      NCSource   `bson:"source" json:"source"`
	Severity    NCSeverity `bson:"severity" json:"severity"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	BatchNumber string     `bson:"batchNumber,omitempty" json:"batchNumber,omitempty"`
	ProcessID   string     `bson:"processId,omitempty" json:"processId,omitempty"`

	Status  NCStatus     `bson:"status" json:"status"`
	Actions []CAPAAction `bson:"actions" json:"actions"`

	RaisedBy   string     `bson:"raisedBy" json:"raisedBy"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
	VerifiedAt *time.Time `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	ClosedAt   *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewNonConformance raises a non-conformance in the open state
func NewNonConformance(
	ncNumber string,
	source NCSource,
	severity NCSeverity,
	title, description, batchNumber, processID, raisedBy string,
) (*NonConformance, error) {
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNCSeverity, severity)
	}

	now := time.Now().UTC()
	ncID := fmt.Sprintf("NC-%s", uuid.New().String()[:8])

	nc := &NonConformance{
		ID:           primitive.NewObjectID(),
		NCID:         ncID,
		NCNumber:     ncNumber,
		Source:       source,
		Severity:     severity,
		Title:        title,
		Description:  description,
		BatchNumber:  batchNumber,
		ProcessID:    processID,
		Status:       NCStatusOpen,
		Actions:      make([]CAPAAction, 0),
		RaisedBy:     raisedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}

	nc.addDomainEvent(&NonConformanceRaisedEvent{
		NCID:        ncID,
		NCNumber:    ncNumber,
		Source:      string(source),
		Severity:    string(severity),
		BatchNumber: batchNumber,
		RaisedBy:    raisedBy,
		RaisedAt:    now,
	})

	return nc, nil
}

// Advance moves the non-conformance one step along its linear lifecycle.
// Closing requires every CAPA action to be completed.
func (nc *NonConformance) Advance(target NCStatus) error {
	next := nc.Status.next()
	if next == "" || target != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidNCTransition, nc.Status, target)
	}

	now := time.Now().UTC()
	switch target {
	case NCStatusVerified:
		nc.VerifiedAt = &now
	case NCStatusClosed:
		for _, a := range nc.Actions {
			if !a.Completed {
				return fmt.Errorf("%w: %s", ErrOpenCAPAActions, a.ActionID)
			}
		}
		nc.ClosedAt = &now
		nc.addDomainEvent(&NonConformanceClosedEvent{
			NCID:     nc.NCID,
			NCNumber: nc.NCNumber,
			ClosedAt: now,
		})
	}

	nc.Status = target
	nc.UpdatedAt = now
	return nil
}

// AddAction attaches a CAPA action. Only open paths of the lifecycle accept
// new actions.
func (nc *NonConformance) AddAction(actionType CAPAType, description, assigneeID string, dueDate time.Time) (*CAPAAction, error) {
	if !actionType.IsValid() {
		return nil, fmt.Errorf("invalid capa action type: %s", actionType)
	}
	if nc.Status == NCStatusClosed {
		return nil, fmt.Errorf("%w: cannot add actions to a closed record", ErrInvalidNCTransition)
	}

	action := CAPAAction{
		ActionID:    fmt.Sprintf("CAPA-%s", uuid.New().String()[:8]),
		ActionType:  actionType,
		Description: description,
		AssigneeID:  assigneeID,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	nc.Actions = append(nc.Actions, action)
	nc.UpdatedAt = action.CreatedAt
	return &nc.Actions[len(nc.Actions)-1], nil
}

// CompleteAction marks a CAPA action complete
func (nc *NonConformance) CompleteAction(actionID string) error {
	for i := range nc.Actions {
		if nc.Actions[i].ActionID != actionID {
			continue
		}
		if nc.Actions[i].Completed {
			return ErrCAPACompleted
		}
		now := time.Now().UTC()
		nc.Actions[i].Completed = true
		nc.Actions[i].CompletedAt = &now
		nc.UpdatedAt = now
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCAPANotFound, actionID)
}

func (nc *NonConformance) addDomainEvent(event DomainEvent) {
	nc.domainEvents = append(nc.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (nc *NonConformance) DomainEvents() []DomainEvent {
	return nc.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (nc *NonConformance) ClearDomainEvents() {
	nc.domainEvents = make([]DomainEvent, 0)
}
