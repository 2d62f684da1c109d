package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the change domain
var (
	ErrInvalidChangeTransition = errors.New("invalid change status transition")
	ErrNoPendingApproval       = errors.New("no pending approval step")
	ErrNotAssignedApprover     = errors.New("caller is not the assigned approver")
	ErrApproversRequired       = errors.New("at least one approver is required")
	ErrDuplicateSequence       = errors.New("approval sequences must be unique")
	ErrInvalidDecision         = errors.New("invalid approval decision")
)

// ChangeStatus is the lifecycle status of a change request
type ChangeStatus string

const (
	ChangeStatusDraft       ChangeStatus = "draft"
	ChangeStatusAssessing   ChangeStatus = "assessing"
	ChangeStatusApproved    ChangeStatus = "approved"
	ChangeStatusRejected    ChangeStatus = "rejected"
	ChangeStatusImplemented ChangeStatus = "implemented"
	ChangeStatusClosed      ChangeStatus = "closed"
)

// IsValid checks if the change status is valid
func (s ChangeStatus) IsValid() bool {
	switch s {
	case ChangeStatusDraft, ChangeStatusAssessing, ChangeStatusApproved,
		ChangeStatusRejected, ChangeStatusImplemented, ChangeStatusClosed:
		return true
	}
	return false
}

// ApprovalDecision is the decision state of one approval step
type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "pending"
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// IsValid checks if the decision is valid
func (d ApprovalDecision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// ChangeApproval is one ordered approval step of a change request
type ChangeApproval struct {
	Sequence   int              `bson:"sequence" json:"sequence"`
	ApproverID string           `bson:"approverId" json:"approverId"`
	Decision   ApprovalDecision `bson:"decision" json:"decision"`
	Comments   string           `bson:"comments,omitempty" json:"comments,omitempty"`
	DecidedAt  *time.Time       `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
}

// ApproverSpec names an approver and their position in the chain
type ApproverSpec struct {
	Sequence   int
	ApproverID string
}

// ChangeRequest is a controlled change with an ordered approval chain.
// Overall status derives from the step decisions: one rejection rejects the
// whole request immediately; approval requires every step approved.
type ChangeRequest struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChangeID string             `bson:"changeId" json:"changeId"`

	ChangeNumber string `bson:"changeNumber" json:"changeNumber"`
	Title        string `bson:"title" json:"title"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	Reason       string `bson:"reason,omitempty" json:"reason,omitempty"`
	RequestedBy  string `bson:"requestedBy" json:"requestedBy"`

	Status    ChangeStatus     `bson:"status" json:"status"`
	Approvals []ChangeApproval `bson:"approvals" json:"approvals"`

	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
	DecidedAt     *time.Time `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
	ImplementedAt *time.Time `bson:"implementedAt,omitempty" json:"implementedAt,omitempty"`
	VerifiedAt    *time.Time `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	ClosedAt      *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewChangeRequest submits a change for assessment with its approval chain
// already pending
func NewChangeRequest(
	changeNumber, title, description, reason, requestedBy string,
	approvers []ApproverSpec,
) (*ChangeRequest, error) {
	if len(approvers) == 0 {
		return nil, ErrApproversRequired
	}

	seen := make(map[int]bool, len(approvers))
	approvals := make([]ChangeApproval, len(approvers))
	for i, spec := range approvers {
		if seen[spec.Sequence] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSequence, spec.Sequence)
		}
		seen[spec.Sequence] = true
		approvals[i] = ChangeApproval{
			Sequence:   spec.Sequence,
			ApproverID: spec.ApproverID,
			Decision:   DecisionPending,
		}
	}

	now := time.Now().UTC()
	changeID := fmt.Sprintf("CHG-%s", uuid.New().String()[:8])

	change := &ChangeRequest{
		ID:           primitive.NewObjectID(),
		ChangeID:     changeID,
		ChangeNumber: changeNumber,
		Title:        title,
		Description:  description,
		Reason:       reason,
		RequestedBy:  requestedBy,
		Status:       ChangeStatusAssessing,
		Approvals:    approvals,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}

	change.addDomainEvent(&ChangeSubmittedEvent{
		ChangeID:     changeID,
		ChangeNumber: changeNumber,
		Title:        title,
		RequestedBy:  requestedBy,
		Approvers:    len(approvers),
		SubmittedAt:  now,
	})

	return change, nil
}

// PendingStep returns the earliest pending approval step, optionally filtered
// to a specific sequence. Nil when none is pending.
func (c *ChangeRequest) PendingStep(sequence *int) *ChangeApproval {
	var earliest *ChangeApproval
	for i := range c.Approvals {
		step := &c.Approvals[i]
		if step.Decision != DecisionPending {
			continue
		}
		if sequence != nil && step.Sequence != *sequence {
			continue
		}
		if earliest == nil || step.Sequence < earliest.Sequence {
			earliest = step
		}
	}
	return earliest
}

// DecideStep applies an approver's decision to the earliest pending step.
// A rejection short-circuits the whole request regardless of remaining steps;
// the last approval with zero pending left approves it. Returns the decided
// step's sequence.
func (c *ChangeRequest) DecideStep(approverID string, sequence *int, decision ApprovalDecision, comments string) (int, error) {
	if c.Status != ChangeStatusAssessing {
		return 0, fmt.Errorf("%w: request is %s", ErrInvalidChangeTransition, c.Status)
	}
	if decision != DecisionApproved && decision != DecisionRejected {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDecision, decision)
	}

	step := c.PendingStep(sequence)
	if step == nil {
		return 0, ErrNoPendingApproval
	}
	if step.ApproverID != approverID {
		return 0, fmt.Errorf("%w: step %d belongs to %s", ErrNotAssignedApprover, step.Sequence, step.ApproverID)
	}

	now := time.Now().UTC()
	step.Decision = decision
	step.Comments = comments
	step.DecidedAt = &now
	c.UpdatedAt = now

	if decision == DecisionRejected {
		c.Status = ChangeStatusRejected
		c.DecidedAt = &now
		c.addDomainEvent(&ChangeRejectedEvent{
			ChangeID:     c.ChangeID,
			ChangeNumber: c.ChangeNumber,
			Sequence:     step.Sequence,
			RejectedBy:   approverID,
			Comments:     comments,
			RejectedAt:   now,
		})
		return step.Sequence, nil
	}

	if c.PendingStep(nil) == nil {
		c.Status = ChangeStatusApproved
		c.DecidedAt = &now
		c.addDomainEvent(&ChangeApprovedEvent{
			ChangeID:     c.ChangeID,
			ChangeNumber: c.ChangeNumber,
			ApprovedAt:   now,
		})
	}
	return step.Sequence, nil
}

// Implement marks an approved change implemented
func (c *ChangeRequest) Implement(implementedBy string) error {
	if c.Status != ChangeStatusApproved {
		return fmt.Errorf("%w: cannot implement from %s", ErrInvalidChangeTransition, c.Status)
	}

	now := time.Now().UTC()
	c.Status = ChangeStatusImplemented
	c.ImplementedAt = &now
	c.UpdatedAt = now

	c.addDomainEvent(&ChangeImplementedEvent{
		ChangeID:      c.ChangeID,
		ChangeNumber:  c.ChangeNumber,
		ImplementedBy: implementedBy,
		ImplementedAt: now,
	})
	return nil
}

// VerifyAndClose verifies an implemented change and closes it
func (c *ChangeRequest) VerifyAndClose(verifiedBy string) error {
	if c.Status != ChangeStatusImplemented {
		return fmt.Errorf("%w: cannot verify from %s", ErrInvalidChangeTransition, c.Status)
	}

	now := time.Now().UTC()
	c.Status = ChangeStatusClosed
	c.VerifiedAt = &now
	c.ClosedAt = &now
	c.UpdatedAt = now

	c.addDomainEvent(&ChangeClosedEvent{
		ChangeID:     c.ChangeID,
		ChangeNumber: c.ChangeNumber,
		VerifiedBy:   verifiedBy,
		ClosedAt:     now,
	})
	return nil
}

func (c *ChangeRequest) addDomainEvent(event DomainEvent) {
	c.domainEvents = append(c.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (c *ChangeRequest) DomainEvents() []DomainEvent {
	return c.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (c *ChangeRequest) ClearDomainEvents() {
	c.domainEvents = make([]DomainEvent, 0)
}
