package domain

import "time"

// DomainEvent represents something that happened in the change domain
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ChangeSubmittedEvent is raised when a change enters assessment
type ChangeSubmittedEvent struct {
	ChangeID     string    `json:"changeId"`
	ChangeNumber string    `json:"changeNumber"`
	Title        string    `json:"title"`
	RequestedBy  string    `json:"requestedBy"`
	Approvers    int       `json:"approvers"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

func (e *ChangeSubmittedEvent) EventType() string     { return "fsms.change.submitted" }
func (e *ChangeSubmittedEvent) OccurredAt() time.Time { return e.SubmittedAt }

// ChangeApprovedEvent is raised when the last pending step approves
type ChangeApprovedEvent struct {
	ChangeID     string    `json:"changeId"`
	ChangeNumber string    `json:"changeNumber"`
	ApprovedAt   time.Time `json:"approvedAt"`
}

func (e *ChangeApprovedEvent) EventType() string     { return "fsms.change.approved" }
func (e *ChangeApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// ChangeRejectedEvent is raised when any step rejects
type ChangeRejectedEvent struct {
	ChangeID     string    `json:"changeId"`
	ChangeNumber string    `json:"changeNumber"`
	Sequence     int       `json:"sequence"`
	RejectedBy   string    `json:"rejectedBy"`
	Comments     string    `json:"comments,omitempty"`
	RejectedAt   time.Time `json:"rejectedAt"`
}

func (e *ChangeRejectedEvent) EventType() string     { return "fsms.change.rejected" }
func (e *ChangeRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }

// ChangeImplementedEvent is raised when an approved change is implemented
type ChangeImplementedEvent struct {
	ChangeID      string    `json:"changeId"`
	ChangeNumber  string    `json:"changeNumber"`
	ImplementedBy string    `json:"implementedBy"`
	ImplementedAt time.Time `json:"implementedAt"`
}

func (e *ChangeImplementedEvent) EventType() string     { return "fsms.change.implemented" }
func (e *ChangeImplementedEvent) OccurredAt() time.Time { return e.ImplementedAt }

// ChangeClosedEvent is raised when an implemented change is verified and closed
type ChangeClosedEvent struct {
	ChangeID     string    `json:"changeId"`
	ChangeNumber string    `json:"changeNumber"`
	VerifiedBy   string    `json:"verifiedBy"`
	ClosedAt     time.Time `json:"closedAt"`
}

func (e *ChangeClosedEvent) EventType() string     { return "fsms.change.closed" }
func (e *ChangeClosedEvent) OccurredAt() time.Time { return e.ClosedAt }
