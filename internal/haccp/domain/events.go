package domain

import "time"

// DomainEvent represents something that happened in the HACCP domain
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// HazardAssessedEvent is raised when a hazard's decision tree is evaluated
type HazardAssessedEvent struct {
	ProductID      string    `json:"productId"`
	HazardID       string    `json:"hazardId"`
	ProcessStep    string    `json:"processStep"`
	HazardType     string    `json:"hazardType"`
	Classification string    `json:"classification"`
	AssessedBy     string    `json:"assessedBy"`
	AssessedAt     time.Time `json:"assessedAt"`
}

func (e *HazardAssessedEvent) EventType() string     { return "fsms.haccp.hazard-assessed" }
func (e *HazardAssessedEvent) OccurredAt() time.Time { return e.AssessedAt }

// CCPDeterminedEvent is raised when a hazard classifies as a critical control point
type CCPDeterminedEvent struct {
	ProductID    string    `json:"productId"`
	HazardID     string    `json:"hazardId"`
	ProcessStep  string    `json:"processStep"`
	Reasoning    string    `json:"reasoning"`
	DeterminedAt time.Time `json:"determinedAt"`
}

func (e *CCPDeterminedEvent) EventType() string     { return "fsms.haccp.ccp-determined" }
func (e *CCPDeterminedEvent) OccurredAt() time.Time { return e.DeterminedAt }

// PlanApprovedEvent is raised when a product's HACCP plan is approved
type PlanApprovedEvent struct {
	ProductID  string    `json:"productId"`
	Name       string    `json:"name"`
	ApprovedBy string    `json:"approvedBy"`
	ApprovedAt time.Time `json:"approvedAt"`
}

func (e *PlanApprovedEvent) EventType() string     { return "fsms.haccp.plan-approved" }
func (e *PlanApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }
