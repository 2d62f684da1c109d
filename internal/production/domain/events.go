package domain

import "time"

// DomainEvent represents something that happened in the production domain
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ProcessCreatedEvent is raised when a workflow is instantiated for a batch
type ProcessCreatedEvent struct {
	ProcessID       string    `json:"processId"`
	BatchNumber     string    `json:"batchNumber"`
	ProductType     string    `json:"productType"`
	WorkflowName    string    `json:"workflowName"`
	WorkflowVersion string    `json:"workflowVersion"`
	StageCount      int       `json:"stageCount"`
	OperatorID      string    `json:"operatorId"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e *ProcessCreatedEvent) EventType() string     { return "fsms.production.process-created" }
func (e *ProcessCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// StageStartedEvent is raised when a stage moves to in_progress
type StageStartedEvent struct {
	ProcessID     string    `json:"processId"`
	BatchNumber   string    `json:"batchNumber"`
	StageKey      string    `json:"stageKey"`
	SequenceOrder int       `json:"sequenceOrder"`
	StartedBy     string    `json:"startedBy"`
	StartedAt     time.Time `json:"startedAt"`
}

func (e *StageStartedEvent) EventType() string     { return "fsms.production.stage-started" }
func (e *StageStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// StageCompletedEvent is raised when a stage completes
type StageCompletedEvent struct {
	ProcessID     string    `json:"processId"`
	BatchNumber   string    `json:"batchNumber"`
	StageKey      string    `json:"stageKey"`
	SequenceOrder int       `json:"sequenceOrder"`
	CompletedBy   string    `json:"completedBy"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (e *StageCompletedEvent) EventType() string     { return "fsms.production.stage-completed" }
func (e *StageCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// StageReworkedEvent is raised when an operator sends a stage to rework
type StageReworkedEvent struct {
	ProcessID   string    `json:"processId"`
	BatchNumber string    `json:"batchNumber"`
	StageKey    string    `json:"stageKey"`
	Reason      string    `json:"reason"`
	ReworkedBy  string    `json:"reworkedBy"`
	ReworkedAt  time.Time `json:"reworkedAt"`
}

func (e *StageReworkedEvent) EventType() string     { return "fsms.production.stage-reworked" }
func (e *StageReworkedEvent) OccurredAt() time.Time { return e.ReworkedAt }

// ReadingRecordedEvent is raised for every monitored reading
type ReadingRecordedEvent struct {
	ProcessID     string    `json:"processId"`
	BatchNumber   string    `json:"batchNumber"`
	StageKey      string    `json:"stageKey"`
	RequirementID string    `json:"requirementId"`
	Metric        string    `json:"metric"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit,omitempty"`
	InTolerance   bool      `json:"inTolerance"`
	RecordedBy    string    `json:"recordedBy"`
	RecordedAt    time.Time `json:"recordedAt"`
}

func (e *ReadingRecordedEvent) EventType() string     { return "fsms.production.reading-recorded" }
func (e *ReadingRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// BatchDivertedEvent is raised when an excursion outlives the tolerance window
type BatchDivertedEvent struct {
	ProcessID     string    `json:"processId"`
	BatchNumber   string    `json:"batchNumber"`
	StageKey      string    `json:"stageKey"`
	RequirementID string    `json:"requirementId"`
	Metric        string    `json:"metric"`
	Value         float64   `json:"value"`
	Reason        string    `json:"reason"`
	DivertedAt    time.Time `json:"divertedAt"`
}

func (e *BatchDivertedEvent) EventType() string     { return "fsms.production.batch-diverted" }
func (e *BatchDivertedEvent) OccurredAt() time.Time { return e.DivertedAt }

// ProcessCompletedEvent is raised when every stage of a process is done
type ProcessCompletedEvent struct {
	ProcessID   string    `json:"processId"`
	BatchNumber string    `json:"batchNumber"`
	ProductType string    `json:"productType"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *ProcessCompletedEvent) EventType() string     { return "fsms.production.process-completed" }
func (e *ProcessCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
