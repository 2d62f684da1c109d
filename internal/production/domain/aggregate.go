package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fsms-platform/fsms-service/internal/production/workflow"
)

// Errors for the production domain
var (
	ErrInvalidProcessTransition = errors.New("invalid process status transition")
	ErrInvalidStageTransition   = errors.New("invalid stage status transition")
	ErrProcessNotActive         = errors.New("process is not active")
	ErrStageNotFound            = errors.New("stage not found on process")
	ErrRequirementNotFound      = errors.New("monitoring requirement not found")
	ErrReworkReasonRequired     = errors.New("rework requires a reason")
)

// ProcessStatus represents the lifecycle status of a production process
type ProcessStatus string

const (
	ProcessStatusDraft      ProcessStatus = "draft"
	ProcessStatusInProgress ProcessStatus = "in_progress"
	ProcessStatusCompleted  ProcessStatus = "completed"
	ProcessStatusCancelled  ProcessStatus = "cancelled"
)

// IsValid checks if the process status is valid
func (s ProcessStatus) IsValid() bool {
	switch s {
	case ProcessStatusDraft, ProcessStatusInProgress, ProcessStatusCompleted, ProcessStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions
func (s ProcessStatus) IsTerminal() bool {
	return s == ProcessStatusCompleted || s == ProcessStatusCancelled
}

// StageStatus represents the status of a single process stage
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusReworked   StageStatus = "reworked"
)

// IsValid checks if the stage status is valid
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPending, StageStatusInProgress, StageStatusCompleted, StageStatusReworked:
		return true
	}
	return false
}

// ProductionProcess is one batch instantiation of a workflow definition
type ProductionProcess struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProcessID string             `bson:"processId" json:"processId"`

	BatchNumber string               `bson:"batchNumber" json:"batchNumber"`
	ProductType workflow.ProductType `bson:"productType" json:"productType"`
	OperatorID  string               `bson:"operatorId" json:"operatorId"`

	// Workflow snapshot taken at instantiation
	WorkflowName    string                 `bson:"workflowName" json:"workflowName"`
	WorkflowVersion string                 `bson:"workflowVersion" json:"workflowVersion"`
	InitialFields   map[string]interface{} `bson:"initialFields,omitempty" json:"initialFields,omitempty"`

	Status     ProcessStatus `bson:"status" json:"status"`
	StageCount int           `bson:"stageCount" json:"stageCount"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	CancelReason string `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewProductionProcess creates a draft process from a workflow definition
func NewProductionProcess(
	batchNumber, operatorID string,
	productType workflow.ProductType,
	def *workflow.Definition,
	initialFields map[string]interface{},
) *ProductionProcess {
	now := time.Now().UTC()
	processID := fmt.Sprintf("PROC-%s", uuid.New().String()[:8])

	process := &ProductionProcess{
		ID:              primitive.NewObjectID(),
		ProcessID:       processID,
		BatchNumber:     batchNumber,
		ProductType:     productType,
		OperatorID:      operatorID,
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		InitialFields:   initialFields,
		Status:          ProcessStatusDraft,
		StageCount:      len(def.Stages),
		CreatedAt:       now,
		UpdatedAt:       now,
		domainEvents:    make([]DomainEvent, 0),
	}

	process.addDomainEvent(&ProcessCreatedEvent{
		ProcessID:       processID,
		BatchNumber:     batchNumber,
		ProductType:     string(productType),
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		StageCount:      len(def.Stages),
		OperatorID:      operatorID,
		CreatedAt:       now,
	})

	return process
}

// Start moves the process from draft to in_progress
func (p *ProductionProcess) Start() error {
	if p.Status != ProcessStatusDraft {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidProcessTransition, p.Status)
	}

	now := time.Now().UTC()
	p.Status = ProcessStatusInProgress
	p.StartedAt = &now
	p.UpdatedAt = now
	return nil
}

// Complete marks the process completed once every stage is done
func (p *ProductionProcess) Complete() error {
	if p.Status != ProcessStatusInProgress {
		return fmt.Errorf("%w: cannot complete from %s", ErrInvalidProcessTransition, p.Status)
	}

	now := time.Now().UTC()
	p.Status = ProcessStatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now

	p.addDomainEvent(&ProcessCompletedEvent{
		ProcessID:   p.ProcessID,
		BatchNumber: p.BatchNumber,
		ProductType: string(p.ProductType),
		CompletedAt: now,
	})

	return nil
}

// Cancel terminates the process before completion
func (p *ProductionProcess) Cancel(reason string) error {
	if p.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel from %s", ErrInvalidProcessTransition, p.Status)
	}

	now := time.Now().UTC()
	p.Status = ProcessStatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	return nil
}

// IsActive reports whether the process accepts stage work
func (p *ProductionProcess) IsActive() bool {
	return p.Status == ProcessStatusDraft || p.Status == ProcessStatusInProgress
}

func (p *ProductionProcess) addDomainEvent(event DomainEvent) {
	p.domainEvents = append(p.domainEvents, event)
}

// AddDomainEvent appends an event raised outside the aggregate's own methods
func (p *ProductionProcess) AddDomainEvent(event DomainEvent) {
	p.addDomainEvent(event)
}

// DomainEvents returns all pending domain events
func (p *ProductionProcess) DomainEvents() []DomainEvent {
	return p.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (p *ProductionProcess) ClearDomainEvents() {
	p.domainEvents = make([]DomainEvent, 0)
}

// ProcessStage is one ordered step of a production process
type ProcessStage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StageID   string             `bson:"stageId" json:"stageId"`
	ProcessID string             `bson:"processId" json:"processId"`

	Key           string `bson:"key" json:"key"`
	Label         string `bson:"label" json:"label"`
	SequenceOrder int    `bson:"sequenceOrder" json:"sequenceOrder"`

	Status StageStatus `bson:"status" json:"status"`

	IsCriticalControlPoint bool `bson:"isCriticalControlPoint" json:"isCriticalControlPoint"`
	RequiresApproval       bool `bson:"requiresApproval" json:"requiresApproval"`
	AutoDivert             bool `bson:"autoDivert" json:"autoDivert"`

	ReworkReason string `bson:"reworkReason,omitempty" json:"reworkReason,omitempty"`
	Notes        string `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	StartedAt   *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewProcessStage creates a pending stage from a definition stage
func NewProcessStage(processID string, def workflow.StageDefinition, sequenceOrder int) *ProcessStage {
	now := time.Now().UTC()
	return &ProcessStage{
		ID:                     primitive.NewObjectID(),
		StageID:                fmt.Sprintf("STG-%s", uuid.New().String()[:8]),
		ProcessID:              processID,
		Key:                    def.Key,
		Label:                  def.Label,
		SequenceOrder:          sequenceOrder,
		Status:                 StageStatusPending,
		IsCriticalControlPoint: def.IsCriticalControlPoint(),
		RequiresApproval:       def.RequiresApproval(),
		AutoDivert:             def.AutoDivert,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Start moves the stage from pending to in_progress
func (s *ProcessStage) Start() error {
	if s.Status != StageStatusPending {
		return fmt.Errorf("%w: cannot start stage %s from %s", ErrInvalidStageTransition, s.Key, s.Status)
	}

	now := time.Now().UTC()
	s.Status = StageStatusInProgress
	s.StartedAt = &now
	s.UpdatedAt = now
	return nil
}

// Complete moves the stage from in_progress to completed
func (s *ProcessStage) Complete(notes string) error {
	if s.Status != StageStatusInProgress {
		return fmt.Errorf("%w: cannot complete stage %s from %s", ErrInvalidStageTransition, s.Key, s.Status)
	}

	now := time.Now().UTC()
	s.Status = StageStatusCompleted
	s.CompletedAt = &now
	s.Notes = notes
	s.UpdatedAt = now
	return nil
}

// Rework flags the stage for rework. Always operator-initiated; an automatic
// divert only records a log entry and leaves the stage status alone.
func (s *ProcessStage) Rework(reason, notes string) error {
	if reason == "" {
		return ErrReworkReasonRequired
	}
	if s.Status != StageStatusInProgress {
		return fmt.Errorf("%w: cannot rework stage %s from %s", ErrInvalidStageTransition, s.Key, s.Status)
	}

	s.Status = StageStatusReworked
	s.ReworkReason = reason
	s.Notes = notes
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// StageMonitoringRequirement carries the tolerance bounds for one stage condition.
// Derived once at instantiation and never mutated by the progression path.
type StageMonitoringRequirement struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequirementID string             `bson:"requirementId" json:"requirementId"`
	ProcessID     string             `bson:"processId" json:"processId"`
	StageKey      string             `bson:"stageKey" json:"stageKey"`

	RequirementType workflow.RequirementType `bson:"requirementType" json:"requirementType"`
	ConditionType   workflow.ConditionType   `bson:"conditionType" json:"conditionType"`
	Metric          string                   `bson:"metric" json:"metric"`
	Unit            string                   `bson:"unit,omitempty" json:"unit,omitempty"`

	TargetValue *float64 `bson:"targetValue,omitempty" json:"targetValue,omitempty"`
	MinValue    *float64 `bson:"minValue,omitempty" json:"minValue,omitempty"`
	MaxValue    *float64 `bson:"maxValue,omitempty" json:"maxValue,omitempty"`

	ToleranceWindowSeconds int                          `bson:"toleranceWindowSeconds" json:"toleranceWindowSeconds"`
	Frequency              workflow.MonitoringFrequency `bson:"frequency" json:"frequency"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewStageMonitoringRequirement derives a requirement from a stage condition
func NewStageMonitoringRequirement(
	processID, stageKey string,
	cond workflow.Condition,
	frequency workflow.MonitoringFrequency,
) (*StageMonitoringRequirement, error) {
	requirementType, ok := workflow.RequirementTypeForMetric(cond.Metric)
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownMetric, cond.Metric)
	}

	minValue := cond.Min
	if cond.Type == workflow.ConditionHoldTimeMin {
		minValue = cond.HoldTimeMinutes
	}

	return &StageMonitoringRequirement{
		ID:                     primitive.NewObjectID(),
		RequirementID:          fmt.Sprintf("REQ-%s", uuid.New().String()[:8]),
		ProcessID:              processID,
		StageKey:               stageKey,
		RequirementType:        requirementType,
		ConditionType:          cond.Type,
		Metric:                 cond.Metric,
		Unit:                   cond.Unit,
		TargetValue:            cond.TargetValue,
		MinValue:               minValue,
		MaxValue:               cond.Max,
		ToleranceWindowSeconds: cond.ToleranceWindowSeconds,
		Frequency:              frequency,
		CreatedAt:              time.Now().UTC(),
	}, nil
}

// InTolerance evaluates a reading against the requirement's bounds.
// capture_metric requirements record values without judging them.
func (r *StageMonitoringRequirement) InTolerance(value float64) bool {
	switch r.ConditionType {
	case workflow.ConditionMinValue:
		return r.MinValue == nil || value >= *r.MinValue
	case workflow.ConditionMaxValue:
		return r.MaxValue == nil || value <= *r.MaxValue
	case workflow.ConditionRangeValue:
		if r.MinValue != nil && value < *r.MinValue {
			return false
		}
		if r.MaxValue != nil && value > *r.MaxValue {
			return false
		}
		return true
	case workflow.ConditionHoldTimeMin:
		return r.MinValue == nil || value >= *r.MinValue
	case workflow.ConditionCaptureMetric:
		return true
	}
	return true
}
