package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/production/domain"
	"github.com/fsms-platform/fsms-service/internal/production/workflow"
)

// InstantiateProcessCommand creates a production process from a workflow definition
type InstantiateProcessCommand struct {
	BatchNumber   string                 `json:"batchNumber" binding:"required"`
	ProductType   string                 `json:"productType" binding:"required"`
	OperatorID    string                 `json:"operatorId" binding:"required"`
	InitialFields map[string]interface{} `json:"initialFields,omitempty"`
}

// StartProcessCommand moves a draft process to in_progress
type StartProcessCommand struct {
	ProcessID string `json:"-"`
}

// CancelProcessCommand cancels a process before completion
type CancelProcessCommand struct {
	ProcessID string `json:"-"`
	Reason    string `json:"reason" binding:"required"`
}

// TransitionStageCommand applies one stage transition
type TransitionStageCommand struct {
	ProcessID  string `json:"-"`
	StageKey   string `json:"-"`
	Action     string `json:"action" binding:"required,oneof=start complete rework"`
	Reason     string `json:"reason,omitempty"`
	Notes      string `json:"notes,omitempty"`
	OperatorID string `json:"operatorId" binding:"required"`
}

// RecordReadingCommand records a monitored value against a requirement
type RecordReadingCommand struct {
	ProcessID     string  `json:"-"`
	RequirementID string  `json:"requirementId" binding:"required"`
	Value         float64 `json:"value"`
	RecordedBy    string  `json:"recordedBy" binding:"required"`
}

// RecordLogEntryCommand appends a transfer or yield entry to the process log
type RecordLogEntryCommand struct {
	ProcessID   string  `json:"-"`
	StageKey    string  `json:"stageKey" binding:"required"`
	EventType   string  `json:"eventType" binding:"required,oneof=transfer yield"`
	Quantity    float64 `json:"quantity" binding:"required"`
	Unit        string  `json:"unit" binding:"required"`
	Destination string  `json:"destination,omitempty"`
	RecordedBy  string  `json:"recordedBy" binding:"required"`
}

// ListProcessesQuery filters the process list
type ListProcessesQuery struct {
	Status      string
	ProductType string
	BatchNumber string
	OperatorID  string
	Page        int
	PageSize    int
}

// ProcessDTO is the API representation of a production process
type ProcessDTO struct {
	ProcessID       string                 `json:"processId"`
	BatchNumber     string                 `json:"batchNumber"`
	ProductType     string                 `json:"productType"`
	OperatorID      string                 `json:"operatorId"`
	WorkflowName    string                 `json:"workflowName"`
	WorkflowVersion string                 `json:"workflowVersion"`
	InitialFields   map[string]interface{} `json:"initialFields,omitempty"`
	Status          string                 `json:"status"`
	StageCount      int                    `json:"stageCount"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	StartedAt       *time.Time             `json:"startedAt,omitempty"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	CancelledAt     *time.Time             `json:"cancelledAt,omitempty"`
	CancelReason    string                 `json:"cancelReason,omitempty"`
}

// StageDTO is the API representation of a process stage
type StageDTO struct {
	StageID                string     `json:"stageId"`
	ProcessID              string     `json:"processId"`
	Key                    string     `json:"key"`
	Label                  string     `json:"label"`
	SequenceOrder          int        `json:"sequenceOrder"`
	Status                 string     `json:"status"`
	IsCriticalControlPoint bool       `json:"isCriticalControlPoint"`
	RequiresApproval       bool       `json:"requiresApproval"`
	AutoDivert             bool       `json:"autoDivert"`
	ReworkReason           string     `json:"reworkReason,omitempty"`
	Notes                  string     `json:"notes,omitempty"`
	StartedAt              *time.Time `json:"startedAt,omitempty"`
	CompletedAt            *time.Time `json:"completedAt,omitempty"`
}

// RequirementDTO is the API representation of a monitoring requirement
type RequirementDTO struct {
	RequirementID          string   `json:"requirementId"`
	ProcessID              string   `json:"processId"`
	StageKey               string   `json:"stageKey"`
	RequirementType        string   `json:"requirementType"`
	ConditionType          string   `json:"conditionType"`
	Metric                 string   `json:"metric"`
	Unit                   string   `json:"unit,omitempty"`
	TargetValue            *float64 `json:"targetValue,omitempty"`
	MinValue               *float64 `json:"minValue,omitempty"`
	MaxValue               *float64 `json:"maxValue,omitempty"`
	ToleranceWindowSeconds int      `json:"toleranceWindowSeconds"`
	Frequency              string   `json:"frequency"`
}

// LogEntryDTO is the API representation of a process log entry
type LogEntryDTO struct {
	LogID         string    `json:"logId"`
	ProcessID     string    `json:"processId"`
	StageKey      string    `json:"stageKey,omitempty"`
	EventType     string    `json:"eventType"`
	RequirementID string    `json:"requirementId,omitempty"`
	Metric        string    `json:"metric,omitempty"`
	Value         *float64  `json:"value,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	InTolerance   *bool     `json:"inTolerance,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	RecordedBy    string    `json:"recordedBy"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// ReadingResultDTO is the outcome of recording a reading
type ReadingResultDTO struct {
	Entry       LogEntryDTO  `json:"entry"`
	InTolerance bool         `json:"inTolerance"`
	Diverted    bool         `json:"diverted"`
	DivertEntry *LogEntryDTO `json:"divertEntry,omitempty"`
}

// ProcessDetailDTO bundles a process with its stages and requirements
type ProcessDetailDTO struct {
	Process      ProcessDTO       `json:"process"`
	Stages       []StageDTO       `json:"stages"`
	Requirements []RequirementDTO `json:"requirements"`
}

// ProcessSummaryDTO aggregates process state for dashboards
type ProcessSummaryDTO struct {
	ProcessID      string                  `json:"processId"`
	BatchNumber    string                  `json:"batchNumber"`
	Status         string                  `json:"status"`
	StagesByStatus map[string]int          `json:"stagesByStatus"`
	DivertCount    int64                   `json:"divertCount"`
	ReadingCount   int64                   `json:"readingCount"`
	LatestReadings []RequirementReadingDTO `json:"latestReadings"`
}

// RequirementReadingDTO pairs a requirement with its most recent reading
type RequirementReadingDTO struct {
	RequirementID string     `json:"requirementId"`
	StageKey      string     `json:"stageKey"`
	Metric        string     `json:"metric"`
	Value         *float64   `json:"value,omitempty"`
	Unit          string     `json:"unit,omitempty"`
	InTolerance   *bool      `json:"inTolerance,omitempty"`
	RecordedAt    *time.Time `json:"recordedAt,omitempty"`
}

// WorkflowCatalogEntryDTO describes one available workflow definition
type WorkflowCatalogEntryDTO struct {
	ProductType string `json:"productType"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	StageCount  int    `json:"stageCount"`
}

// ToProcessDTO converts a process to its DTO
func ToProcessDTO(p *domain.ProductionProcess) *ProcessDTO {
	return &ProcessDTO{
		ProcessID:       p.ProcessID,
		BatchNumber:     p.BatchNumber,
		ProductType:     string(p.ProductType),
		OperatorID:      p.OperatorID,
		WorkflowName:    p.WorkflowName,
		WorkflowVersion: p.WorkflowVersion,
		InitialFields:   p.InitialFields,
		Status:          string(p.Status),
		StageCount:      p.StageCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
		CancelledAt:     p.CancelledAt,
		CancelReason:    p.CancelReason,
	}
}

// ToStageDTO converts a stage to its DTO
func ToStageDTO(s *domain.ProcessStage) *StageDTO {
	return &StageDTO{
		StageID:                s.StageID,
		ProcessID:              s.ProcessID,
		Key:                    s.Key,
		Label:                  s.Label,
		SequenceOrder:          s.SequenceOrder,
		Status:                 string(s.Status),
		IsCriticalControlPoint: s.IsCriticalControlPoint,
		RequiresApproval:       s.RequiresApproval,
		AutoDivert:             s.AutoDivert,
		ReworkReason:           s.ReworkReason,
		Notes:                  s.Notes,
		StartedAt:              s.StartedAt,
		CompletedAt:            s.CompletedAt,
	}
}

// ToRequirementDTO converts a monitoring requirement to its DTO
func ToRequirementDTO(r *domain.StageMonitoringRequirement) *RequirementDTO {
	return &RequirementDTO{
		RequirementID:          r.RequirementID,
		ProcessID:              r.ProcessID,
		StageKey:               r.StageKey,
		RequirementType:        string(r.RequirementType),
		ConditionType:          string(r.ConditionType),
		Metric:                 r.Metric,
		Unit:                   r.Unit,
		TargetValue:            r.TargetValue,
		MinValue:               r.MinValue,
		MaxValue:               r.MaxValue,
		ToleranceWindowSeconds: r.ToleranceWindowSeconds,
		Frequency:              string(r.Frequency),
	}
}

// ToLogEntryDTO converts a log entry to its DTO
func ToLogEntryDTO(e *domain.ProcessLogEntry) *LogEntryDTO {
	return &LogEntryDTO{
		LogID:         e.LogID,
		ProcessID:     e.ProcessID,
		StageKey:      e.StageKey,
		EventType:     string(e.EventType),
		RequirementID: e.RequirementID,
		Metric:        e.Metric,
		Value:         e.Value,
		Unit:          e.Unit,
		InTolerance:   e.InTolerance,
		Reason:        e.Reason,
		Notes:         e.Notes,
		RecordedBy:    e.RecordedBy,
		RecordedAt:    e.RecordedAt,
	}
}

// ToWorkflowCatalogEntryDTO converts a definition to a catalog entry
func ToWorkflowCatalogEntryDTO(productType workflow.ProductType, def *workflow.Definition) WorkflowCatalogEntryDTO {
	return WorkflowCatalogEntryDTO{
		ProductType: string(productType),
		Name:        def.Name,
		Version:     def.Version,
		StageCount:  len(def.Stages),
	}
}
