package domain

import (
	"context"
	"time"

	"github.com/fsms-platform/fsms-service/internal/production/workflow"
)

// Pagination for list queries
type Pagination struct {
	Skip  int64
	Limit int64
}

// ProcessFilter narrows process list queries
type ProcessFilter struct {
	Status      *ProcessStatus
	ProductType *workflow.ProductType
	BatchNumber *string
	OperatorID  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ProcessRepository manages production process persistence
type ProcessRepository interface {
	// Instantiate persists a new process with its stages and monitoring
	// requirements in a single transaction, alongside its outbox events
	Instantiate(ctx context.Context, process *ProductionProcess, stages []*ProcessStage, requirements []*StageMonitoringRequirement) error

	// Save persists process changes and any pending domain events
	Save(ctx context.Context, process *ProductionProcess) error

	// FindByProcessID retrieves a process by its business identifier
	FindByProcessID(ctx context.Context, processID string) (*ProductionProcess, error)

	// FindByBatchNumber retrieves processes for a batch
	FindByBatchNumber(ctx context.Context, batchNumber string) ([]*ProductionProcess, error)

	// List retrieves processes matching the filter
	List(ctx context.Context, filter ProcessFilter, pagination Pagination) ([]*ProductionProcess, error)

	// Count counts processes matching the filter
	Count(ctx context.Context, filter ProcessFilter) (int64, error)
}

// StageRepository manages process stage persistence
type StageRepository interface {
	// Save persists stage changes
	Save(ctx context.Context, stage *ProcessStage) error

	// FindByProcessID retrieves all stages of a process ordered by sequence
	FindByProcessID(ctx context.Context, processID string) ([]*ProcessStage, error)

	// FindByProcessAndKey retrieves one stage of a process
	FindByProcessAndKey(ctx context.Context, processID, stageKey string) (*ProcessStage, error)
}

// RequirementRepository manages monitoring requirement persistence
type RequirementRepository interface {
	// FindByRequirementID retrieves a requirement by its business identifier
	FindByRequirementID(ctx context.Context, requirementID string) (*StageMonitoringRequirement, error)

	// FindByProcessID retrieves all requirements of a process
	FindByProcessID(ctx context.Context, processID string) ([]*StageMonitoringRequirement, error)

	// FindByProcessAndStage retrieves the requirements of one stage
	FindByProcessAndStage(ctx context.Context, processID, stageKey string) ([]*StageMonitoringRequirement, error)
}

// ProcessLogRepository manages the append-only process log
type ProcessLogRepository interface {
	// Append records a log entry. Entries are immutable once written.
	Append(ctx context.Context, entry *ProcessLogEntry) error

	// FindByProcessID retrieves log entries for a process, newest first
	FindByProcessID(ctx context.Context, processID string, pagination Pagination) ([]*ProcessLogEntry, error)

	// FindReadings retrieves reading entries for a requirement recorded at or
	// after since, newest first
	FindReadings(ctx context.Context, processID, requirementID string, since time.Time) ([]*ProcessLogEntry, error)

	// CountByEventType counts entries of one event type for a process
	CountByEventType(ctx context.Context, processID string, eventType LogEventType) (int64, error)
}
