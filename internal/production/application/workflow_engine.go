package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/production/domain"
	"github.com/fsms-platform/fsms-service/internal/production/workflow"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
)

// DefinitionLoader resolves workflow definitions per product type
type DefinitionLoader interface {
	LoadWorkflow(productType workflow.ProductType) (*workflow.Definition, error)
	LoadAll() (map[workflow.ProductType]*workflow.Definition, error)
}

// WorkflowEngine instantiates workflow definitions into production processes
type WorkflowEngine struct {
	loader          DefinitionLoader
	processRepo     domain.ProcessRepository
	stageRepo       domain.StageRepository
	requirementRepo domain.RequirementRepository
	logger          *logging.Logger
	metrics         *metrics.Metrics
}

// NewWorkflowEngine creates a new WorkflowEngine
func NewWorkflowEngine(
	loader DefinitionLoader,
	processRepo domain.ProcessRepository,
	stageRepo domain.StageRepository,
	requirementRepo domain.RequirementRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *WorkflowEngine {
	return &WorkflowEngine{
		loader:          loader,
		processRepo:     processRepo,
		stageRepo:       stageRepo,
		requirementRepo: requirementRepo,
		logger:          logger,
		metrics:         m,
	}
}

// GetWorkflow returns the definition for a product type
func (e *WorkflowEngine) GetWorkflow(productType string) (*workflow.Definition, error) {
	pt := workflow.ProductType(productType)
	if !pt.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("unsupported product type: %s", productType))
	}

	def, err := e.loader.LoadWorkflow(pt)
	if err != nil {
		if errors.Is(err, workflow.ErrDefinitionNotFound) {
			return nil, apperrors.ErrNotFoundWithID("workflow definition", productType)
		}
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return def, nil
}

// ListWorkflows returns the catalog of available workflow definitions
func (e *WorkflowEngine) ListWorkflows() ([]WorkflowCatalogEntryDTO, error) {
	defs, err := e.loader.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow catalog: %w", err)
	}

	catalog := make([]WorkflowCatalogEntryDTO, 0, len(defs))
	for _, pt := range workflow.SupportedProductTypes() {
		def, ok := defs[pt]
		if !ok {
			continue
		}
		catalog = append(catalog, ToWorkflowCatalogEntryDTO(pt, def))
	}
	return catalog, nil
}

// InstantiateProcess creates a draft process with its stages and monitoring
// requirements from the product type's workflow definition. All writes happen
// in one transaction.
func (e *WorkflowEngine) InstantiateProcess(ctx context.Context, cmd InstantiateProcessCommand) (*ProcessDetailDTO, error) {
	pt := workflow.ProductType(cmd.ProductType)
	if !pt.IsValid() {
		return nil, apperrors.ErrValidation(fmt.Sprintf("unsupported product type: %s", cmd.ProductType))
	}

	def, err := e.loader.LoadWorkflow(pt)
	if err != nil {
		if errors.Is(err, workflow.ErrDefinitionNotFound) {
			return nil, apperrors.ErrNotFoundWithID("workflow definition", cmd.ProductType)
		}
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	process := domain.NewProductionProcess(cmd.BatchNumber, cmd.OperatorID, pt, def, cmd.InitialFields)

	stages := make([]*domain.ProcessStage, 0, len(def.Stages))
	requirements := make([]*domain.StageMonitoringRequirement, 0)
	for i, stageDef := range def.Stages {
		stage := domain.NewProcessStage(process.ProcessID, stageDef, i+1)
		stages = append(stages, stage)

		frequency := stageDef.Sampling.Frequency()
		for _, cond := range stageDef.Conditions {
			req, err := domain.NewStageMonitoringRequirement(process.ProcessID, stageDef.Key, cond, frequency)
			if err != nil {
				return nil, apperrors.ErrValidation(err.Error())
			}
			requirements = append(requirements, req)
		}
	}

	if err := e.processRepo.Instantiate(ctx, process, stages, requirements); err != nil {
		e.logger.WithError(err).Error("Failed to instantiate process",
			"processId", process.ProcessID,
			"batchNumber", cmd.BatchNumber,
		)
		return nil, fmt.Errorf("failed to instantiate process: %w", err)
	}

	e.logger.WithBatch(cmd.BatchNumber).Info("Process instantiated",
		"processId", process.ProcessID,
		"productType", cmd.ProductType,
		"stages", len(stages),
		"requirements", len(requirements),
	)

	return buildProcessDetail(process, stages, requirements), nil
}

// ValidateReadiness checks that the earliest-sequence stage has at least one
// monitoring requirement before the process may start
func (e *WorkflowEngine) ValidateReadiness(ctx context.Context, processID string) error {
	process, err := e.processRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if process == nil {
		return apperrors.ErrNotFoundWithID("process", processID)
	}

	stages, err := e.stageRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return fmt.Errorf("failed to find stages: %w", err)
	}
	if len(stages) == 0 {
		return apperrors.ErrValidation("process has no stages")
	}

	first := stages[0]
	for _, s := range stages[1:] {
		if s.SequenceOrder < first.SequenceOrder {
			first = s
		}
	}

	reqs, err := e.requirementRepo.FindByProcessAndStage(ctx, processID, first.Key)
	if err != nil {
		return fmt.Errorf("failed to find requirements: %w", err)
	}
	if len(reqs) == 0 {
		return apperrors.ErrValidation(
			fmt.Sprintf("first stage %s has no monitoring requirements", first.Key))
	}
	return nil
}

func buildProcessDetail(
	process *domain.ProductionProcess,
	stages []*domain.ProcessStage,
	requirements []*domain.StageMonitoringRequirement,
) *ProcessDetailDTO {
	detail := &ProcessDetailDTO{
		Process:      *ToProcessDTO(process),
		Stages:       make([]StageDTO, len(stages)),
		Requirements: make([]RequirementDTO, len(requirements)),
	}
	for i, s := range stages {
		detail.Stages[i] = *ToStageDTO(s)
	}
	for i, r := range requirements {
		detail.Requirements[i] = *ToRequirementDTO(r)
	}
	return detail
}
