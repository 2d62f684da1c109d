package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsms-platform/fsms-service/internal/production/domain"
	"github.com/fsms-platform/fsms-service/internal/production/workflow"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
)

// Stage transition actions
const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionRework   = "rework"
)

// ProcessService drives process and stage progression
type ProcessService struct {
	engine          *WorkflowEngine
	processRepo     domain.ProcessRepository
	stageRepo       domain.StageRepository
	requirementRepo domain.RequirementRepository
	logRepo         domain.ProcessLogRepository
	logger          *logging.Logger
	metrics         *metrics.Metrics
}

// NewProcessService creates a new ProcessService
func NewProcessService(
	engine *WorkflowEngine,
	processRepo domain.ProcessRepository,
	stageRepo domain.StageRepository,
	requirementRepo domain.RequirementRepository,
	logRepo domain.ProcessLogRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ProcessService {
	return &ProcessService{
		engine:          engine,
		processRepo:     processRepo,
		stageRepo:       stageRepo,
		requirementRepo: requirementRepo,
		logRepo:         logRepo,
		logger:          logger,
		metrics:         m,
	}
}

// StartProcess moves a draft process to in_progress after the readiness check
func (s *ProcessService) StartProcess(ctx context.Context, cmd StartProcessCommand) (*ProcessDTO, error) {
	process, err := s.findProcess(ctx, cmd.ProcessID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.ValidateReadiness(ctx, cmd.ProcessID); err != nil {
		return nil, err
	}

	if err := process.Start(); err != nil {
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.processRepo.Save(ctx, process); err != nil {
		s.logger.WithError(err).Error("Failed to start process", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to save process: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordProcessStarted(string(process.ProductType))
	}

	s.logger.WithBatch(process.BatchNumber).Info("Process started", "processId", process.ProcessID)
	return ToProcessDTO(process), nil
}

// CancelProcess terminates a process before completion
func (s *ProcessService) CancelProcess(ctx context.Context, cmd CancelProcessCommand) (*ProcessDTO, error) {
	process, err := s.findProcess(ctx, cmd.ProcessID)
	if err != nil {
		return nil, err
	}

	if err := process.Cancel(cmd.Reason); err != nil {
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.processRepo.Save(ctx, process); err != nil {
		s.logger.WithError(err).Error("Failed to cancel process", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to save process: %w", err)
	}

	s.logger.WithBatch(process.BatchNumber).Info("Process cancelled",
		"processId", process.ProcessID,
		"reason", cmd.Reason,
	)
	return ToProcessDTO(process), nil
}

// TransitionStage applies a start, complete or rework transition to a stage.
// Completing the last open stage completes the process.
func (s *ProcessService) TransitionStage(ctx context.Context, cmd TransitionStageCommand) (*StageDTO, error) {
	process, err := s.findProcess(ctx, cmd.ProcessID)
	if err != nil {
		return nil, err
	}
	if process.Status != domain.ProcessStatusInProgress {
		return nil, apperrors.ErrConflict(
			fmt.Sprintf("process %s is %s, stages accept transitions only while in progress",
				process.ProcessID, process.Status))
	}

	stage, err := s.stageRepo.FindByProcessAndKey(ctx, cmd.ProcessID, cmd.StageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find stage: %w", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFoundWithID("stage", cmd.StageKey)
	}

	from := stage.Status
	now := time.Now().UTC()

	switch cmd.Action {
	case ActionStart:
		err = stage.Start()
		if err == nil {
			process.AddDomainEvent(&domain.StageStartedEvent{
				ProcessID:     process.ProcessID,
				BatchNumber:   process.BatchNumber,
				StageKey:      stage.Key,
				SequenceOrder: stage.SequenceOrder,
				StartedBy:     cmd.OperatorID,
				StartedAt:     now,
			})
		}
	case ActionComplete:
		err = stage.Complete(cmd.Notes)
		if err == nil {
			process.AddDomainEvent(&domain.StageCompletedEvent{
				ProcessID:     process.ProcessID,
				BatchNumber:   process.BatchNumber,
				StageKey:      stage.Key,
				SequenceOrder: stage.SequenceOrder,
				CompletedBy:   cmd.OperatorID,
				CompletedAt:   now,
			})
		}
	case ActionRework:
		err = stage.Rework(cmd.Reason, cmd.Notes)
		if err == nil {
			process.AddDomainEvent(&domain.StageReworkedEvent{
				ProcessID:   process.ProcessID,
				BatchNumber: process.BatchNumber,
				StageKey:    stage.Key,
				Reason:      cmd.Reason,
				ReworkedBy:  cmd.OperatorID,
				ReworkedAt:  now,
			})
		}
	default:
		return nil, apperrors.ErrValidation(fmt.Sprintf("unknown action: %s", cmd.Action))
	}

	if err != nil {
		if errors.Is(err, domain.ErrInvalidStageTransition) || errors.Is(err, domain.ErrReworkReasonRequired) {
			return nil, apperrors.ErrConflict(err.Error())
		}
		return nil, err
	}

	if err := s.stageRepo.Save(ctx, stage); err != nil {
		s.logger.WithError(err).Error("Failed to save stage",
			"processId", cmd.ProcessID, "stageKey", cmd.StageKey)
		return nil, fmt.Errorf("failed to save stage: %w", err)
	}

	entry := domain.NewTransitionLogEntry(process.ProcessID, stage.Key, from, stage.Status, cmd.OperatorID, cmd.Notes)
	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to append transition log", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to append log entry: %w", err)
	}

	if cmd.Action == ActionComplete {
		if err := s.completeProcessIfDone(ctx, process); err != nil {
			return nil, err
		}
	}

	if err := s.processRepo.Save(ctx, process); err != nil {
		s.logger.WithError(err).Error("Failed to save process events", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to save process: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStageTransition(string(process.ProductType), cmd.Action)
	}

	s.logger.WithBatch(process.BatchNumber).Info("Stage transitioned",
		"processId", process.ProcessID,
		"stageKey", stage.Key,
		"from", from,
		"to", stage.Status,
		"by", cmd.OperatorID,
	)
	return ToStageDTO(stage), nil
}

// completeProcessIfDone completes the process once every stage reached a
// terminal status and at least one completed
func (s *ProcessService) completeProcessIfDone(ctx context.Context, process *domain.ProductionProcess) error {
	stages, err := s.stageRepo.FindByProcessID(ctx, process.ProcessID)
	if err != nil {
		return fmt.Errorf("failed to find stages: %w", err)
	}

	for _, stage := range stages {
		if stage.Status != domain.StageStatusCompleted {
			return nil
		}
	}

	if err := process.Complete(); err != nil {
		return apperrors.ErrConflict(err.Error())
	}
	return nil
}

// RecordReading records a monitored value, evaluates it against the
// requirement's tolerance and appends a divert log entry when an excursion
// has outlived the tolerance window. Divert never changes stage status.
func (s *ProcessService) RecordReading(ctx context.Context, cmd RecordReadingCommand) (*ReadingResultDTO, error) {
	process, err := s.findProcess(ctx, cmd.ProcessID)
	if err != nil {
		return nil, err
	}
	if process.Status != domain.ProcessStatusInProgress {
		return nil, apperrors.ErrConflict(
			fmt.Sprintf("process %s is %s, readings accepted only while in progress",
				process.ProcessID, process.Status))
	}

	req, err := s.requirementRepo.FindByRequirementID(ctx, cmd.RequirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requirement: %w", err)
	}
	if req == nil || req.ProcessID != cmd.ProcessID {
		return nil, apperrors.ErrNotFoundWithID("monitoring requirement", cmd.RequirementID)
	}

	stage, err := s.stageRepo.FindByProcessAndKey(ctx, cmd.ProcessID, req.StageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find stage: %w", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFoundWithID("stage", req.StageKey)
	}

	inTolerance := req.InTolerance(cmd.Value)
	entry := domain.NewReadingLogEntry(req, cmd.Value, inTolerance, cmd.RecordedBy)

	var history []*domain.ProcessLogEntry
	if !inTolerance && req.ToleranceWindowSeconds > 0 {
		since := entry.RecordedAt.Add(-2 * time.Duration(req.ToleranceWindowSeconds) * time.Second)
		history, err = s.logRepo.FindReadings(ctx, cmd.ProcessID, req.RequirementID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load reading history: %w", err)
		}
	}
	decision := domain.EvaluateDivert(req, stage, history, cmd.Value, entry.RecordedAt)

	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to append reading", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to append log entry: %w", err)
	}

	process.AddDomainEvent(&domain.ReadingRecordedEvent{
		ProcessID:     process.ProcessID,
		BatchNumber:   process.BatchNumber,
		StageKey:      req.StageKey,
		RequirementID: req.RequirementID,
		Metric:        req.Metric,
		Value:         cmd.Value,
		Unit:          req.Unit,
		InTolerance:   inTolerance,
		RecordedBy:    cmd.RecordedBy,
		RecordedAt:    entry.RecordedAt,
	})

	result := &ReadingResultDTO{
		Entry:       *ToLogEntryDTO(entry),
		InTolerance: inTolerance,
	}

	if decision.Divert {
		divertEntry := domain.NewDivertLogEntry(req, cmd.Value, decision.Reason)
		if err := s.logRepo.Append(ctx, divertEntry); err != nil {
			s.logger.WithError(err).Error("Failed to append divert", "processId", cmd.ProcessID)
			return nil, fmt.Errorf("failed to append log entry: %w", err)
		}

		process.AddDomainEvent(&domain.BatchDivertedEvent{
			ProcessID:     process.ProcessID,
			BatchNumber:   process.BatchNumber,
			StageKey:      req.StageKey,
			RequirementID: req.RequirementID,
			Metric:        req.Metric,
			Value:         cmd.Value,
			Reason:        decision.Reason,
			DivertedAt:    divertEntry.RecordedAt,
		})

		if s.metrics != nil {
			s.metrics.RecordDivert(string(process.ProductType), req.StageKey)
		}

		s.logger.WithBatch(process.BatchNumber).Warn("Batch diverted",
			"processId", process.ProcessID,
			"stageKey", req.StageKey,
			"metric", req.Metric,
			"value", cmd.Value,
			"reason", decision.Reason,
		)

		result.Diverted = true
		result.DivertEntry = ToLogEntryDTO(divertEntry)
	}

	if err := s.processRepo.Save(ctx, process); err != nil {
		s.logger.WithError(err).Error("Failed to save process events", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to save process: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReading(req.Metric)
	}

	return result, nil
}

// RecordLogEntry appends a transfer or yield entry to the process log
func (s *ProcessService) RecordLogEntry(ctx context.Context, cmd RecordLogEntryCommand) (*LogEntryDTO, error) {
	process, err := s.findProcess(ctx, cmd.ProcessID)
	if err != nil {
		return nil, err
	}
	if !process.IsActive() {
		return nil, apperrors.ErrConflict(
			fmt.Sprintf("process %s is %s", process.ProcessID, process.Status))
	}

	stage, err := s.stageRepo.FindByProcessAndKey(ctx, cmd.ProcessID, cmd.StageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find stage: %w", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFoundWithID("stage", cmd.StageKey)
	}

	var entry *domain.ProcessLogEntry
	switch domain.LogEventType(cmd.EventType) {
	case domain.LogEventTransfer:
		entry = domain.NewTransferLogEntry(cmd.ProcessID, cmd.StageKey, cmd.Destination, cmd.Quantity, cmd.Unit, cmd.RecordedBy)
	case domain.LogEventYield:
		entry = domain.NewYieldLogEntry(cmd.ProcessID, cmd.StageKey, cmd.Quantity, cmd.Unit, cmd.RecordedBy)
	default:
		return nil, apperrors.ErrValidation(fmt.Sprintf("unsupported log event type: %s", cmd.EventType))
	}

	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to append log entry", "processId", cmd.ProcessID)
		return nil, fmt.Errorf("failed to append log entry: %w", err)
	}
	return ToLogEntryDTO(entry), nil
}

// GetProcess returns a process with its stages and requirements
func (s *ProcessService) GetProcess(ctx context.Context, processID string) (*ProcessDetailDTO, error) {
	process, err := s.findProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	stages, err := s.stageRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to find stages: %w", err)
	}
	requirements, err := s.requirementRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requirements: %w", err)
	}

	return buildProcessDetail(process, stages, requirements), nil
}

// ListProcesses returns processes matching the query with a total count
func (s *ProcessService) ListProcesses(ctx context.Context, query ListProcessesQuery) ([]ProcessDTO, int64, error) {
	filter := domain.ProcessFilter{}
	if query.Status != "" {
		status := domain.ProcessStatus(query.Status)
		if !status.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid status: %s", query.Status))
		}
		filter.Status = &status
	}
	if query.ProductType != "" {
		pt := workflow.ProductType(query.ProductType)
		if !pt.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid product type: %s", query.ProductType))
		}
		filter.ProductType = &pt
	}
	if query.BatchNumber != "" {
		filter.BatchNumber = &query.BatchNumber
	}
	if query.OperatorID != "" {
		filter.OperatorID = &query.OperatorID
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	pagination := domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	}

	processes, err := s.processRepo.List(ctx, filter, pagination)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list processes: %w", err)
	}
	total, err := s.processRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count processes: %w", err)
	}

	dtos := make([]ProcessDTO, len(processes))
	for i, p := range processes {
		dtos[i] = *ToProcessDTO(p)
	}
	return dtos, total, nil
}

// GetProcessLog returns the process log, newest first
func (s *ProcessService) GetProcessLog(ctx context.Context, processID string, page, pageSize int) ([]LogEntryDTO, error) {
	if _, err := s.findProcess(ctx, processID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	entries, err := s.logRepo.FindByProcessID(ctx, processID, domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find log entries: %w", err)
	}

	dtos := make([]LogEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = *ToLogEntryDTO(e)
	}
	return dtos, nil
}

// GetProcessSummary aggregates stage status counts, divert counts and the
// latest reading per requirement
func (s *ProcessService) GetProcessSummary(ctx context.Context, processID string) (*ProcessSummaryDTO, error) {
	process, err := s.findProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	stages, err := s.stageRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to find stages: %w", err)
	}

	stagesByStatus := make(map[string]int)
	for _, stage := range stages {
		stagesByStatus[string(stage.Status)]++
	}

	divertCount, err := s.logRepo.CountByEventType(ctx, processID, domain.LogEventDivert)
	if err != nil {
		return nil, fmt.Errorf("failed to count diverts: %w", err)
	}
	readingCount, err := s.logRepo.CountByEventType(ctx, processID, domain.LogEventReading)
	if err != nil {
		return nil, fmt.Errorf("failed to count readings: %w", err)
	}

	requirements, err := s.requirementRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to find requirements: %w", err)
	}

	latest := make([]RequirementReadingDTO, 0, len(requirements))
	for _, req := range requirements {
		reading := RequirementReadingDTO{
			RequirementID: req.RequirementID,
			StageKey:      req.StageKey,
			Metric:        req.Metric,
			Unit:          req.Unit,
		}
		entries, err := s.logRepo.FindReadings(ctx, processID, req.RequirementID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("failed to find readings: %w", err)
		}
		if len(entries) > 0 {
			newest := entries[0]
			reading.Value = newest.Value
			reading.InTolerance = newest.InTolerance
			reading.RecordedAt = &newest.RecordedAt
		}
		latest = append(latest, reading)
	}

	return &ProcessSummaryDTO{
		ProcessID:      process.ProcessID,
		BatchNumber:    process.BatchNumber,
		Status:         string(process.Status),
		StagesByStatus: stagesByStatus,
		DivertCount:    divertCount,
		ReadingCount:   readingCount,
		LatestReadings: latest,
	}, nil
}

func (s *ProcessService) findProcess(ctx context.Context, processID string) (*domain.ProductionProcess, error) {
	process, err := s.processRepo.FindByProcessID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to find process: %w", err)
	}
	if process == nil {
		return nil, apperrors.ErrNotFoundWithID("process", processID)
	}
	return process, nil
}
