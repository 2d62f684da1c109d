package application

import (
	"context"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/objectives/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

// ObjectivesService manages food safety objectives and their KPI attainment
type ObjectivesService struct {
	objectiveRepo domain.ObjectiveRepository
	targetRepo    domain.TargetRepository
	progressRepo  domain.ProgressRepository
	logger        *logging.Logger
}

// NewObjectivesService creates a new ObjectivesService
func NewObjectivesService(
	objectiveRepo domain.ObjectiveRepository,
	targetRepo domain.TargetRepository,
	progressRepo domain.ProgressRepository,
	logger *logging.Logger,
) *ObjectivesService {
	return &ObjectivesService{
		objectiveRepo: objectiveRepo,
		targetRepo:    targetRepo,
		progressRepo:  progressRepo,
		logger:        logger,
	}
}

// CreateObjective defines a new objective
func (s *ObjectivesService) CreateObjective(ctx context.Context, cmd CreateObjectiveCommand) (*ObjectiveDTO, error) {
	objective := domain.NewFoodSafetyObjective(
		cmd.Title, cmd.Description, cmd.Category, cmd.Metric, cmd.Unit, cmd.OwnerID)

	if err := s.objectiveRepo.Save(ctx, objective); err != nil {
		s.logger.WithError(err).Error("Failed to save objective", "objectiveId", objective.ObjectiveID)
		return nil, fmt.Errorf("failed to save objective: %w", err)
	}

	s.logger.Info("Objective created",
		"objectiveId", objective.ObjectiveID,
		"metric", cmd.Metric,
	)
	return ToObjectiveDTO(objective), nil
}

// SetTarget adds a period-scoped target to an objective
func (s *ObjectivesService) SetTarget(ctx context.Context, cmd SetTargetCommand) (*TargetDTO, error) {
	objective, err := s.findObjective(ctx, cmd.ObjectiveID)
	if err != nil {
		return nil, err
	}

	target, err := domain.NewObjectiveTarget(
		objective.ObjectiveID,
		cmd.PeriodStart, cmd.PeriodEnd,
		cmd.TargetValue,
		cmd.LowerThreshold, cmd.UpperThreshold,
		cmd.IsLowerBetter,
	)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.targetRepo.Save(ctx, target); err != nil {
		s.logger.WithError(err).Error("Failed to save target", "objectiveId", cmd.ObjectiveID)
		return nil, fmt.Errorf("failed to save target: %w", err)
	}

	s.logger.Info("Target set",
		"objectiveId", objective.ObjectiveID,
		"targetId", target.TargetID,
		"targetValue", cmd.TargetValue,
		"isLowerBetter", cmd.IsLowerBetter,
	)
	return ToTargetDTO(target), nil
}

// RecordProgress records a measured value. Attainment is computed against the
// target covering the period and cached on the record; no covering target
// leaves attainment and status unset.
func (s *ObjectivesService) RecordProgress(ctx context.Context, cmd RecordProgressCommand) (*ProgressDTO, error) {
	objective, err := s.findObjective(ctx, cmd.ObjectiveID)
	if err != nil {
		return nil, err
	}

	target, err := s.targetRepo.FindForPeriod(ctx, objective.ObjectiveID, cmd.PeriodDate)
	if err != nil {
		return nil, fmt.Errorf("failed to find target: %w", err)
	}

	progress := domain.NewObjectiveProgress(
		objective.ObjectiveID, target, cmd.PeriodDate, cmd.ActualValue, cmd.Notes, cmd.RecordedBy)

	if err := s.progressRepo.Save(ctx, progress); err != nil {
		s.logger.WithError(err).Error("Failed to save progress", "objectiveId", cmd.ObjectiveID)
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	event := &domain.ProgressRecordedEvent{
		ObjectiveID:       objective.ObjectiveID,
		ProgressID:        progress.ProgressID,
		ActualValue:       cmd.ActualValue,
		AttainmentPercent: progress.AttainmentPercent,
		RecordedBy:        cmd.RecordedBy,
		RecordedAt:        progress.RecordedAt,
	}
	if progress.Status != nil {
		event.Status = string(*progress.Status)
	}
	objective.AddDomainEvent(event)

	if err := s.objectiveRepo.Save(ctx, objective); err != nil {
		s.logger.WithError(err).Error("Failed to save objective events", "objectiveId", cmd.ObjectiveID)
		return nil, fmt.Errorf("failed to save objective: %w", err)
	}

	s.logger.Info("Progress recorded",
		"objectiveId", objective.ObjectiveID,
		"progressId", progress.ProgressID,
		"actualValue", cmd.ActualValue,
	)
	return ToProgressDTO(progress), nil
}

// GetObjective returns an objective with its targets and recent progress
func (s *ObjectivesService) GetObjective(ctx context.Context, objectiveID string) (*ObjectiveDetailDTO, error) {
	objective, err := s.findObjective(ctx, objectiveID)
	if err != nil {
		return nil, err
	}

	targets, err := s.targetRepo.FindByObjectiveID(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to find targets: %w", err)
	}

	progress, err := s.progressRepo.FindByObjectiveID(ctx, objectiveID, domain.Pagination{Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to find progress: %w", err)
	}

	detail := &ObjectiveDetailDTO{
		Objective: *ToObjectiveDTO(objective),
		Targets:   make([]TargetDTO, len(targets)),
		Progress:  make([]ProgressDTO, len(progress)),
	}
	for i, t := range targets {
		detail.Targets[i] = *ToTargetDTO(t)
	}
	for i, p := range progress {
		detail.Progress[i] = *ToProgressDTO(p)
	}
	return detail, nil
}

// ListObjectives returns objectives matching the query with a total count
func (s *ObjectivesService) ListObjectives(ctx context.Context, query ListObjectivesQuery) ([]ObjectiveDTO, int64, error) {
	filter := domain.ObjectiveFilter{}
	if query.Status != "" {
		status := domain.ObjectiveStatus(query.Status)
		if !status.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid status: %s", query.Status))
		}
		filter.Status = &status
	}
	if query.Category != "" {
		filter.Category = &query.Category
	}
	if query.OwnerID != "" {
		filter.OwnerID = &query.OwnerID
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	objectives, err := s.objectiveRepo.List(ctx, filter, domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list objectives: %w", err)
	}
	total, err := s.objectiveRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count objectives: %w", err)
	}

	dtos := make([]ObjectiveDTO, len(objectives))
	for i, o := range objectives {
		dtos[i] = *ToObjectiveDTO(o)
	}
	return dtos, total, nil
}

func (s *ObjectivesService) findObjective(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
	objective, err := s.objectiveRepo.FindByObjectiveID(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to find objective: %w", err)
	}
	if objective == nil {
		return nil, apperrors.ErrNotFoundWithID("objective", objectiveID)
	}
	return objective, nil
}
