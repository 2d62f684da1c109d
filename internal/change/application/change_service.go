package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/change/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
)

// ChangeService drives the change approval state machine
type ChangeService struct {
	changeRepo domain.ChangeRepository
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewChangeService creates a new ChangeService
func NewChangeService(changeRepo domain.ChangeRepository, logger *logging.Logger, m *metrics.Metrics) *ChangeService {
	return &ChangeService{
		changeRepo: changeRepo,
		logger:     logger,
		metrics:    m,
	}
}

// CreateChange submits a change request with its approval chain
func (s *ChangeService) CreateChange(ctx context.Context, cmd CreateChangeCommand) (*ChangeDTO, error) {
	existing, err := s.changeRepo.FindByChangeNumber(ctx, cmd.ChangeNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check change number: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict(fmt.Sprintf("change number %s already exists", cmd.ChangeNumber))
	}

	approvers := make([]domain.ApproverSpec, len(cmd.Approvers))
	for i, a := range cmd.Approvers {
		approvers[i] = domain.ApproverSpec{Sequence: a.Sequence, ApproverID: a.ApproverID}
	}

	change, err := domain.NewChangeRequest(
		cmd.ChangeNumber, cmd.Title, cmd.Description, cmd.Reason, cmd.RequestedBy, approvers)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.changeRepo.Save(ctx, change); err != nil {
		s.logger.WithError(err).Error("Failed to save change", "changeNumber", cmd.ChangeNumber)
		return nil, fmt.Errorf("failed to save change: %w", err)
	}

	s.logger.Info("Change submitted",
		"changeId", change.ChangeID,
		"changeNumber", cmd.ChangeNumber,
		"approvers", len(approvers),
	)
	return ToChangeDTO(change), nil
}

// ApproveStep decides the earliest pending approval step. The save is
// conditioned on the step still being pending in storage, so two racing
// decisions on the same step cannot both win.
func (s *ChangeService) ApproveStep(ctx context.Context, cmd ApproveStepCommand) (*ChangeDTO, error) {
	change, err := s.findChange(ctx, cmd.ChangeID)
	if err != nil {
		return nil, err
	}

	sequence, err := change.DecideStep(
		cmd.ApproverID, cmd.Sequence, domain.ApprovalDecision(cmd.Decision), cmd.Comments)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPendingApproval):
			return nil, apperrors.ErrConflict(err.Error())
		case errors.Is(err, domain.ErrNotAssignedApprover):
			return nil, apperrors.ErrForbidden(err.Error())
		case errors.Is(err, domain.ErrInvalidChangeTransition):
			return nil, apperrors.ErrConflict(err.Error())
		default:
			return nil, apperrors.ErrValidation(err.Error())
		}
	}

	if err := s.changeRepo.SaveWithPendingStep(ctx, change, sequence); err != nil {
		if errors.Is(err, domain.ErrConcurrentDecision) {
			return nil, apperrors.ErrConflict(
				fmt.Sprintf("approval step %d was already decided", sequence))
		}
		s.logger.WithError(err).Error("Failed to save change", "changeId", cmd.ChangeID)
		return nil, fmt.Errorf("failed to save change: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordChangeDecision(cmd.Decision)
	}

	s.logger.Info("Approval step decided",
		"changeId", change.ChangeID,
		"sequence", sequence,
		"decision", cmd.Decision,
		"status", change.Status,
	)
	return ToChangeDTO(change), nil
}

// ImplementChange marks an approved change implemented
func (s *ChangeService) ImplementChange(ctx context.Context, cmd ImplementChangeCommand) (*ChangeDTO, error) {
	change, err := s.findChange(ctx, cmd.ChangeID)
	if err != nil {
		return nil, err
	}

	if err := change.Implement(cmd.ImplementedBy); err != nil {
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.changeRepo.Save(ctx, change); err != nil {
		s.logger.WithError(err).Error("Failed to save change", "changeId", cmd.ChangeID)
		return nil, fmt.Errorf("failed to save change: %w", err)
	}

	s.logger.Info("Change implemented", "changeId", change.ChangeID)
	return ToChangeDTO(change), nil
}

// VerifyChange verifies and closes an implemented change
func (s *ChangeService) VerifyChange(ctx context.Context, cmd VerifyChangeCommand) (*ChangeDTO, error) {
	change, err := s.findChange(ctx, cmd.ChangeID)
	if err != nil {
		return nil, err
	}

	if err := change.VerifyAndClose(cmd.VerifiedBy); err != nil {
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.changeRepo.Save(ctx, change); err != nil {
		s.logger.WithError(err).Error("Failed to save change", "changeId", cmd.ChangeID)
		return nil, fmt.Errorf("failed to save change: %w", err)
	}

	s.logger.Info("Change verified and closed", "changeId", change.ChangeID)
	return ToChangeDTO(change), nil
}

// GetChange returns a change request by ID
func (s *ChangeService) GetChange(ctx context.Context, changeID string) (*ChangeDTO, error) {
	change, err := s.findChange(ctx, changeID)
	if err != nil {
		return nil, err
	}
	return ToChangeDTO(change), nil
}

// ListChanges returns change requests matching the query with a total count
func (s *ChangeService) ListChanges(ctx context.Context, query ListChangesQuery) ([]ChangeDTO, int64, error) {
	filter := domain.ChangeFilter{}
	if query.Status != "" {
		status := domain.ChangeStatus(query.Status)
		if !status.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid status: %s", query.Status))
		}
		filter.Status = &status
	}
	if query.RequestedBy != "" {
		filter.RequestedBy = &query.RequestedBy
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	changes, err := s.changeRepo.List(ctx, filter, domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list changes: %w", err)
	}
	total, err := s.changeRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count changes: %w", err)
	}

	dtos := make([]ChangeDTO, len(changes))
	for i, c := range changes {
		dtos[i] = *ToChangeDTO(c)
	}
	return dtos, total, nil
}

func (s *ChangeService) findChange(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
	change, err := s.changeRepo.FindByChangeID(ctx, changeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find change: %w", err)
	}
	if change == nil {
		return nil, apperrors.ErrNotFoundWithID("change request", changeID)
	}
	return change, nil
}
