package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/nonconformance/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
)

// NonConformanceService manages deviation records and their CAPA actions
type NonConformanceService struct {
	ncRepo  domain.NCRepository
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewNonConformanceService creates a new NonConformanceService
func NewNonConformanceService(ncRepo domain.NCRepository, logger *logging.Logger, m *metrics.Metrics) *NonConformanceService {
	return &NonConformanceService{
		ncRepo:  ncRepo,
		logger:  logger,
		metrics: m,
	}
}

// RaiseNonConformance documents a new deviation
func (s *NonConformanceService) RaiseNonConformance(ctx context.Context, cmd RaiseNonConformanceCommand) (*NonConformanceDTO, error) {
	existing, err := s.ncRepo.FindByNCNumber(ctx, cmd.NCNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check nc number: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict(fmt.Sprintf("non-conformance %s already raised", cmd.NCNumber))
	}

	nc, err := domain.NewNonConformance(
		cmd.NCNumber,
		domain.NCSource(cmd.Source),
		domain.NCSeverity(cmd.Severity),
		cmd.Title, cmd.Description, cmd.BatchNumber, cmd.ProcessID,
		cmd.RaisedBy,
	)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.ncRepo.Save(ctx, nc); err != nil {
		s.logger.WithError(err).Error("Failed to save non-conformance", "ncNumber", cmd.NCNumber)
		return nil, fmt.Errorf("failed to save non-conformance: %w", err)
	}

	s.metrics.RecordNonConformanceRaised(cmd.Source)
	s.logger.Info("Non-conformance raised",
		"ncId", nc.NCID,
		"ncNumber", cmd.NCNumber,
		"source", cmd.Source,
		"severity", cmd.Severity,
	)
	return ToNonConformanceDTO(nc), nil
}

// AdvanceNonConformance moves a record one step along its lifecycle
func (s *NonConformanceService) AdvanceNonConformance(ctx context.Context, ncID string, cmd AdvanceNonConformanceCommand) (*NonConformanceDTO, error) {
	nc, err := s.findNC(ctx, ncID)
	if err != nil {
		return nil, err
	}

	if err := nc.Advance(domain.NCStatus(cmd.Status)); err != nil {
		if errors.Is(err, domain.ErrOpenCAPAActions) {
			return nil, apperrors.ErrConflict(err.Error())
		}
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.ncRepo.Save(ctx, nc); err != nil {
		s.logger.WithError(err).Error("Failed to save non-conformance", "ncId", ncID)
		return nil, fmt.Errorf("failed to save non-conformance: %w", err)
	}

	s.logger.Info("Non-conformance advanced", "ncId", nc.NCID, "status", cmd.Status)
	return ToNonConformanceDTO(nc), nil
}

// AddCAPAAction attaches a corrective or preventive action to a record
func (s *NonConformanceService) AddCAPAAction(ctx context.Context, ncID string, cmd AddCAPAActionCommand) (*NonConformanceDTO, error) {
	nc, err := s.findNC(ctx, ncID)
	if err != nil {
		return nil, err
	}

	action, err := nc.AddAction(domain.CAPAType(cmd.ActionType), cmd.Description, cmd.AssigneeID, cmd.DueDate)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.ncRepo.Save(ctx, nc); err != nil {
		s.logger.WithError(err).Error("Failed to save non-conformance", "ncId", ncID)
		return nil, fmt.Errorf("failed to save non-conformance: %w", err)
	}

	s.logger.Info("CAPA action added",
		"ncId", nc.NCID,
		"actionId", action.ActionID,
		"actionType", cmd.ActionType,
	)
	return ToNonConformanceDTO(nc), nil
}

// CompleteCAPAAction marks a CAPA action complete
func (s *NonConformanceService) CompleteCAPAAction(ctx context.Context, ncID, actionID string) (*NonConformanceDTO, error) {
	nc, err := s.findNC(ctx, ncID)
	if err != nil {
		return nil, err
	}

	if err := nc.CompleteAction(actionID); err != nil {
		if errors.Is(err, domain.ErrCAPANotFound) {
			return nil, apperrors.ErrNotFoundWithID("capa action", actionID)
		}
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.ncRepo.Save(ctx, nc); err != nil {
		s.logger.WithError(err).Error("Failed to save non-conformance", "ncId", ncID)
		return nil, fmt.Errorf("failed to save non-conformance: %w", err)
	}
	return ToNonConformanceDTO(nc), nil
}

// GetNonConformance returns a record by ID
func (s *NonConformanceService) GetNonConformance(ctx context.Context, ncID string) (*NonConformanceDTO, error) {
	nc, err := s.findNC(ctx, ncID)
	if err != nil {
		return nil, err
	}
	return ToNonConformanceDTO(nc), nil
}

// ListNonConformances returns records matching the query with a total count
func (s *NonConformanceService) ListNonConformances(ctx context.Context, query ListNonConformancesQuery) (*NonConformanceListDTO, error) {
	filter := domain.NCFilter{}
	if query.Status != "" {
		status := domain.NCStatus(query.Status)
		if !status.IsValid() {
			return nil, apperrors.ErrValidation(fmt.Sprintf("invalid status: %s", query.Status))
		}
		filter.Status = &status
	}
	if query.Source != "" {
		source := domain.NCSource(query.Source)
		if !source.IsValid() {
			return nil, apperrors.ErrValidation(fmt.Sprintf("invalid source: %s", query.Source))
		}
		filter.Source = &source
	}
	if query.Severity != "" {
		severity := domain.NCSeverity(query.Severity)
		if !severity.IsValid() {
			return nil, apperrors.ErrValidation(fmt.Sprintf("invalid severity: %s", query.Severity))
		}
		filter.Severity = &severity
	}
	if query.BatchNumber != "" {
		filter.BatchNumber = &query.BatchNumber
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, err := s.ncRepo.List(ctx, filter, domain.Pagination{
		Skip:  (page - 1) * pageSize,
		Limit: pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list non-conformances: %w", err)
	}
	total, err := s.ncRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count non-conformances: %w", err)
	}

	items := make([]*NonConformanceDTO, len(records))
	for i, nc := range records {
		items[i] = ToNonConformanceDTO(nc)
	}
	return &NonConformanceListDTO{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *NonConformanceService) findNC(ctx context.Context, ncID string) (*domain.NonConformance, error) {
	nc, err := s.ncRepo.FindByNCID(ctx, ncID)
	if err != nil {
		return nil, fmt.Errorf("failed to find non-conformance: %w", err)
	}
	if nc == nil {
		return nil, apperrors.ErrNotFoundWithID("non-conformance", ncID)
	}
	return nc, nil
}
