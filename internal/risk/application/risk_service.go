package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/risk/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

// RiskService manages the risk and opportunity register
type RiskService struct {
	riskRepo domain.RiskRepository
	logger   *logging.Logger
}

// NewRiskService creates a new RiskService
func NewRiskService(riskRepo domain.RiskRepository, logger *logging.Logger) *RiskService {
	return &RiskService{
		riskRepo: riskRepo,
		logger:   logger,
	}
}

// RegisterRisk adds a risk or opportunity to the register
func (s *RiskService) RegisterRisk(ctx context.Context, cmd RegisterRiskCommand) (*RiskDTO, error) {
	existing, err := s.riskRepo.FindByRiskNumber(ctx, cmd.RiskNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check risk number: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict(fmt.Sprintf("risk number %s already registered", cmd.RiskNumber))
	}

	item, err := domain.NewRiskRegisterItem(
		cmd.RiskNumber,
		domain.ItemType(cmd.ItemType),
		cmd.Title, cmd.Description, cmd.Category,
		domain.Severity(cmd.Severity),
		domain.Likelihood(cmd.Likelihood),
		cmd.RegisteredBy,
	)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.riskRepo.Save(ctx, item); err != nil {
		s.logger.WithError(err).Error("Failed to save risk", "riskNumber", cmd.RiskNumber)
		return nil, fmt.Errorf("failed to save risk: %w", err)
	}

	s.logger.Info("Risk registered",
		"riskId", item.RiskID,
		"riskNumber", cmd.RiskNumber,
		"riskScore", item.RiskScore,
	)
	return ToRiskDTO(item), nil
}

// AssessRisk reassesses an item and recomputes its matrix score
func (s *RiskService) AssessRisk(ctx context.Context, cmd AssessRiskCommand) (*RiskDTO, error) {
	item, err := s.findRisk(ctx, cmd.RiskID)
	if err != nil {
		return nil, err
	}

	if err := item.Reassess(domain.Severity(cmd.Severity), domain.Likelihood(cmd.Likelihood), cmd.AssessedBy); err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.riskRepo.Save(ctx, item); err != nil {
		s.logger.WithError(err).Error("Failed to save risk", "riskId", cmd.RiskID)
		return nil, fmt.Errorf("failed to save risk: %w", err)
	}

	s.logger.Info("Risk assessed",
		"riskId", item.RiskID,
		"severity", cmd.Severity,
		"likelihood", cmd.Likelihood,
		"riskScore", item.RiskScore,
	)
	return ToRiskDTO(item), nil
}

// AddAction attaches an action to a register item
func (s *RiskService) AddAction(ctx context.Context, cmd AddActionCommand) (*RiskDTO, error) {
	item, err := s.findRisk(ctx, cmd.RiskID)
	if err != nil {
		return nil, err
	}

	action := item.AddAction(cmd.Description, cmd.AssigneeID, cmd.DueDate)

	if err := s.riskRepo.Save(ctx, item); err != nil {
		s.logger.WithError(err).Error("Failed to save risk", "riskId", cmd.RiskID)
		return nil, fmt.Errorf("failed to save risk: %w", err)
	}

	s.logger.Info("Risk action added",
		"riskId", item.RiskID,
		"actionId", action.ActionID,
		"assigneeId", cmd.AssigneeID,
	)
	return ToRiskDTO(item), nil
}

// CompleteAction marks an action complete
func (s *RiskService) CompleteAction(ctx context.Context, cmd CompleteActionCommand) (*RiskDTO, error) {
	item, err := s.findRisk(ctx, cmd.RiskID)
	if err != nil {
		return nil, err
	}

	if err := item.CompleteAction(cmd.ActionID); err != nil {
		if errors.Is(err, domain.ErrActionNotFound) {
			return nil, apperrors.ErrNotFoundWithID("risk action", cmd.ActionID)
		}
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.riskRepo.Save(ctx, item); err != nil {
		s.logger.WithError(err).Error("Failed to save risk", "riskId", cmd.RiskID)
		return nil, fmt.Errorf("failed to save risk: %w", err)
	}
	return ToRiskDTO(item), nil
}

// GetRisk returns a register item by ID
func (s *RiskService) GetRisk(ctx context.Context, riskID string) (*RiskDTO, error) {
	item, err := s.findRisk(ctx, riskID)
	if err != nil {
		return nil, err
	}
	return ToRiskDTO(item), nil
}

// ListRisks returns register items matching the query with a total count
func (s *RiskService) ListRisks(ctx context.Context, query ListRisksQuery) ([]RiskDTO, int64, error) {
	filter := domain.RiskFilter{}
	if query.ItemType != "" {
		itemType := domain.ItemType(query.ItemType)
		if !itemType.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid item type: %s", query.ItemType))
		}
		filter.ItemType = &itemType
	}
	if query.Severity != "" {
		severity := domain.Severity(query.Severity)
		if !severity.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid severity: %s", query.Severity))
		}
		filter.Severity = &severity
	}
	if query.Likelihood != "" {
		likelihood := domain.Likelihood(query.Likelihood)
		if !likelihood.IsValid() {
			return nil, 0, apperrors.ErrValidation(fmt.Sprintf("invalid likelihood: %s", query.Likelihood))
		}
		filter.Likelihood = &likelihood
	}
	if query.Category != "" {
		filter.Category = &query.Category
	}
	if query.MinScore > 0 {
		filter.MinScore = &query.MinScore
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, err := s.riskRepo.List(ctx, filter, domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list risks: %w", err)
	}
	total, err := s.riskRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count risks: %w", err)
	}

	dtos := make([]RiskDTO, len(items))
	for i, item := range items {
		dtos[i] = *ToRiskDTO(item)
	}
	return dtos, total, nil
}

func (s *RiskService) findRisk(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
	item, err := s.riskRepo.FindByRiskID(ctx, riskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find risk: %w", err)
	}
	if item == nil {
		return nil, apperrors.ErrNotFoundWithID("risk", riskID)
	}
	return item, nil
}
