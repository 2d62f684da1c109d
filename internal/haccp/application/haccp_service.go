package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsms-platform/fsms-service/internal/haccp/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

// HACCPService manages products, hazards and CCP determination
type HACCPService struct {
	productRepo domain.ProductRepository
	hazardRepo  domain.HazardRepository
	logger      *logging.Logger
}

// NewHACCPService creates a new HACCPService
func NewHACCPService(
	productRepo domain.ProductRepository,
	hazardRepo domain.HazardRepository,
	logger *logging.Logger,
) *HACCPService {
	return &HACCPService{
		productRepo: productRepo,
		hazardRepo:  hazardRepo,
		logger:      logger,
	}
}

// CreateProduct registers a product for HACCP study
func (s *HACCPService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*ProductDTO, error) {
	product := domain.NewProduct(
		cmd.Name, cmd.Description, cmd.Category, cmd.IntendedUse, cmd.StorageMethod, cmd.HACCPPlanApproved)

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.WithError(err).Error("Failed to save product", "name", cmd.Name)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.Info("Product created",
		"productId", product.ProductID,
		"planApproved", product.HACCPPlanApproved,
	)
	return ToProductDTO(product), nil
}

// ApprovePlan approves a product's HACCP plan
func (s *HACCPService) ApprovePlan(ctx context.Context, cmd ApprovePlanCommand) (*ProductDTO, error) {
	product, err := s.findProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	if err := product.ApprovePlan(cmd.ApprovedBy); err != nil {
		return nil, apperrors.ErrConflict(err.Error())
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.WithError(err).Error("Failed to save product", "productId", cmd.ProductID)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.Audit(ctx, "haccp_plan_approved", "product", product.ProductID, cmd.ApprovedBy, map[string]any{
		"productName": product.Name,
	})
	return ToProductDTO(product), nil
}

// AddHazard records an identified hazard for a product
func (s *HACCPService) AddHazard(ctx context.Context, cmd AddHazardCommand) (*HazardDTO, error) {
	product, err := s.findProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	hazard, err := domain.NewHazard(
		product.ProductID, cmd.ProcessStep, domain.HazardType(cmd.HazardType), cmd.Description, cmd.ControlMeasure)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.hazardRepo.Save(ctx, hazard); err != nil {
		s.logger.WithError(err).Error("Failed to save hazard", "productId", cmd.ProductID)
		return nil, fmt.Errorf("failed to save hazard: %w", err)
	}

	s.logger.Info("Hazard added",
		"productId", product.ProductID,
		"hazardId", hazard.HazardID,
		"processStep", cmd.ProcessStep,
	)
	return ToHazardDTO(hazard), nil
}

// AssessHazard stores the decision tree answers and derives the ccp, oprp or
// accept classification
func (s *HACCPService) AssessHazard(ctx context.Context, cmd AssessHazardCommand) (*HazardDTO, error) {
	product, err := s.findProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	hazard, err := s.hazardRepo.FindByHazardID(ctx, cmd.HazardID)
	if err != nil {
		return nil, fmt.Errorf("failed to find hazard: %w", err)
	}
	if hazard == nil || hazard.ProductID != product.ProductID {
		return nil, apperrors.ErrNotFoundWithID("hazard", cmd.HazardID)
	}

	answers := domain.DecisionAnswers{
		ControlMeasuresExist:   cmd.ControlMeasuresExist,
		StepEliminatesHazard:   cmd.StepEliminatesHazard,
		ContaminationPossible:  cmd.ContaminationPossible,
		SubsequentStepControls: cmd.SubsequentStepControls,
	}

	if err := hazard.Assess(answers, cmd.AssessedBy); err != nil {
		if errors.Is(err, domain.ErrIncompleteAnswers) {
			return nil, apperrors.ErrValidation(err.Error())
		}
		return nil, err
	}

	if err := s.hazardRepo.Save(ctx, hazard); err != nil {
		s.logger.WithError(err).Error("Failed to save hazard", "hazardId", cmd.HazardID)
		return nil, fmt.Errorf("failed to save hazard: %w", err)
	}

	product.AddDomainEvent(&domain.HazardAssessedEvent{
		ProductID:      product.ProductID,
		HazardID:       hazard.HazardID,
		ProcessStep:    hazard.ProcessStep,
		HazardType:     string(hazard.HazardType),
		Classification: string(hazard.Classification),
		AssessedBy:     cmd.AssessedBy,
		AssessedAt:     *hazard.AssessedAt,
	})
	if hazard.Classification == domain.ClassificationCCP {
		product.AddDomainEvent(&domain.CCPDeterminedEvent{
			ProductID:    product.ProductID,
			HazardID:     hazard.HazardID,
			ProcessStep:  hazard.ProcessStep,
			Reasoning:    hazard.Reasoning,
			DeterminedAt: *hazard.AssessedAt,
		})
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		s.logger.WithError(err).Error("Failed to save product events", "productId", cmd.ProductID)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.Info("Hazard assessed",
		"productId", product.ProductID,
		"hazardId", hazard.HazardID,
		"classification", hazard.Classification,
	)
	return ToHazardDTO(hazard), nil
}

// GetProduct returns a product with its hazards
func (s *HACCPService) GetProduct(ctx context.Context, productID string) (*ProductDetailDTO, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	hazards, err := s.hazardRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find hazards: %w", err)
	}

	detail := &ProductDetailDTO{
		Product: *ToProductDTO(product),
		Hazards: make([]HazardDTO, len(hazards)),
	}
	for i, h := range hazards {
		detail.Hazards[i] = *ToHazardDTO(h)
	}
	return detail, nil
}

// ListProducts returns products matching the query with a total count
func (s *HACCPService) ListProducts(ctx context.Context, query ListProductsQuery) ([]ProductDTO, int64, error) {
	filter := domain.ProductFilter{PlanApproved: query.PlanApproved}
	if query.Category != "" {
		filter.Category = &query.Category
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, err := s.productRepo.List(ctx, filter, domain.Pagination{
		Skip:  int64((page - 1) * pageSize),
		Limit: int64(pageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = *ToProductDTO(p)
	}
	return dtos, total, nil
}

// ListCriticalControlPoints returns a product's hazards classified as CCPs
func (s *HACCPService) ListCriticalControlPoints(ctx context.Context, productID string) ([]HazardDTO, error) {
	if _, err := s.findProduct(ctx, productID); err != nil {
		return nil, err
	}

	hazards, err := s.hazardRepo.FindByClassification(ctx, productID, domain.ClassificationCCP)
	if err != nil {
		return nil, fmt.Errorf("failed to find hazards: %w", err)
	}

	dtos := make([]HazardDTO, len(hazards))
	for i, h := range hazards {
		dtos[i] = *ToHazardDTO(h)
	}
	return dtos, nil
}

func (s *HACCPService) findProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.productRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, apperrors.ErrNotFoundWithID("product", productID)
	}
	return product, nil
}
