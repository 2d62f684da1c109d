package domain

import "context"

// Pagination for list queries
type Pagination struct {
	Skip  int64
	Limit int64
}

// ProductFilter narrows product list queries
type ProductFilter struct {
	Category     *string
	PlanApproved *bool
}

// ProductRepository manages HACCP product persistence
type ProductRepository interface {
	// Save persists product changes and any pending domain events
	Save(ctx context.Context, product *Product) error

	// FindByProductID retrieves a product by its business identifier
	FindByProductID(ctx context.Context, productID string) (*Product, error)

	// List retrieves products matching the filter
	List(ctx context.Context, filter ProductFilter, pagination Pagination) ([]*Product, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter ProductFilter) (int64, error)
}

// HazardRepository manages hazard persistence
type HazardRepository interface {
	// Save persists a hazard
	Save(ctx context.Context, hazard *Hazard) error

	// FindByHazardID retrieves a hazard by its business identifier
	FindByHazardID(ctx context.Context, hazardID string) (*Hazard, error)

	// FindByProductID retrieves all hazards of a product
	FindByProductID(ctx context.Context, productID string) ([]*Hazard, error)

	// FindByClassification retrieves a product's hazards with one classification
	FindByClassification(ctx context.Context, productID string, classification Classification) ([]*Hazard, error)
}
