package domain

import "context"

// Pagination for list queries
type Pagination struct {
	Skip  int64
	Limit int64
}

// RiskFilter narrows register list queries
type RiskFilter struct {
	ItemType   *ItemType
	Severity   *Severity
	Likelihood *Likelihood
	Category   *string
	MinScore   *int
}

// RiskRepository manages risk register persistence
type RiskRepository interface {
	// Save persists item changes and any pending domain events
	Save(ctx context.Context, item *RiskRegisterItem) error

	// FindByRiskID retrieves an item by its business identifier
	FindByRiskID(ctx context.Context, riskID string) (*RiskRegisterItem, error)

	// FindByRiskNumber retrieves an item by its register number
	FindByRiskNumber(ctx context.Context, riskNumber string) (*RiskRegisterItem, error)

	// List retrieves items matching the filter, highest score first
	List(ctx context.Context, filter RiskFilter, pagination Pagination) ([]*RiskRegisterItem, error)

	// Count counts items matching the filter
	Count(ctx context.Context, filter RiskFilter) (int64, error)
}
