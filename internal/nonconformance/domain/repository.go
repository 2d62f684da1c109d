package domain

import (
	"context"
	"time"
)

// Pagination bounds a list query
type Pagination struct {
	Skip  int64
	Limit int64
}

// NCFilter narrows non-conformance list queries
type NCFilter struct {
	Status      *NCStatus
	Source      *NCSource
	Severity    *NCSeverity
	BatchNumber *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// NCRepository persists non-conformance records
type NCRepository interface {
	Save(ctx context.Context, nc *NonConformance) error
	FindByNCID(ctx context.Context, ncID string) (*NonConformance, error)
	FindByNCNumber(ctx context.Context, ncNumber string) (*NonConformance, error)
	List(ctx context.Context, filter NCFilter, page Pagination) ([]*NonConformance, error)
	Count(ctx context.Context, filter NCFilter) (int64, error)
}
