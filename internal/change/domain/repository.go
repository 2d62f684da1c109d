package domain

import (
	"context"
	"errors"
)

// ErrConcurrentDecision is returned when a step was decided by another caller
// between load and save
var ErrConcurrentDecision = errors.New("approval step already decided concurrently")

// Pagination for list queries
type Pagination struct {
	Skip  int64
	Limit int64
}

// ChangeFilter narrows change list queries
type ChangeFilter struct {
	Status      *ChangeStatus
	RequestedBy *string
}

// ChangeRepository manages change request persistence
type ChangeRepository interface {
	// Save persists change request state and any pending domain events
	Save(ctx context.Context, change *ChangeRequest) error

	// SaveWithPendingStep persists the change only if the given approval step
	// is still pending in storage, returning ErrConcurrentDecision otherwise
	SaveWithPendingStep(ctx context.Context, change *ChangeRequest, sequence int) error

	// FindByChangeID retrieves a change by its business identifier
	FindByChangeID(ctx context.Context, changeID string) (*ChangeRequest, error)

	// FindByChangeNumber retrieves a change by its request number
	FindByChangeNumber(ctx context.Context, changeNumber string) (*ChangeRequest, error)

	// List retrieves changes matching the filter
	List(ctx context.Context, filter ChangeFilter, pagination Pagination) ([]*ChangeRequest, error)

	// Count counts changes matching the filter
	Count(ctx context.Context, filter ChangeFilter) (int64, error)
}
