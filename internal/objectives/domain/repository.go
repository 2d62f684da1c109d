package domain

import (
	"context"
	"time"
)

// Pagination for list queries
type Pagination struct {
	Skip  int64
	Limit int64
}

// ObjectiveFilter narrows objective list queries
type ObjectiveFilter struct {
	Status   *ObjectiveStatus
	Category *string
	OwnerID  *string
}

// ObjectiveRepository manages food safety objective persistence
type ObjectiveRepository interface {
	// Save persists objective changes and any pending domain events
	Save(ctx context.Context, objective *FoodSafetyObjective) error

	// FindByObjectiveID retrieves an objective by its business identifier
	FindByObjectiveID(ctx context.Context, objectiveID string) (*FoodSafetyObjective, error)

	// List retrieves objectives matching the filter
	List(ctx context.Context, filter ObjectiveFilter, pagination Pagination) ([]*FoodSafetyObjective, error)

	// Count counts objectives matching the filter
	Count(ctx context.Context, filter ObjectiveFilter) (int64, error)
}

// TargetRepository manages objective target persistence
type TargetRepository interface {
	// Save persists a target
	Save(ctx context.Context, target *ObjectiveTarget) error

	// FindByObjectiveID retrieves all targets of an objective
	FindByObjectiveID(ctx context.Context, objectiveID string) ([]*ObjectiveTarget, error)

	// FindForPeriod retrieves the target whose period covers the date, nil
	// when none matches
	FindForPeriod(ctx context.Context, objectiveID string, date time.Time) (*ObjectiveTarget, error)
}

// ProgressRepository manages objective progress persistence
type ProgressRepository interface {
	// Save persists a progress record
	Save(ctx context.Context, progress *ObjectiveProgress) error

	// FindByObjectiveID retrieves progress records of an objective, newest first
	FindByObjectiveID(ctx context.Context, objectiveID string, pagination Pagination) ([]*ObjectiveProgress, error)
}
