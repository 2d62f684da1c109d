package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the objectives domain
var (
	ErrInvalidPeriod       = errors.New("period end must not precede period start")
	ErrTargetValueRequired = errors.New("target value is required")
)

// ObjectiveStatus is the lifecycle status of an objective
type ObjectiveStatus string

const (
	ObjectiveStatusActive   ObjectiveStatus = "active"
	ObjectiveStatusAchieved ObjectiveStatus = "achieved"
	ObjectiveStatusRetired  ObjectiveStatus = "retired"
)

// IsValid checks if the objective status is valid
func (s ObjectiveStatus) IsValid() bool {
	switch s {
	case ObjectiveStatusActive, ObjectiveStatusAchieved, ObjectiveStatusRetired:
		return true
	}
	return false
}

// AttainmentStatus classifies progress against a target
type AttainmentStatus string

const (
	AttainmentOnTrack  AttainmentStatus = "on_track"
	AttainmentAtRisk   AttainmentStatus = "at_risk"
	AttainmentOffTrack AttainmentStatus = "off_track"
)

// FoodSafetyObjective is a measurable food safety goal
type FoodSafetyObjective struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ObjectiveID string             `bson:"objectiveId" json:"objectiveId"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Category    string `bson:"category,omitempty" json:"category,omitempty"`
	Metric      string `bson:"metric" json:"metric"`
	Unit        string `bson:"unit,omitempty" json:"unit,omitempty"`
	OwnerID     string `bson:"ownerId" json:"ownerId"`

	Status ObjectiveStatus `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewFoodSafetyObjective creates an active objective
func NewFoodSafetyObjective(title, description, category, metric, unit, ownerID string) *FoodSafetyObjective {
	now := time.Now().UTC()
	objectiveID := fmt.Sprintf("OBJ-%s", uuid.New().String()[:8])

	objective := &FoodSafetyObjective{
		ID:           primitive.NewObjectID(),
		ObjectiveID:  objectiveID,
		Title:        title,
		Description:  description,
		Category:     category,
		Metric:       metric,
		Unit:         unit,
		OwnerID:      ownerID,
		Status:       ObjectiveStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}

	objective.addDomainEvent(&ObjectiveCreatedEvent{
		ObjectiveID: objectiveID,
		Title:       title,
		Metric:      metric,
		OwnerID:     ownerID,
		CreatedAt:   now,
	})

	return objective
}

func (o *FoodSafetyObjective) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// AddDomainEvent appends an event raised outside the aggregate's own methods
func (o *FoodSafetyObjective) AddDomainEvent(event DomainEvent) {
	o.addDomainEvent(event)
}

// DomainEvents returns all pending domain events
func (o *FoodSafetyObjective) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (o *FoodSafetyObjective) ClearDomainEvents() {
	o.domainEvents = make([]DomainEvent, 0)
}

// ObjectiveTarget scopes a target value to a reporting period
type ObjectiveTarget struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TargetID    string             `bson:"targetId" json:"targetId"`
	ObjectiveID string             `bson:"objectiveId" json:"objectiveId"`

	PeriodStart time.Time `bson:"periodStart" json:"periodStart"`
	PeriodEnd   time.Time `bson:"periodEnd" json:"periodEnd"`

	TargetValue    float64  `bson:"targetValue" json:"targetValue"`
	LowerThreshold *float64 `bson:"lowerThreshold,omitempty" json:"lowerThreshold,omitempty"`
	UpperThreshold *float64 `bson:"upperThreshold,omitempty" json:"upperThreshold,omitempty"`
	IsLowerBetter  bool     `bson:"isLowerBetter" json:"isLowerBetter"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewObjectiveTarget creates a period-scoped target
func NewObjectiveTarget(
	objectiveID string,
	periodStart, periodEnd time.Time,
	targetValue float64,
	lowerThreshold, upperThreshold *float64,
	isLowerBetter bool,
) (*ObjectiveTarget, error) {
	if periodEnd.Before(periodStart) {
		return nil, ErrInvalidPeriod
	}

	return &ObjectiveTarget{
		ID:             primitive.NewObjectID(),
		TargetID:       fmt.Sprintf("TGT-%s", uuid.New().String()[:8]),
		ObjectiveID:    objectiveID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		TargetValue:    targetValue,
		LowerThreshold: lowerThreshold,
		UpperThreshold: upperThreshold,
		IsLowerBetter:  isLowerBetter,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Covers reports whether the target's period contains the given date
func (t *ObjectiveTarget) Covers(date time.Time) bool {
	return !date.Before(t.PeriodStart) && !date.After(t.PeriodEnd)
}

// ObjectiveProgress is one measured value against an objective. Attainment is
// computed once at write time and cached on the record.
type ObjectiveProgress struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgressID  string             `bson:"progressId" json:"progressId"`
	ObjectiveID string             `bson:"objectiveId" json:"objectiveId"`
	TargetID    string             `bson:"targetId,omitempty" json:"targetId,omitempty"`

	PeriodDate  time.Time `bson:"periodDate" json:"periodDate"`
	ActualValue float64   `bson:"actualValue" json:"actualValue"`

	AttainmentPercent *float64          `bson:"attainmentPercent,omitempty" json:"attainmentPercent,omitempty"`
	Status            *AttainmentStatus `bson:"status,omitempty" json:"status,omitempty"`

	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
	RecordedBy string    `bson:"recordedBy" json:"recordedBy"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

// NewObjectiveProgress creates a progress record with attainment evaluated
// against the matching target. A nil target leaves attainment and status unset.
func NewObjectiveProgress(
	objectiveID string,
	target *ObjectiveTarget,
	periodDate time.Time,
	actualValue float64,
	notes, recordedBy string,
) *ObjectiveProgress {
	progress := &ObjectiveProgress{
		ID:          primitive.NewObjectID(),
		ProgressID:  fmt.Sprintf("PRG-%s", uuid.New().String()[:8]),
		ObjectiveID: objectiveID,
		PeriodDate:  periodDate,
		ActualValue: actualValue,
		Notes:       notes,
		RecordedBy:  recordedBy,
		RecordedAt:  time.Now().UTC(),
	}

	if target != nil {
		progress.TargetID = target.TargetID
		attainment, status := ComputeAttainment(target, actualValue)
		progress.AttainmentPercent = &attainment
		progress.Status = &status
	}

	return progress
}
