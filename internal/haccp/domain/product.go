package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the HACCP domain
var (
	ErrPlanAlreadyApproved = errors.New("haccp plan already approved")
	ErrInvalidHazardType   = errors.New("invalid hazard type")
	ErrIncompleteAnswers   = errors.New("decision tree answers incomplete")
)

// Product is a food product under HACCP study
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID string             `bson:"productId" json:"productId"`

	Name          string `bson:"name" json:"name"`
	Description   string `bson:"description,omitempty" json:"description,omitempty"`
	Category      string `bson:"category,omitempty" json:"category,omitempty"`
	IntendedUse   string `bson:"intendedUse,omitempty" json:"intendedUse,omitempty"`
	StorageMethod string `bson:"storageMethod,omitempty" json:"storageMethod,omitempty"`

	HACCPPlanApproved bool       `bson:"haccpPlanApproved" json:"haccpPlanApproved"`
	PlanApprovedBy    string     `bson:"planApprovedBy,omitempty" json:"planApprovedBy,omitempty"`
	PlanApprovedAt    *time.Time `bson:"planApprovedAt,omitempty" json:"planApprovedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewProduct creates a product for HACCP study
func NewProduct(name, description, category, intendedUse, storageMethod string, planApproved bool) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:                primitive.NewObjectID(),
		ProductID:         fmt.Sprintf("PRD-%s", uuid.New().String()[:8]),
		Name:              name,
		Description:       description,
		Category:          category,
		IntendedUse:       intendedUse,
		StorageMethod:     storageMethod,
		HACCPPlanApproved: planApproved,
		CreatedAt:         now,
		UpdatedAt:         now,
		domainEvents:      make([]DomainEvent, 0),
	}
}

// ApprovePlan marks the product's HACCP plan approved
func (p *Product) ApprovePlan(approvedBy string) error {
	if p.HACCPPlanApproved {
		return ErrPlanAlreadyApproved
	}

	now := time.Now().UTC()
	p.HACCPPlanApproved = true
	p.PlanApprovedBy = approvedBy
	p.PlanApprovedAt = &now
	p.UpdatedAt = now

	p.addDomainEvent(&PlanApprovedEvent{
		ProductID:  p.ProductID,
		Name:       p.Name,
		ApprovedBy: approvedBy,
		ApprovedAt: now,
	})
	return nil
}

func (p *Product) addDomainEvent(event DomainEvent) {
	p.domainEvents = append(p.domainEvents, event)
}

// AddDomainEvent appends an event raised outside the aggregate's own methods
func (p *Product) AddDomainEvent(event DomainEvent) {
	p.addDomainEvent(event)
}

// DomainEvents returns all pending domain events
func (p *Product) DomainEvents() []DomainEvent {
	return p.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (p *Product) ClearDomainEvents() {
	p.domainEvents = make([]DomainEvent, 0)
}

// HazardType classifies the nature of a hazard
type HazardType string

const (
	HazardBiological HazardType = "biological"
	HazardChemical   HazardType = "chemical"
	HazardPhysical   HazardType = "physical"
	HazardAllergen   HazardType = "allergen"
)

// IsValid checks if the hazard type is valid
func (t HazardType) IsValid() bool {
	switch t {
	case HazardBiological, HazardChemical, HazardPhysical, HazardAllergen:
		return true
	}
	return false
}

// Hazard is one identified hazard at a process step of a product
type Hazard struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HazardID  string             `bson:"hazardId" json:"hazardId"`
	ProductID string             `bson:"productId" json:"productId"`

	ProcessStep    string     `bson:"processStep" json:"processStep"`
	HazardType     HazardType `bson:"hazardType" json:"hazardType"`
	Description    string     `bson:"description" json:"description"`
	ControlMeasure string     `bson:"controlMeasure,omitempty" json:"controlMeasure,omitempty"`

	Answers        *DecisionAnswers `bson:"answers,omitempty" json:"answers,omitempty"`
	Classification Classification   `bson:"classification,omitempty" json:"classification,omitempty"`
	Reasoning      string           `bson:"reasoning,omitempty" json:"reasoning,omitempty"`

	AssessedBy string     `bson:"assessedBy,omitempty" json:"assessedBy,omitempty"`
	AssessedAt *time.Time `bson:"assessedAt,omitempty" json:"assessedAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewHazard records an identified hazard, not yet assessed
func NewHazard(productID, processStep string, hazardType HazardType, description, controlMeasure string) (*Hazard, error) {
	if !hazardType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHazardType, hazardType)
	}

	now := time.Now().UTC()
	return &Hazard{
		ID:             primitive.NewObjectID(),
		HazardID:       fmt.Sprintf("HAZ-%s", uuid.New().String()[:8]),
		ProductID:      productID,
		ProcessStep:    processStep,
		HazardType:     hazardType,
		Description:    description,
		ControlMeasure: controlMeasure,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Assess stores the decision tree answers and derives the classification
func (h *Hazard) Assess(answers DecisionAnswers, assessedBy string) error {
	classification, reasoning, err := answers.Classify()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	h.Answers = &answers
	h.Classification = classification
	h.Reasoning = reasoning
	h.AssessedBy = assessedBy
	h.AssessedAt = &now
	h.UpdatedAt = now
	return nil
}
