package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors for the risk domain
var (
	ErrInvalidItemType   = errors.New("invalid risk item type")
	ErrInvalidSeverity   = errors.New("invalid severity")
	ErrInvalidLikelihood = errors.New("invalid likelihood")
	ErrActionNotFound    = errors.New("risk action not found")
	ErrActionCompleted   = errors.New("risk action already completed")
)

// ItemType distinguishes risks from opportunities
type ItemType string

const (
	ItemTypeRisk        ItemType = "risk"
	ItemTypeOpportunity ItemType = "opportunity"
)

// IsValid checks if the item type is valid
func (t ItemType) IsValid() bool {
	return t == ItemTypeRisk || t == ItemTypeOpportunity
}

// Severity is the impact dimension of the 5x5 risk matrix
type Severity string

const (
	SeverityVeryLow  Severity = "very_low"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityVeryHigh Severity = "very_high"
)

var severityLevels = map[Severity]int{
	SeverityVeryLow:  1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityVeryHigh: 5,
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	_, ok := severityLevels[s]
	return ok
}

// Level returns the severity's position on the 5-point scale
func (s Severity) Level() int {
	return severityLevels[s]
}

// Likelihood is the probability dimension of the 5x5 risk matrix
type Likelihood string

const (
	LikelihoodRare          Likelihood = "rare"
	LikelihoodUnlikely      Likelihood = "unlikely"
	LikelihoodPossible      Likelihood = "possible"
	LikelihoodLikely        Likelihood = "likely"
	LikelihoodAlmostCertain Likelihood = "almost_certain"
)

var likelihoodLevels = map[Likelihood]int{
	LikelihoodRare:          1,
	LikelihoodUnlikely:      2,
	LikelihoodPossible:      3,
	LikelihoodLikely:        4,
	LikelihoodAlmostCertain: 5,
}

// IsValid checks if the likelihood is valid
func (l Likelihood) IsValid() bool {
	_, ok := likelihoodLevels[l]
	return ok
}

// Level returns the likelihood's position on the 5-point scale
func (l Likelihood) Level() int {
	return likelihoodLevels[l]
}

// RiskScore computes the 5x5 matrix score, 1..25
func RiskScore(severity Severity, likelihood Likelihood) int {
	return severity.Level() * likelihood.Level()
}

// RiskAction is a mitigation or exploitation action owned by a register item
type RiskAction struct {
	ActionID    string     `bson:"actionId" json:"actionId"`
	Description string     `bson:"description" json:"description"`
	AssigneeID  string     `bson:"assigneeId" json:"assigneeId"`
	DueDate     time.Time  `bson:"dueDate" json:"dueDate"`
	Completed   bool       `bson:"completed" json:"completed"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}

// RiskRegisterItem is a risk or opportunity on the register with its actions
type RiskRegisterItem struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RiskID string             `bson:"riskId" json:"riskId"`

	RiskNumber  string   `bson:"riskNumber" json:"riskNumber"`
	ItemType    ItemType `bson:"itemType" json:"itemType"`
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Category    string   `bson:"category,omitempty" json:"category,omitempty"`

	Severity   Severity   `bson:"severity" json:"severity"`
	Likelihood Likelihood `bson:"likelihood" json:"likelihood"`
	RiskScore  int        `bson:"riskScore" json:"riskScore"`

	Actions []RiskAction `bson:"actions" json:"actions"`

	RegisteredBy string    `bson:"registeredBy" json:"registeredBy"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewRiskRegisterItem registers a risk or opportunity. Enum values are stored
// exactly as given and round-trip unchanged.
func NewRiskRegisterItem(
	riskNumber string,
	itemType ItemType,
	title, description, category string,
	severity Severity,
	likelihood Likelihood,
	registeredBy string,
) (*RiskRegisterItem, error) {
	if !itemType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidItemType, itemType)
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, severity)
	}
	if !likelihood.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLikelihood, likelihood)
	}

	now := time.Now().UTC()
	riskID := fmt.Sprintf("RSK-%s", uuid.New().String()[:8])

	item := &RiskRegisterItem{
		ID:           primitive.NewObjectID(),
		RiskID:       riskID,
		RiskNumber:   riskNumber,
		ItemType:     itemType,
		Title:        title,
		Description:  description,
		Category:     category,
		Severity:     severity,
		Likelihood:   likelihood,
		RiskScore:    RiskScore(severity, likelihood),
		Actions:      make([]RiskAction, 0),
		RegisteredBy: registeredBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}

	item.addDomainEvent(&RiskRegisteredEvent{
		RiskID:       riskID,
		RiskNumber:   riskNumber,
		ItemType:     string(itemType),
		Severity:     string(severity),
		Likelihood:   string(likelihood),
		RiskScore:    item.RiskScore,
		RegisteredBy: registeredBy,
		RegisteredAt: now,
	})

	return item, nil
}

// Reassess updates severity and likelihood and recomputes the matrix score
func (i *RiskRegisterItem) Reassess(severity Severity, likelihood Likelihood, assessedBy string) error {
	if !severity.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidSeverity, severity)
	}
	if !likelihood.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidLikelihood, likelihood)
	}

	now := time.Now().UTC()
	i.Severity = severity
	i.Likelihood = likelihood
	i.RiskScore = RiskScore(severity, likelihood)
	i.UpdatedAt = now

	i.addDomainEvent(&RiskAssessedEvent{
		RiskID:     i.RiskID,
		RiskNumber: i.RiskNumber,
		Severity:   string(severity),
		Likelihood: string(likelihood),
		RiskScore:  i.RiskScore,
		AssessedBy: assessedBy,
		AssessedAt: now,
	})
	return nil
}

// AddAction attaches a new action to the item
func (i *RiskRegisterItem) AddAction(description, assigneeID string, dueDate time.Time) *RiskAction {
	action := RiskAction{
		ActionID:    fmt.Sprintf("ACT-%s", uuid.New().String()[:8]),
		Description: description,
		AssigneeID:  assigneeID,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	i.Actions = append(i.Actions, action)
	i.UpdatedAt = action.CreatedAt
	return &i.Actions[len(i.Actions)-1]
}

// CompleteAction marks an action complete
func (i *RiskRegisterItem) CompleteAction(actionID string) error {
	for idx := range i.Actions {
		if i.Actions[idx].ActionID != actionID {
			continue
		}
		if i.Actions[idx].Completed {
			return ErrActionCompleted
		}
		now := time.Now().UTC()
		i.Actions[idx].Completed = true
		i.Actions[idx].CompletedAt = &now
		i.UpdatedAt = now
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
}

// OverdueActions returns incomplete actions whose due date has passed
func (i *RiskRegisterItem) OverdueActions(now time.Time) []RiskAction {
	var overdue []RiskAction
	for _, a := range i.Actions {
		if !a.Completed && a.DueDate.Before(now) {
			overdue = append(overdue, a)
		}
	}
	return overdue
}

func (i *RiskRegisterItem) addDomainEvent(event DomainEvent) {
	i.domainEvents = append(i.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (i *RiskRegisterItem) DomainEvents() []DomainEvent {
	return i.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (i *RiskRegisterItem) ClearDomainEvents() {
	i.domainEvents = make([]DomainEvent, 0)
}
