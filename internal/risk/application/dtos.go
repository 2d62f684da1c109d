package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/risk/domain"
)

// RegisterRiskCommand adds a risk or opportunity to the register
type RegisterRiskCommand struct {
	RiskNumber   string `json:"riskNumber" binding:"required"`
	ItemType     string `json:"itemType" binding:"required,oneof=risk opportunity"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Severity     string `json:"severity" binding:"required"`
	Likelihood   string `json:"likelihood" binding:"required"`
	RegisteredBy string `json:"registeredBy" binding:"required"`
}

// AssessRiskCommand reassesses an item's severity and likelihood
type AssessRiskCommand struct {
	RiskID     string `json:"-"`
	Severity   string `json:"severity" binding:"required"`
	Likelihood string `json:"likelihood" binding:"required"`
	AssessedBy string `json:"assessedBy" binding:"required"`
}

// AddActionCommand attaches an action to a register item
type AddActionCommand struct {
	RiskID      string    `json:"-"`
	Description string    `json:"description" binding:"required"`
	AssigneeID  string    `json:"assigneeId" binding:"required"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
}

// CompleteActionCommand marks an action complete
type CompleteActionCommand struct {
	RiskID   string `json:"-"`
	ActionID string `json:"-"`
}

// ListRisksQuery filters the register list
type ListRisksQuery struct {
	ItemType   string
	Severity   string
	Likelihood string
	Category   string
	MinScore   int
	Page       int
	PageSize   int
}

// RiskActionDTO is the API representation of a risk action
type RiskActionDTO struct {
	ActionID    string     `json:"actionId"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assigneeId"`
	DueDate     time.Time  `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// RiskDTO is the API representation of a register item
type RiskDTO struct {
	RiskID       string          `json:"riskId"`
	RiskNumber   string          `json:"riskNumber"`
	ItemType     string          `json:"itemType"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category,omitempty"`
	Severity     string          `json:"severity"`
	Likelihood   string          `json:"likelihood"`
	RiskScore    int             `json:"riskScore"`
	Actions      []RiskActionDTO `json:"actions"`
	RegisteredBy string          `json:"registeredBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ToRiskDTO converts a register item to its DTO
func ToRiskDTO(item *domain.RiskRegisterItem) *RiskDTO {
	actions := make([]RiskActionDTO, len(item.Actions))
	for i, a := range item.Actions {
		actions[i] = RiskActionDTO{
			ActionID:    a.ActionID,
			Description: a.Description,
			AssigneeID:  a.AssigneeID,
			DueDate:     a.DueDate,
			Completed:   a.Completed,
			CompletedAt: a.CompletedAt,
			CreatedAt:   a.CreatedAt,
		}
	}

	return &RiskDTO{
		RiskID:       item.RiskID,
		RiskNumber:   item.RiskNumber,
		ItemType:     string(item.ItemType),
		Title:        item.Title,
		Description:  item.Description,
		Category:     item.Category,
		Severity:     string(item.Severity),
		Likelihood:   string(item.Likelihood),
		RiskScore:    item.RiskScore,
		Actions:      actions,
		RegisteredBy: item.RegisteredBy,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
