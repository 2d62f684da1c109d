package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/objectives/domain"
)

// CreateObjectiveCommand defines a new food safety objective
type CreateObjectiveCommand struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Metric      string `json:"metric" binding:"required"`
	Unit        string `json:"unit,omitempty"`
	OwnerID     string `json:"ownerId" binding:"required"`
}

// SetTargetCommand scopes a target value to a reporting period
type SetTargetCommand struct {
	ObjectiveID    string    `json:"-"`
	PeriodStart    time.Time `json:"periodStart" binding:"required"`
	PeriodEnd      time.Time `json:"periodEnd" binding:"required"`
	TargetValue    float64   `json:"targetValue"`
	LowerThreshold *float64  `json:"lowerThreshold,omitempty"`
	UpperThreshold *float64  `json:"upperThreshold,omitempty"`
	IsLowerBetter  bool      `json:"isLowerBetter"`
}

// RecordProgressCommand records a measured value against an objective
type RecordProgressCommand struct {
	ObjectiveID string    `json:"-"`
	PeriodDate  time.Time `json:"periodDate" binding:"required"`
	ActualValue float64   `json:"actualValue"`
	Notes       string    `json:"notes,omitempty"`
	RecordedBy  string    `json:"recordedBy" binding:"required"`
}

// ListObjectivesQuery filters the objective list
type ListObjectivesQuery struct {
	Status   string
	Category string
	OwnerID  string
	Page     int
	PageSize int
}

// ObjectiveDTO is the API representation of an objective
type ObjectiveDTO struct {
	ObjectiveID string    `json:"objectiveId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Metric      string    `json:"metric"`
	Unit        string    `json:"unit,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TargetDTO is the API representation of an objective target
type TargetDTO struct {
	TargetID       string    `json:"targetId"`
	ObjectiveID    string    `json:"objectiveId"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	TargetValue    float64   `json:"targetValue"`
	LowerThreshold *float64  `json:"lowerThreshold,omitempty"`
	UpperThreshold *float64  `json:"upperThreshold,omitempty"`
	IsLowerBetter  bool      `json:"isLowerBetter"`
}

// ProgressDTO is the API representation of a progress record
type ProgressDTO struct {
	ProgressID        string    `json:"progressId"`
	ObjectiveID       string    `json:"objectiveId"`
	TargetID          string    `json:"targetId,omitempty"`
	PeriodDate        time.Time `json:"periodDate"`
	ActualValue       float64   `json:"actualValue"`
	AttainmentPercent *float64  `json:"attainmentPercent,omitempty"`
	Status            *string   `json:"status,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	RecordedBy        string    `json:"recordedBy"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// ObjectiveDetailDTO bundles an objective with its targets and recent progress
type ObjectiveDetailDTO struct {
	Objective ObjectiveDTO  `json:"objective"`
	Targets   []TargetDTO   `json:"targets"`
	Progress  []ProgressDTO `json:"progress"`
}

// ToObjectiveDTO converts an objective to its DTO
func ToObjectiveDTO(o *domain.FoodSafetyObjective) *ObjectiveDTO {
	return &ObjectiveDTO{
		ObjectiveID: o.ObjectiveID,
		Title:       o.Title,
		Description: o.Description,
		Category:    o.Category,
		Metric:      o.Metric,
		Unit:        o.Unit,
		OwnerID:     o.OwnerID,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// ToTargetDTO converts a target to its DTO
func ToTargetDTO(t *domain.ObjectiveTarget) *TargetDTO {
	return &TargetDTO{
		TargetID:       t.TargetID,
		ObjectiveID:    t.ObjectiveID,
		PeriodStart:    t.PeriodStart,
		PeriodEnd:      t.PeriodEnd,
		TargetValue:    t.TargetValue,
		LowerThreshold: t.LowerThreshold,
		UpperThreshold: t.UpperThreshold,
		IsLowerBetter:  t.IsLowerBetter,
	}
}

// ToProgressDTO converts a progress record to its DTO
func ToProgressDTO(p *domain.ObjectiveProgress) *ProgressDTO {
	dto := &ProgressDTO{
		ProgressID:        p.ProgressID,
		ObjectiveID:       p.ObjectiveID,
		TargetID:          p.TargetID,
		PeriodDate:        p.PeriodDate,
		ActualValue:       p.ActualValue,
		AttainmentPercent: p.AttainmentPercent,
		Notes:             p.Notes,
		RecordedBy:        p.RecordedBy,
		RecordedAt:        p.RecordedAt,
	}
	if p.Status != nil {
		status := string(*p.Status)
		dto.Status = &status
	}
	return dto
}
