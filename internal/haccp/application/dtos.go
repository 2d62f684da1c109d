package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/haccp/domain"
)

// CreateProductCommand registers a product for HACCP study
type CreateProductCommand struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category,omitempty"`
	IntendedUse       string `json:"intendedUse,omitempty"`
	StorageMethod     string `json:"storageMethod,omitempty"`
	HACCPPlanApproved bool   `json:"haccpPlanApproved"`
}

// ApprovePlanCommand approves a product's HACCP plan
type ApprovePlanCommand struct {
	ProductID  string `json:"-"`
	ApprovedBy string `json:"approvedBy" binding:"required"`
}

// AddHazardCommand records an identified hazard
type AddHazardCommand struct {
	ProductID      string `json:"-"`
	ProcessStep    string `json:"processStep" binding:"required"`
	HazardType     string `json:"hazardType" binding:"required,oneof=biological chemical physical allergen"`
	Description    string `json:"description" binding:"required"`
	ControlMeasure string `json:"controlMeasure,omitempty"`
}

// AssessHazardCommand stores decision tree answers and classifies the hazard
type AssessHazardCommand struct {
	ProductID              string `json:"-"`
	HazardID               string `json:"-"`
	ControlMeasuresExist   *bool  `json:"controlMeasuresExist" binding:"required"`
	StepEliminatesHazard   *bool  `json:"stepEliminatesHazard,omitempty"`
	ContaminationPossible  *bool  `json:"contaminationPossible,omitempty"`
	SubsequentStepControls *bool  `json:"subsequentStepControls,omitempty"`
	AssessedBy             string `json:"assessedBy" binding:"required"`
}

// ListProductsQuery filters the product list
type ListProductsQuery struct {
	Category     string
	PlanApproved *bool
	Page         int
	PageSize     int
}

// ProductDTO is the API representation of a product
type ProductDTO struct {
	ProductID         string     `json:"productId"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Category          string     `json:"category,omitempty"`
	IntendedUse       string     `json:"intendedUse,omitempty"`
	StorageMethod     string     `json:"storageMethod,omitempty"`
	HACCPPlanApproved bool       `json:"haccpPlanApproved"`
	PlanApprovedBy    string     `json:"planApprovedBy,omitempty"`
	PlanApprovedAt    *time.Time `json:"planApprovedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// AnswersDTO mirrors the stored decision tree answers
type AnswersDTO struct {
	ControlMeasuresExist   *bool `json:"controlMeasuresExist"`
	StepEliminatesHazard   *bool `json:"stepEliminatesHazard,omitempty"`
	ContaminationPossible  *bool `json:"contaminationPossible,omitempty"`
	SubsequentStepControls *bool `json:"subsequentStepControls,omitempty"`
}

// HazardDTO is the API representation of a hazard
type HazardDTO struct {
	HazardID       string      `json:"hazardId"`
	ProductID      string      `json:"productId"`
	ProcessStep    string      `json:"processStep"`
	HazardType     string      `json:"hazardType"`
	Description    string      `json:"description"`
	ControlMeasure string      `json:"controlMeasure,omitempty"`
	Answers        *AnswersDTO `json:"answers,omitempty"`
	Classification string      `json:"classification,omitempty"`
	Reasoning      string      `json:"reasoning,omitempty"`
	AssessedBy     string      `json:"assessedBy,omitempty"`
	AssessedAt     *time.Time  `json:"assessedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// ProductDetailDTO bundles a product with its hazards
type ProductDetailDTO struct {
	Product ProductDTO  `json:"product"`
	Hazards []HazardDTO `json:"hazards"`
}

// ToProductDTO converts a product to its DTO
func ToProductDTO(p *domain.Product) *ProductDTO {
	return &ProductDTO{
		ProductID:         p.ProductID,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		IntendedUse:       p.IntendedUse,
		StorageMethod:     p.StorageMethod,
		HACCPPlanApproved: p.HACCPPlanApproved,
		PlanApprovedBy:    p.PlanApprovedBy,
		PlanApprovedAt:    p.PlanApprovedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ToHazardDTO converts a hazard to its DTO
func ToHazardDTO(h *domain.Hazard) *HazardDTO {
	dto := &HazardDTO{
		HazardID:       h.HazardID,
		ProductID:      h.ProductID,
		ProcessStep:    h.ProcessStep,
		HazardType:     string(h.HazardType),
		Description:    h.Description,
		ControlMeasure: h.ControlMeasure,
		Classification: string(h.Classification),
		Reasoning:      h.Reasoning,
		AssessedBy:     h.AssessedBy,
		AssessedAt:     h.AssessedAt,
		CreatedAt:      h.CreatedAt,
	}
	if h.Answers != nil {
		dto.Answers = &AnswersDTO{
			ControlMeasuresExist:   h.Answers.ControlMeasuresExist,
			StepEliminatesHazard:   h.Answers.StepEliminatesHazard,
			ContaminationPossible:  h.Answers.ContaminationPossible,
			SubsequentStepControls: h.Answers.SubsequentStepControls,
		}
	}
	return dto
}
