package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/change/domain"
)

// ApproverInput names one approver in the chain
type ApproverInput struct {
	Sequence   int    `json:"sequence" binding:"required,min=1"`
	ApproverID string `json:"approverId" binding:"required"`
}

// CreateChangeCommand submits a change request for assessment
type CreateChangeCommand struct {
	ChangeNumber string          `json:"changeNumber" binding:"required"`
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	RequestedBy  string          `json:"requestedBy" binding:"required"`
	Approvers    []ApproverInput `json:"approvers" binding:"required,min=1,dive"`
}

// ApproveStepCommand decides the earliest pending approval step
type ApproveStepCommand struct {
	ChangeID   string `json:"-"`
	ApproverID string `json:"approverId" binding:"required"`
	Sequence   *int   `json:"sequence,omitempty"`
	Decision   string `json:"decision" binding:"required,oneof=approved rejected"`
	Comments   string `json:"comments,omitempty"`
}

// ImplementChangeCommand marks an approved change implemented
type ImplementChangeCommand struct {
	ChangeID      string `json:"-"`
	ImplementedBy string `json:"implementedBy" binding:"required"`
}

// VerifyChangeCommand verifies and closes an implemented change
type VerifyChangeCommand struct {
	ChangeID   string `json:"-"`
	VerifiedBy string `json:"verifiedBy" binding:"required"`
}

// ListChangesQuery filters the change list
type ListChangesQuery struct {
	Status      string
	RequestedBy string
	Page        int
	PageSize    int
}

// ApprovalDTO is the API representation of an approval step
type ApprovalDTO struct {
	Sequence   int        `json:"sequence"`
	ApproverID string     `json:"approverId"`
	Decision   string     `json:"decision"`
	Comments   string     `json:"comments,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
}

// ChangeDTO is the API representation of a change request
type ChangeDTO struct {
	ChangeID      string        `json:"changeId"`
	ChangeNumber  string        `json:"changeNumber"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestedBy   string        `json:"requestedBy"`
	Status        string        `json:"status"`
	Approvals     []ApprovalDTO `json:"approvals"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	DecidedAt     *time.Time    `json:"decidedAt,omitempty"`
	ImplementedAt *time.Time    `json:"implementedAt,omitempty"`
	VerifiedAt    *time.Time    `json:"verifiedAt,omitempty"`
	ClosedAt      *time.Time    `json:"closedAt,omitempty"`
}

// ToChangeDTO converts a change request to its DTO
func ToChangeDTO(c *domain.ChangeRequest) *ChangeDTO {
	approvals := make([]ApprovalDTO, len(c.Approvals))
	for i, a := range c.Approvals {
		approvals[i] = ApprovalDTO{
			Sequence:   a.Sequence,
			ApproverID: a.ApproverID,
			Decision:   string(a.Decision),
			Comments:   a.Comments,
			DecidedAt:  a.DecidedAt,
		}
	}

	return &ChangeDTO{
		ChangeID:      c.ChangeID,
		ChangeNumber:  c.ChangeNumber,
		Title:         c.Title,
		Description:   c.Description,
		Reason:        c.Reason,
		RequestedBy:   c.RequestedBy,
		Status:        string(c.Status),
		Approvals:     approvals,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		DecidedAt:     c.DecidedAt,
		ImplementedAt: c.ImplementedAt,
		VerifiedAt:    c.VerifiedAt,
		ClosedAt:      c.ClosedAt,
	}
}
