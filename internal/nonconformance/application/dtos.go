package application

import (
	"time"

	"github.com/fsms-platform/fsms-service/internal/nonconformance/domain"
)

// RaiseNonConformanceCommand documents a new deviation
type RaiseNonConformanceCommand struct {
	NCNumber    string `json:"ncNumber" binding:"required"`
	Source      string `json:"source" binding:"required,oneof=production audit complaint supplier internal"`
	Severity    string `json:"severity" binding:"required,oneof=minor major critical"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	BatchNumber string `json:"batchNumber"`
	ProcessID   string `json:"processId"`
	RaisedBy    string `json:"raisedBy" binding:"required"`
}

// AdvanceNonConformanceCommand moves a record one lifecycle step
type AdvanceNonConformanceCommand struct {
	Status string `json:"status" binding:"required,oneof=under_review corrective_action verified closed"`
}

// AddCAPAActionCommand attaches a corrective or preventive action
type AddCAPAActionCommand struct {
	ActionType  string    `json:"actionType" binding:"required,oneof=corrective preventive"`
	Description string    `json:"description" binding:"required"`
	AssigneeID  string    `json:"assigneeId" binding:"required"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
}

// ListNonConformancesQuery filters the register
type ListNonConformancesQuery struct {
	Status      string `form:"status"`
	Source      string `form:"source"`
	Severity    string `form:"severity"`
	BatchNumber string `form:"batchNumber"`
	Page        int64  `form:"page"`
	PageSize    int64  `form:"pageSize"`
}

// CAPAActionDTO is the API representation of a CAPA action
type CAPAActionDTO struct {
	ActionID    string     `json:"actionId"`
	ActionType  string     `json:"actionType"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assigneeId"`
	DueDate     time.Time  `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// NonConformanceDTO is the API representation of a non-conformance
type NonConformanceDTO struct {
	NCID        string          `json:"ncId"`
	NCNumber    string          `json:"ncNumber"`
	Source      string          `json:"source"`
	Severity    string          `json:"severity"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	BatchNumber string          `json:"batchNumber,omitempty"`
	ProcessID   string          `json:"processId,omitempty"`
	Status      string          `json:"status"`
	Actions     []CAPAActionDTO `json:"actions"`
	RaisedBy    string          `json:"raisedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	VerifiedAt  *time.Time      `json:"verifiedAt,omitempty"`
	ClosedAt    *time.Time      `json:"closedAt,omitempty"`
}

// NonConformanceListDTO is a paginated slice of the register
type NonConformanceListDTO struct {
	Items    []*NonConformanceDTO `json:"items"`
	Total    int64                `json:"total"`
	Page     int64                `json:"page"`
	PageSize int64                `json:"pageSize"`
}

// ToNonConformanceDTO converts a domain record to its DTO
func ToNonConformanceDTO(nc *domain.NonConformance) *NonConformanceDTO {
	actions := make([]CAPAActionDTO, 0, len(nc.Actions))
	for _, a := range nc.Actions {
		actions = append(actions, CAPAActionDTO{
			ActionID:    a.ActionID,
			ActionType:  string(a.ActionType),
			Description: a.Description,
			AssigneeID:  a.AssigneeID,
			DueDate:     a.DueDate,
			Completed:   a.Completed,
			CompletedAt: a.CompletedAt,
			CreatedAt:   a.CreatedAt,
		})
	}

	return &NonConformanceDTO{
		NCID:        nc.NCID,
		NCNumber:    nc.NCNumber,
		Source:      string(nc.Source),
		Severity:    string(nc.Severity),
		Title:       nc.Title,
		Description: nc.Description,
		BatchNumber: nc.BatchNumber,
		ProcessID:   nc.ProcessID,
		Status:      string(nc.Status),
		Actions:     actions,
		RaisedBy:    nc.RaisedBy,
		CreatedAt:   nc.CreatedAt,
		UpdatedAt:   nc.UpdatedAt,
		VerifiedAt:  nc.VerifiedAt,
		ClosedAt:    nc.ClosedAt,
	}
}
