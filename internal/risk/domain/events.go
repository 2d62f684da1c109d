package domain

import "time"

// DomainEvent represents something that happened in the risk domain
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// RiskRegisteredEvent is raised when an item enters the register
type RiskRegisteredEvent struct {
	RiskID       string    `json:"riskId"`
	RiskNumber   string    `json:"riskNumber"`
	ItemType     string    `json:"itemType"`
	Severity     string    `json:"severity"`
	Likelihood   string    `json:"likelihood"`
	RiskScore    int       `json:"riskScore"`
	RegisteredBy string    `json:"registeredBy"`
	RegisteredAt time.Time `json:"registeredAt"`
}

func (e *RiskRegisteredEvent) EventType() string     { return "fsms.risk.risk-registered" }
func (e *RiskRegisteredEvent) OccurredAt() time.Time { return e.RegisteredAt }

// RiskAssessedEvent is raised when severity or likelihood is reassessed
type RiskAssessedEvent struct {
	RiskID     string    `json:"riskId"`
	RiskNumber string    `json:"riskNumber"`
	Severity   string    `json:"severity"`
	Likelihood string    `json:"likelihood"`
	RiskScore  int       `json:"riskScore"`
	AssessedBy string    `json:"assessedBy"`
	AssessedAt time.Time `json:"assessedAt"`
}

func (e *RiskAssessedEvent) EventType() string     { return "fsms.risk.risk-assessed" }
func (e *RiskAssessedEvent) OccurredAt() time.Time { return e.AssessedAt }
