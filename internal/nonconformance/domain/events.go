package domain

import "time"

// DomainEvent is the base interface for non-conformance domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// NonConformanceRaisedEvent is raised when a deviation is documented
type NonConformanceRaisedEvent struct {
	NCID        string    `json:"ncId"`
	NCNumber    string    `json:"ncNumber"`
	Source      string    `json:"source"`
	Severity    string    `json:"severity"`
	BatchNumber string    `json:"batchNumber,omitempty"`
	RaisedBy    string    `json:"raisedBy"`
	RaisedAt    time.Time `json:"raisedAt"`
}

func (e *NonConformanceRaisedEvent) EventType() string     { return "fsms.nonconformance.raised" }
func (e *NonConformanceRaisedEvent) OccurredAt() time.Time { return e.RaisedAt }

// NonConformanceClosedEvent is raised when a record completes its lifecycle
type NonConformanceClosedEvent struct {
	NCID     string    `json:"ncId"`
	NCNumber string    `json:"ncNumber"`
	ClosedAt time.Time `json:"closedAt"`
}

func (e *NonConformanceClosedEvent) EventType() string     { return "fsms.nonconformance.closed" }
func (e *NonConformanceClosedEvent) OccurredAt() time.Time { return e.ClosedAt }
