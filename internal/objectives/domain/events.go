package domain

import "time"

// DomainEvent represents something that happened in the objectives domain
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ObjectiveCreatedEvent is raised when an objective is defined
type ObjectiveCreatedEvent struct {
	ObjectiveID string    `json:"objectiveId"`
	Title       string    `json:"title"`
	Metric      string    `json:"metric"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *ObjectiveCreatedEvent) EventType() string     { return "fsms.objectives.objective-created" }
func (e *ObjectiveCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ProgressRecordedEvent is raised when progress is recorded against an objective
type ProgressRecordedEvent struct {
	ObjectiveID       string    `json:"objectiveId"`
	ProgressID        string    `json:"progressId"`
	ActualValue       float64   `json:"actualValue"`
	AttainmentPercent *float64  `json:"attainmentPercent,omitempty"`
	Status            string    `json:"status,omitempty"`
	RecordedBy        string    `json:"recordedBy"`
	RecordedAt        time.Time `json:"recordedAt"`
}

func (e *ProgressRecordedEvent) EventType() string     { return "fsms.objectives.progress-recorded" }
func (e *ProgressRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }
