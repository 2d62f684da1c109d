package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LogEventType classifies an append-only process log entry
type LogEventType string

const (
	LogEventReading    LogEventType = "reading"
	LogEventDivert     LogEventType = "divert"
	LogEventTransfer   LogEventType = "transfer"
	LogEventYield      LogEventType = "yield"
	LogEventTransition LogEventType = "transition"
)

// IsValid checks if the log event type is valid
func (t LogEventType) IsValid() bool {
	switch t {
	case LogEventReading, LogEventDivert, LogEventTransfer, LogEventYield, LogEventTransition:
		return true
	}
	return false
}

// ProcessLogEntry is one append-only record in a process's audit trail.
// Entries are never updated or deleted.
type ProcessLogEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LogID     string             `bson:"logId" json:"logId"`
	ProcessID string             `bson:"processId" json:"processId"`
	StageKey  string             `bson:"stageKey,omitempty" json:"stageKey,omitempty"`

	EventType LogEventType `bson:"eventType" json:"eventType"`

	// Reading fields, set only for EventType == reading
	RequirementID string   `bson:"requirementId,omitempty" json:"requirementId,omitempty"`
	Metric        string   `bson:"metric,omitempty" json:"metric,omitempty"`
	Value         *float64 `bson:"value,omitempty" json:"value,omitempty"`
	Unit          string   `bson:"unit,omitempty" json:"unit,omitempty"`
	InTolerance   *bool    `bson:"inTolerance,omitempty" json:"inTolerance,omitempty"`

	Reason string `bson:"reason,omitempty" json:"reason,omitempty"`
	Notes  string `bson:"notes,omitempty" json:"notes,omitempty"`

	RecordedBy string    `bson:"recordedBy" json:"recordedBy"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

func newLogEntry(processID, stageKey string, eventType LogEventType, recordedBy string) *ProcessLogEntry {
	return &ProcessLogEntry{
		ID:         primitive.NewObjectID(),
		LogID:      fmt.Sprintf("LOG-%s", uuid.New().String()[:8]),
		ProcessID:  processID,
		StageKey:   stageKey,
		EventType:  eventType,
		RecordedBy: recordedBy,
		RecordedAt: time.Now().UTC(),
	}
}

// NewReadingLogEntry records a monitored value against a requirement
func NewReadingLogEntry(req *StageMonitoringRequirement, value float64, inTolerance bool, recordedBy string) *ProcessLogEntry {
	entry := newLogEntry(req.ProcessID, req.StageKey, LogEventReading, recordedBy)
	entry.RequirementID = req.RequirementID
	entry.Metric = req.Metric
	entry.Value = &value
	entry.Unit = req.Unit
	entry.InTolerance = &inTolerance
	return entry
}

// NewDivertLogEntry records an automatic divert. The stage status is untouched;
// the log entry and its event are the divert.
func NewDivertLogEntry(req *StageMonitoringRequirement, value float64, reason string) *ProcessLogEntry {
	entry := newLogEntry(req.ProcessID, req.StageKey, LogEventDivert, "system")
	entry.RequirementID = req.RequirementID
	entry.Metric = req.Metric
	entry.Value = &value
	entry.Unit = req.Unit
	entry.Reason = reason
	return entry
}

// NewTransitionLogEntry records a stage status change
func NewTransitionLogEntry(processID, stageKey string, from, to StageStatus, recordedBy, notes string) *ProcessLogEntry {
	entry := newLogEntry(processID, stageKey, LogEventTransition, recordedBy)
	entry.Reason = fmt.Sprintf("%s -> %s", from, to)
	entry.Notes = notes
	return entry
}

// NewTransferLogEntry records product movement between vessels or lines
func NewTransferLogEntry(processID, stageKey, destination string, quantity float64, unit, recordedBy string) *ProcessLogEntry {
	entry := newLogEntry(processID, stageKey, LogEventTransfer, recordedBy)
	entry.Value = &quantity
	entry.Unit = unit
	entry.Notes = destination
	return entry
}

// NewYieldLogEntry records a measured stage yield
func NewYieldLogEntry(processID, stageKey string, quantity float64, unit, recordedBy string) *ProcessLogEntry {
	entry := newLogEntry(processID, stageKey, LogEventYield, recordedBy)
	entry.Value = &quantity
	entry.Unit = unit
	return entry
}

// IsOutOfToleranceReading reports whether the entry is a reading judged out of tolerance
func (e *ProcessLogEntry) IsOutOfToleranceReading() bool {
	return e.EventType == LogEventReading && e.InTolerance != nil && !*e.InTolerance
}
