package domain

import (
	"fmt"
	"time"
)

// DivertDecision is the outcome of evaluating a reading against the divert window
type DivertDecision struct {
	Divert      bool      `json:"divert"`
	Reason      string    `json:"reason,omitempty"`
	StreakStart time.Time `json:"streakStart,omitempty"`
}

// EvaluateDivert decides whether a new out-of-tolerance reading has persisted
// past the requirement's tolerance window. history must contain the prior
// reading entries for the same requirement, newest first; the new reading is
// passed separately and is not expected to be in history yet.
//
// A single excursion inside the window never diverts. The streak starts at the
// earliest consecutive out-of-tolerance reading; one in-tolerance reading in
// between resets it.
func EvaluateDivert(
	req *StageMonitoringRequirement,
	stage *ProcessStage,
	history []*ProcessLogEntry,
	value float64,
	recordedAt time.Time,
) DivertDecision {
	if !stage.AutoDivert {
		return DivertDecision{}
	}
	if req.InTolerance(value) {
		return DivertDecision{}
	}
	if req.ToleranceWindowSeconds <= 0 {
		return DivertDecision{
			Divert:      true,
			Reason:      divertReason(req, value),
			StreakStart: recordedAt,
		}
	}

	streakStart := recordedAt
	for _, entry := range history {
		if entry.EventType != LogEventReading || entry.RequirementID != req.RequirementID {
			continue
		}
		if !entry.IsOutOfToleranceReading() {
			break
		}
		streakStart = entry.RecordedAt
	}

	window := time.Duration(req.ToleranceWindowSeconds) * time.Second
	if recordedAt.Sub(streakStart) < window {
		return DivertDecision{}
	}

	return DivertDecision{
		Divert:      true,
		Reason:      divertReason(req, value),
		StreakStart: streakStart,
	}
}

func divertReason(req *StageMonitoringRequirement, value float64) string {
	bounds := ""
	switch {
	case req.MinValue != nil && req.MaxValue != nil:
		bounds = fmt.Sprintf("expected %.2f-%.2f", *req.MinValue, *req.MaxValue)
	case req.MinValue != nil:
		bounds = fmt.Sprintf("expected >= %.2f", *req.MinValue)
	case req.MaxValue != nil:
		bounds = fmt.Sprintf("expected <= %.2f", *req.MaxValue)
	}
	return fmt.Sprintf("%s out of tolerance: %.2f %s (%s) beyond %ds window",
		req.Metric, value, req.Unit, bounds, req.ToleranceWindowSeconds)
}
