package cloudevents

import (
	"time"
)

// EventType constants for FSMS domain events
const (
	// Production events
	ProcessCreated      = "fsms.production.process-created"
	StageStarted        = "fsms.production.stage-started"
	StageCompleted      = "fsms.production.stage-completed"
	StageReworked       = "fsms.production.stage-reworked"
	ReadingRecorded     = "fsms.production.reading-recorded"
	BatchDiverted       = "fsms.production.batch-diverted"
	ProcessCompleted    = "fsms.production.process-completed"

	// Objectives events
	ObjectiveCreated  = "fsms.objectives.objective-created"
	ProgressRecorded  = "fsms.objectives.progress-recorded"

	// Risk events
	RiskRegistered = "fsms.risk.risk-registered"
	RiskAssessed   = "fsms.risk.risk-assessed"

	// HACCP events
	HazardAssessed  = "fsms.haccp.hazard-assessed"
	CCPDetermined   = "fsms.haccp.ccp-determined"
	PlanApproved    = "fsms.haccp.plan-approved"

	// Change management events
	ChangeSubmitted  = "fsms.change.submitted"
	ChangeApproved   = "fsms.change.approved"
	ChangeRejected   = "fsms.change.rejected"
	ChangeImplemented = "fsms.change.implemented"
	ChangeClosed     = "fsms.change.closed"

	// Non-conformance events
	NonConformanceRaised = "fsms.nonconformance.raised"
	NonConformanceClosed = "fsms.nonconformance.closed"
)

// Source constants for event sources
const (
	SourceProduction     = "/fsms/production"
	SourceObjectives     = "/fsms/objectives"
	SourceRisk           = "/fsms/risk"
	SourceHACCP          = "/fsms/haccp"
	SourceChange         = "/fsms/change"
	SourceNonConformance = "/fsms/nonconformance"
)

// FSMSCloudEvent represents a CloudEvents v1.0 compliant event for FSMS
type FSMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// FSMS-specific extensions
	CorrelationID string `json:"fsmscorrelationid,omitempty"`
	BatchNumber   string `json:"fsmsbatchnumber,omitempty"`
	ProcessID     string `json:"fsmsprocessid,omitempty"`
}

// ProcessCreatedData represents the data payload for ProcessCreated event
type ProcessCreatedData struct {
	ProcessID   string `json:"processId"`
	BatchNumber string `json:"batchNumber"`
	ProductType string `json:"productType"`
	StageCount  int    `json:"stageCount"`
	Operator    string `json:"operator,omitempty"`
}

// StageTransitionData represents the data payload for stage lifecycle events
type StageTransitionData struct {
	ProcessID     string `json:"processId"`
	StageID       string `json:"stageId"`
	StageName     string `json:"stageName"`
	SequenceOrder int    `json:"sequenceOrder"`
	Status        string `json:"status"`
}

// ReadingRecordedData represents the data payload for ReadingRecorded event
type ReadingRecordedData struct {
	ProcessID   string  `json:"processId"`
	StageID     string  `json:"stageId"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit,omitempty"`
	InTolerance bool    `json:"inTolerance"`
}

// BatchDivertedData represents the data payload for BatchDiverted event
type BatchDivertedData struct {
	ProcessID   string  `json:"processId"`
	StageID     string  `json:"stageId"`
	StageName   string  `json:"stageName"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Reason      string  `json:"reason"`
}

// ObjectiveProgressData represents the data payload for ProgressRecorded event
type ObjectiveProgressData struct {
	ObjectiveID string  `json:"objectiveId"`
	Actual      float64 `json:"actual"`
	Target      float64 `json:"target"`
	Attainment  float64 `json:"attainment"`
	PeriodStart string  `json:"periodStart,omitempty"`
	PeriodEnd   string  `json:"periodEnd,omitempty"`
}

// RiskAssessedData represents the data payload for RiskAssessed event
type RiskAssessedData struct {
	RiskID     string `json:"riskId"`
	Likelihood string `json:"likelihood"`
	Severity   string `json:"severity"`
	Score      int    `json:"score"`
	Level      string `json:"level"`
}

// CCPDeterminedData represents the data payload for CCPDetermined event
type CCPDeterminedData struct {
	ProductID string `json:"productId"`
	HazardID  string `json:"hazardId"`
	IsCCP     bool   `json:"isCcp"`
	Rationale string `json:"rationale"`
}

// ChangeDecisionData represents the data payload for change approval events
type ChangeDecisionData struct {
	ChangeID   string `json:"changeId"`
	Status     string `json:"status"`
	ApproverID string `json:"approverId,omitempty"`
	Comments   string `json:"comments,omitempty"`
}

// NonConformanceData represents the data payload for non-conformance events
type NonConformanceData struct {
	NonConformanceID string `json:"nonConformanceId"`
	Source           string `json:"source"`
	Severity         string `json:"severity"`
	Status           string `json:"status"`
	BatchNumber      string `json:"batchNumber,omitempty"`
}
