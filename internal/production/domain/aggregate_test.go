package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsms-platform/fsms-service/internal/production/workflow"
)

func testDefinition() *workflow.Definition {
	min := 72.0
	max := 6.0
	return &workflow.Definition{
		Name:    "Fresh Milk Processing",
		Version: "1.2",
		Stages: []workflow.StageDefinition{
			{
				Key:   "reception",
				Label: "Raw Milk Reception",
				Conditions: []workflow.Condition{
					{Type: workflow.ConditionMaxValue, Metric: "temperature_celsius", Max: &max, Unit: "C"},
				},
				Sampling: workflow.Sampling{Mode: "per_batch"},
			},
			{
				Key:   "pasteurization",
				Label: "HTST Pasteurization",
				Gates: []workflow.Gate{{Name: "ccp_verification", ESign: true}},
				Conditions: []workflow.Condition{
					{Type: workflow.ConditionMinValue, Metric: "temperature_celsius", Min: &min, ToleranceWindowSeconds: 30, Unit: "C"},
				},
				Sampling:   workflow.Sampling{Mode: "online"},
				AutoDivert: true,
			},
		},
	}
}

func TestNewProductionProcess(t *testing.T) {
	def := testDefinition()
	process := NewProductionProcess("BATCH-001", "OP-001", workflow.ProductTypeFreshMilk, def, map[string]interface{}{
		"supplier": "farm-12",
	})

	assert.NotEmpty(t, process.ProcessID)
	assert.Equal(t, "BATCH-001", process.BatchNumber)
	assert.Equal(t, workflow.ProductTypeFreshMilk, process.ProductType)
	assert.Equal(t, "OP-001", process.OperatorID)
	assert.Equal(t, "Fresh Milk Processing", process.WorkflowName)
	assert.Equal(t, "1.2", process.WorkflowVersion)
	assert.Equal(t, ProcessStatusDraft, process.Status)
	assert.Equal(t, 2, process.StageCount)
	assert.Equal(t, "farm-12", process.InitialFields["supplier"])

	events := process.DomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*ProcessCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, process.ProcessID, created.ProcessID)
	assert.Equal(t, 2, created.StageCount)
}

func TestProcessLifecycle(t *testing.T) {
	process := NewProductionProcess("BATCH-001", "OP-001", workflow.ProductTypeFreshMilk, testDefinition(), nil)

	require.NoError(t, process.Start())
	assert.Equal(t, ProcessStatusInProgress, process.Status)
	assert.NotNil(t, process.StartedAt)

	// Starting twice is rejected
	err := process.Start()
	assert.ErrorIs(t, err, ErrInvalidProcessTransition)

	require.NoError(t, process.Complete())
	assert.Equal(t, ProcessStatusCompleted, process.Status)
	assert.NotNil(t, process.CompletedAt)

	err = process.Cancel("too late")
	assert.ErrorIs(t, err, ErrInvalidProcessTransition)
}

func TestProcessCompleteRequiresInProgress(t *testing.T) {
	process := NewProductionProcess("BATCH-001", "OP-001", workflow.ProductTypeFreshMilk, testDefinition(), nil)

	err := process.Complete()
	assert.ErrorIs(t, err, ErrInvalidProcessTransition)
}

func TestProcessCancel(t *testing.T) {
	process := NewProductionProcess("BATCH-001", "OP-001", workflow.ProductTypeFreshMilk, testDefinition(), nil)

	require.NoError(t, process.Cancel("contaminated raw milk"))
	assert.Equal(t, ProcessStatusCancelled, process.Status)
	assert.Equal(t, "contaminated raw milk", process.CancelReason)
	assert.NotNil(t, process.CancelledAt)
	assert.False(t, process.IsActive())
}

func TestStageTransitions(t *testing.T) {
	def := testDefinition()
	stage := NewProcessStage("PROC-001", def.Stages[1], 2)

	assert.Equal(t, StageStatusPending, stage.Status)
	assert.True(t, stage.IsCriticalControlPoint)
	assert.True(t, stage.RequiresApproval)
	assert.True(t, stage.AutoDivert)

	// complete before start is rejected
	err := stage.Complete("")
	assert.ErrorIs(t, err, ErrInvalidStageTransition)

	require.NoError(t, stage.Start())
	assert.Equal(t, StageStatusInProgress, stage.Status)
	assert.NotNil(t, stage.StartedAt)

	err = stage.Start()
	assert.ErrorIs(t, err, ErrInvalidStageTransition)

	require.NoError(t, stage.Complete("all gates signed"))
	assert.Equal(t, StageStatusCompleted, stage.Status)
	assert.Equal(t, "all gates signed", stage.Notes)
	assert.NotNil(t, stage.CompletedAt)
}

func TestStageReworkRequiresReason(t *testing.T) {
	stage := NewProcessStage("PROC-001", testDefinition().Stages[0], 1)
	require.NoError(t, stage.Start())

	err := stage.Rework("", "notes")
	assert.ErrorIs(t, err, ErrReworkReasonRequired)

	require.NoError(t, stage.Rework("temperature excursion", "send back to holding"))
	assert.Equal(t, StageStatusReworked, stage.Status)
	assert.Equal(t, "temperature excursion", stage.ReworkReason)
}

func TestStageReworkOnlyFromInProgress(t *testing.T) {
	stage := NewProcessStage("PROC-001", testDefinition().Stages[0], 1)

	err := stage.Rework("reason", "")
	assert.ErrorIs(t, err, ErrInvalidStageTransition)
}

func TestNewStageMonitoringRequirement(t *testing.T) {
	min := 72.0
	hold := 0.25

	tests := []struct {
		name        string
		cond        workflow.Condition
		expectType  workflow.RequirementType
		expectMin   *float64
		expectError error
	}{
		{
			name: "min value temperature",
			cond: workflow.Condition{
				Type: workflow.ConditionMinValue, Metric: "temperature_celsius",
				Min: &min, ToleranceWindowSeconds: 30, Unit: "C",
			},
			expectType: workflow.RequirementTemperature,
			expectMin:  &min,
		},
		{
			name: "hold time bound comes from hold_time_minutes",
			cond: workflow.Condition{
				Type: workflow.ConditionHoldTimeMin, Metric: "hold_time_minutes",
				HoldTimeMinutes: &hold, Unit: "min",
			},
			expectType: workflow.RequirementTime,
			expectMin:  &hold,
		},
		{
			name: "capture metric composition",
			cond: workflow.Condition{
				Type: workflow.ConditionCaptureMetric, Metric: "titratable_acidity",
			},
			expectType: workflow.RequirementComposition,
		},
		{
			name: "unknown metric is rejected",
			cond: workflow.Condition{
				Type: workflow.ConditionMinValue, Metric: "salinity_ppm",
			},
			expectError: workflow.ErrUnknownMetric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewStageMonitoringRequirement("PROC-001", "pasteurization", tt.cond, workflow.Frequency30Minutes)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, req)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, req)
			assert.NotEmpty(t, req.RequirementID)
			assert.Equal(t, tt.expectType, req.RequirementType)
			assert.Equal(t, workflow.Frequency30Minutes, req.Frequency)
			if tt.expectMin != nil {
				require.NotNil(t, req.MinValue)
				assert.Equal(t, *tt.expectMin, *req.MinValue)
			}
		})
	}
}

func TestRequirementInTolerance(t *testing.T) {
	min := 72.0
	max := 4.0
	lo := 6.6
	hi := 6.8
	hold := 0.25

	tests := []struct {
		name   string
		req    StageMonitoringRequirement
		value  float64
		expect bool
	}{
		{name: "min value at bound", req: StageMonitoringRequirement{ConditionType: workflow.ConditionMinValue, MinValue: &min}, value: 72.0, expect: true},
		{name: "min value below bound", req: StageMonitoringRequirement{ConditionType: workflow.ConditionMinValue, MinValue: &min}, value: 71.9, expect: false},
		{name: "max value at bound", req: StageMonitoringRequirement{ConditionType: workflow.ConditionMaxValue, MaxValue: &max}, value: 4.0, expect: true},
		{name: "max value above bound", req: StageMonitoringRequirement{ConditionType: workflow.ConditionMaxValue, MaxValue: &max}, value: 4.5, expect: false},
		{name: "range inside", req: StageMonitoringRequirement{ConditionType: workflow.ConditionRangeValue, MinValue: &lo, MaxValue: &hi}, value: 6.7, expect: true},
		{name: "range below", req: StageMonitoringRequirement{ConditionType: workflow.ConditionRangeValue, MinValue: &lo, MaxValue: &hi}, value: 6.5, expect: false},
		{name: "range above", req: StageMonitoringRequirement{ConditionType: workflow.ConditionRangeValue, MinValue: &lo, MaxValue: &hi}, value: 6.9, expect: false},
		{name: "hold time met", req: StageMonitoringRequirement{ConditionType: workflow.ConditionHoldTimeMin, MinValue: &hold}, value: 0.3, expect: true},
		{name: "hold time short", req: StageMonitoringRequirement{ConditionType: workflow.ConditionHoldTimeMin, MinValue: &hold}, value: 0.2, expect: false},
		{name: "capture metric never judges", req: StageMonitoringRequirement{ConditionType: workflow.ConditionCaptureMetric}, value: -99, expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.req.InTolerance(tt.value))
		})
	}
}
