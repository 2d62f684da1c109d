package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeAttainmentLowerBetter(t *testing.T) {
	tests := []struct {
		name             string
		targetValue      float64
		upperThreshold   *float64
		actualValue      float64
		expectAttainment float64
		expectStatus     AttainmentStatus
	}{
		{
			name:             "under target is capped at 100",
			targetValue:      5,
			actualValue:      2,
			expectAttainment: 100,
			expectStatus:     AttainmentOnTrack,
		},
		{
			name:             "zero actual is full attainment",
			targetValue:      5,
			actualValue:      0,
			expectAttainment: 100,
			expectStatus:     AttainmentOnTrack,
		},
		{
			name:             "negative actual is full attainment",
			targetValue:      5,
			actualValue:      -1,
			expectAttainment: 100,
			expectStatus:     AttainmentOnTrack,
		},
		{
			name:             "over target is at risk",
			targetValue:      5,
			actualValue:      8,
			expectAttainment: 62.5,
			expectStatus:     AttainmentAtRisk,
		},
		{
			name:             "beyond upper threshold is off track",
			targetValue:      5,
			upperThreshold:   floatPtr(10),
			actualValue:      12,
			expectAttainment: 5.0 / 12 * 100,
			expectStatus:     AttainmentOffTrack,
		},
		{
			name:             "exactly on target",
			targetValue:      5,
			actualValue:      5,
			expectAttainment: 100,
			expectStatus:     AttainmentOnTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &ObjectiveTarget{
				TargetValue:    tt.targetValue,
				UpperThreshold: tt.upperThreshold,
				IsLowerBetter:  true,
			}

			attainment, status := ComputeAttainment(target, tt.actualValue)
			assert.InDelta(t, tt.expectAttainment, attainment, 0.0001)
			assert.Equal(t, tt.expectStatus, status)
		})
	}
}

func TestComputeAttainmentHigherBetter(t *testing.T) {
	tests := []struct {
		name             string
		targetValue      float64
		lowerThreshold   *float64
		actualValue      float64
		expectAttainment float64
		expectStatus     AttainmentStatus
	}{
		{
			name:             "at target",
			targetValue:      95,
			actualValue:      95,
			expectAttainment: 100,
			expectStatus:     AttainmentOnTrack,
		},
		{
			name:             "over target is not capped",
			targetValue:      95,
			actualValue:      114,
			expectAttainment: 120,
			expectStatus:     AttainmentOnTrack,
		},
		{
			name:             "below 90 percent is at risk",
			targetValue:      100,
			actualValue:      85,
			expectAttainment: 85,
			expectStatus:     AttainmentAtRisk,
		},
		{
			name:             "below lower threshold is off track",
			targetValue:      100,
			lowerThreshold:   floatPtr(80),
			actualValue:      75,
			expectAttainment: 75,
			expectStatus:     AttainmentOffTrack,
		},
		{
			name:             "zero target yields zero attainment",
			targetValue:      0,
			actualValue:      50,
			expectAttainment: 0,
			expectStatus:     AttainmentAtRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &ObjectiveTarget{
				TargetValue:    tt.targetValue,
				LowerThreshold: tt.lowerThreshold,
				IsLowerBetter:  false,
			}

			attainment, status := ComputeAttainment(target, tt.actualValue)
			assert.InDelta(t, tt.expectAttainment, attainment, 0.0001)
			assert.Equal(t, tt.expectStatus, status)
		})
	}
}

func TestNewObjectiveTargetRejectsInvertedPeriod(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)

	_, err := NewObjectiveTarget("OBJ-001", start, end, 10, nil, nil, true)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestObjectiveTargetCovers(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	target, err := NewObjectiveTarget("OBJ-001", start, end, 10, nil, nil, true)
	require.NoError(t, err)

	assert.True(t, target.Covers(start))
	assert.True(t, target.Covers(end))
	assert.True(t, target.Covers(start.Add(15*24*time.Hour)))
	assert.False(t, target.Covers(start.Add(-time.Second)))
	assert.False(t, target.Covers(end.Add(time.Second)))
}

func TestNewObjectiveProgressWithTarget(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	target, err := NewObjectiveTarget("OBJ-001", start, end, 100, nil, nil, false)
	require.NoError(t, err)

	progress := NewObjectiveProgress("OBJ-001", target, start.Add(48*time.Hour), 92, "", "QA-001")

	assert.Equal(t, target.TargetID, progress.TargetID)
	require.NotNil(t, progress.AttainmentPercent)
	assert.InDelta(t, 92, *progress.AttainmentPercent, 0.0001)
	require.NotNil(t, progress.Status)
	assert.Equal(t, AttainmentOnTrack, *progress.Status)
}

func TestNewObjectiveProgressWithoutTarget(t *testing.T) {
	progress := NewObjectiveProgress("OBJ-001", nil, time.Now().UTC(), 92, "no target yet", "QA-001")

	assert.Empty(t, progress.TargetID)
	assert.Nil(t, progress.AttainmentPercent)
	assert.Nil(t, progress.Status)
	assert.Equal(t, "no target yet", progress.Notes)
}
