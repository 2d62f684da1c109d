package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNC(t *testing.T) *NonConformance {
	t.Helper()
	nc, err := NewNonConformance("NC-2026-014", SourceProduction, NCSeverityMajor,
		"Pasteurization temperature excursion", "HTST dipped to 70C for 40s",
		"BATCH-0142", "PROC-0a1b2c3d", "OP-001")
	require.NoError(t, err)
	return nc
}

func TestNewNonConformance(t *testing.T) {
	nc := openNC(t)

	assert.NotEmpty(t, nc.NCID)
	assert.Equal(t, "NC-2026-014", nc.NCNumber)
	assert.Equal(t, NCStatusOpen, nc.Status)
	assert.Equal(t, "BATCH-0142", nc.BatchNumber)
	assert.Empty(t, nc.Actions)

	events := nc.DomainEvents()
	require.Len(t, events, 1)
	raised, ok := events[0].(*NonConformanceRaisedEvent)
	require.True(t, ok)
	assert.Equal(t, "production", raised.Source)
	assert.Equal(t, "BATCH-0142", raised.BatchNumber)
}

func TestNewNonConformanceValidation(t *testing.T) {
	_, err := NewNonConformance("NC-001", NCSource("weather"), NCSeverityMinor, "t", "", "", "", "OP-001")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewNonConformance("NC-001", SourceAudit, NCSeverity("catastrophic"), "t", "", "", "", "OP-001")
	assert.ErrorIs(t, err, ErrInvalidNCSeverity)
}

func TestAdvanceFollowsLinearLifecycle(t *testing.T) {
	nc := openNC(t)
	nc.ClearDomainEvents()

	require.NoError(t, nc.Advance(NCStatusUnderReview))
	require.NoError(t, nc.Advance(NCStatusCorrectiveAction))
	require.NoError(t, nc.Advance(NCStatusVerified))
	assert.NotNil(t, nc.VerifiedAt)

	require.NoError(t, nc.Advance(NCStatusClosed))
	assert.Equal(t, NCStatusClosed, nc.Status)
	assert.NotNil(t, nc.ClosedAt)

	events := nc.DomainEvents()
	require.Len(t, events, 1)
	_, ok := events[0].(*NonConformanceClosedEvent)
	assert.True(t, ok)
}

func TestAdvanceRejectsSkippedSteps(t *testing.T) {
	tests := []struct {
		name   string
		from   NCStatus
		target NCStatus
	}{
		{"open cannot jump to corrective action", NCStatusOpen, NCStatusCorrectiveAction},
		{"open cannot jump to closed", NCStatusOpen, NCStatusClosed},
		{"under review cannot go back to open", NCStatusUnderReview, NCStatusOpen},
		{"verified cannot repeat itself", NCStatusVerified, NCStatusVerified},
		{"closed is terminal", NCStatusClosed, NCStatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := openNC(t)
			nc.Status = tt.from

			err := nc.Advance(tt.target)
			assert.ErrorIs(t, err, ErrInvalidNCTransition)
		})
	}
}

func TestCloseBlockedByOpenCAPAActions(t *testing.T) {
	nc := openNC(t)
	due := time.Now().UTC().Add(7 * 24 * time.Hour)

	action, err := nc.AddAction(CAPACorrective, "Recalibrate HTST temperature probe", "ENG-001", due)
	require.NoError(t, err)

	require.NoError(t, nc.Advance(NCStatusUnderReview))
	require.NoError(t, nc.Advance(NCStatusCorrectiveAction))
	require.NoError(t, nc.Advance(NCStatusVerified))

	err = nc.Advance(NCStatusClosed)
	assert.ErrorIs(t, err, ErrOpenCAPAActions)
	assert.Equal(t, NCStatusVerified, nc.Status)

	require.NoError(t, nc.CompleteAction(action.ActionID))
	require.NoError(t, nc.Advance(NCStatusClosed))
	assert.Equal(t, NCStatusClosed, nc.Status)
}

func TestAddActionValidation(t *testing.T) {
	nc := openNC(t)
	due := time.Now().UTC().Add(24 * time.Hour)

	_, err := nc.AddAction(CAPAType("reactive"), "d", "ENG-001", due)
	assert.Error(t, err)

	nc.Status = NCStatusClosed
	_, err = nc.AddAction(CAPAPreventive, "d", "ENG-001", due)
	assert.ErrorIs(t, err, ErrInvalidNCTransition)
}

func TestCompleteAction(t *testing.T) {
	nc := openNC(t)
	due := time.Now().UTC().Add(24 * time.Hour)

	action, err := nc.AddAction(CAPAPreventive, "Add daily probe verification to PRPs", "QA-001", due)
	require.NoError(t, err)

	require.NoError(t, nc.CompleteAction(action.ActionID))
	assert.True(t, nc.Actions[0].Completed)
	assert.NotNil(t, nc.Actions[0].CompletedAt)

	assert.ErrorIs(t, nc.CompleteAction(action.ActionID), ErrCAPACompleted)
	assert.ErrorIs(t, nc.CompleteAction("CAPA-missing"), ErrCAPANotFound)
}
