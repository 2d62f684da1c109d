package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func twoStepChange(t *testing.T) *ChangeRequest {
	t.Helper()
	change, err := NewChangeRequest("CR-2026-001", "Raise pasteurization hold time",
		"Increase HTST hold from 15s to 20s", "new supplier raw milk profile", "OPS-001",
		[]ApproverSpec{
			{Sequence: 1, ApproverID: "QA-001"},
			{Sequence: 2, ApproverID: "FSM-001"},
		})
	require.NoError(t, err)
	return change
}

func TestNewChangeRequest(t *testing.T) {
	change := twoStepChange(t)

	assert.NotEmpty(t, change.ChangeID)
	assert.Equal(t, ChangeStatusAssessing, change.Status)
	require.Len(t, change.Approvals, 2)
	assert.Equal(t, DecisionPending, change.Approvals[0].Decision)
	assert.Equal(t, DecisionPending, change.Approvals[1].Decision)

	events := change.DomainEvents()
	require.Len(t, events, 1)
	submitted, ok := events[0].(*ChangeSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, 2, submitted.Approvers)
}

func TestNewChangeRequestValidation(t *testing.T) {
	_, err := NewChangeRequest("CR-001", "t", "", "", "OPS-001", nil)
	assert.ErrorIs(t, err, ErrApproversRequired)

	_, err = NewChangeRequest("CR-001", "t", "", "", "OPS-001", []ApproverSpec{
		{Sequence: 1, ApproverID: "QA-001"},
		{Sequence: 1, ApproverID: "FSM-001"},
	})
	assert.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestDecideStepApprovalChain(t *testing.T) {
	change := twoStepChange(t)
	change.ClearDomainEvents()

	// First approval leaves the request assessing
	seq, err := change.DecideStep("QA-001", nil, DecisionApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, ChangeStatusAssessing, change.Status)
	assert.Empty(t, change.DomainEvents())

	// Last approval approves the whole request
	seq, err = change.DecideStep("FSM-001", nil, DecisionApproved, "verified")
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
	assert.Equal(t, ChangeStatusApproved, change.Status)
	assert.NotNil(t, change.DecidedAt)

	events := change.DomainEvents()
	require.Len(t, events, 1)
	_, ok := events[0].(*ChangeApprovedEvent)
	assert.True(t, ok)
}

func TestDecideStepRejectionShortCircuits(t *testing.T) {
	change := twoStepChange(t)
	change.ClearDomainEvents()

	seq, err := change.DecideStep("QA-001", nil, DecisionRejected, "insufficient validation data")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, ChangeStatusRejected, change.Status)
	assert.NotNil(t, change.DecidedAt)

	// Second step stays pending but the request no longer accepts decisions
	assert.Equal(t, DecisionPending, change.Approvals[1].Decision)
	_, err = change.DecideStep("FSM-001", nil, DecisionApproved, "")
	assert.ErrorIs(t, err, ErrInvalidChangeTransition)

	events := change.DomainEvents()
	require.Len(t, events, 1)
	rejected, ok := events[0].(*ChangeRejectedEvent)
	require.True(t, ok)
	assert.Equal(t, "insufficient validation data", rejected.Comments)
}

func TestDecideStepWrongApprover(t *testing.T) {
	change := twoStepChange(t)

	// Step 1 belongs to QA-001; FSM-001 must wait
	_, err := change.DecideStep("FSM-001", nil, DecisionApproved, "")
	assert.ErrorIs(t, err, ErrNotAssignedApprover)
}

func TestDecideStepExplicitSequence(t *testing.T) {
	change := twoStepChange(t)

	// Requesting a sequence that is not pending for this approver
	_, err := change.DecideStep("FSM-001", intPtr(3), DecisionApproved, "")
	assert.ErrorIs(t, err, ErrNoPendingApproval)

	_, err = change.DecideStep("FSM-001", intPtr(2), DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, change.Approvals[1].Decision)

	// Earliest pending is still step 1
	_, err = change.DecideStep("QA-001", nil, DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, ChangeStatusApproved, change.Status)
}

func TestDecideStepInvalidDecision(t *testing.T) {
	change := twoStepChange(t)

	_, err := change.DecideStep("QA-001", nil, DecisionPending, "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestImplementAndVerify(t *testing.T) {
	change := twoStepChange(t)
	_, err := change.DecideStep("QA-001", nil, DecisionApproved, "")
	require.NoError(t, err)
	_, err = change.DecideStep("FSM-001", nil, DecisionApproved, "")
	require.NoError(t, err)
	change.ClearDomainEvents()

	require.NoError(t, change.Implement("ENG-001"))
	assert.Equal(t, ChangeStatusImplemented, change.Status)
	assert.NotNil(t, change.ImplementedAt)

	require.NoError(t, change.VerifyAndClose("FSM-001"))
	assert.Equal(t, ChangeStatusClosed, change.Status)
	assert.NotNil(t, change.VerifiedAt)
	assert.NotNil(t, change.ClosedAt)

	events := change.DomainEvents()
	require.Len(t, events, 2)
	_, ok := events[0].(*ChangeImplementedEvent)
	assert.True(t, ok)
	_, ok = events[1].(*ChangeClosedEvent)
	assert.True(t, ok)
}

func TestImplementRequiresApproval(t *testing.T) {
	change := twoStepChange(t)

	err := change.Implement("ENG-001")
	assert.ErrorIs(t, err, ErrInvalidChangeTransition)
}

func TestVerifyRequiresImplemented(t *testing.T) {
	change := twoStepChange(t)

	err := change.VerifyAndClose("FSM-001")
	assert.ErrorIs(t, err, ErrInvalidChangeTransition)
}
