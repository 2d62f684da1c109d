package application

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsms-platform/fsms-service/internal/change/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

type fakeChangeRepo struct {
	saveFn            func(ctx context.Context, change *domain.ChangeRequest) error
	saveWithPendingFn func(ctx context.Context, change *domain.ChangeRequest, sequence int) error
	findByIDFn        func(ctx context.Context, changeID string) (*domain.ChangeRequest, error)
	findByNumberFn    func(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error)
	listFn            func(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error)
	countFn           func(ctx context.Context, filter domain.ChangeFilter) (int64, error)
}

func (f *fakeChangeRepo) Save(ctx context.Context, change *domain.ChangeRequest) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, change)
}

func (f *fakeChangeRepo) SaveWithPendingStep(ctx context.Context, change *domain.ChangeRequest, sequence int) error {
	if f.saveWithPendingFn == nil {
		return nil
	}
	return f.saveWithPendingFn(ctx, change, sequence)
}

func (f *fakeChangeRepo) FindByChangeID(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
	if f.findByIDFn == nil {
		return nil, nil
	}
	return f.findByIDFn(ctx, changeID)
}

func (f *fakeChangeRepo) FindByChangeNumber(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error) {
	if f.findByNumberFn == nil {
		return nil, nil
	}
	return f.findByNumberFn(ctx, changeNumber)
}

func (f *fakeChangeRepo) List(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, filter, pagination)
}

func (f *fakeChangeRepo) Count(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, filter)
}

func newTestService(repo domain.ChangeRepository) *ChangeService {
	cfg := logging.DefaultConfig("change-test")
	cfg.Output = io.Discard
	return NewChangeService(repo, logging.New(cfg), nil)
}

func changeFixture(t *testing.T) *domain.ChangeRequest {
	t.Helper()
	change, err := domain.NewChangeRequest(
		"CHG-2026-021",
		"Raise pasteurization hold time",
		"Extend HTST hold from 15s to 25s",
		"Verification trend shows marginal lethality at 15s",
		"USR-PROD-04",
		[]domain.ApproverSpec{
			{Sequence: 1, ApproverID: "USR-QA-01"},
			{Sequence: 2, ApproverID: "USR-FSTL-01"},
		},
	)
	require.NoError(t, err)
	change.ClearDomainEvents()
	return change
}

func TestCreateChange(t *testing.T) {
	var saved *domain.ChangeRequest
	repo := &fakeChangeRepo{
		saveFn: func(ctx context.Context, change *domain.ChangeRequest) error {
			saved = change
			return nil
		},
	}
	service := newTestService(repo)

	dto, err := service.CreateChange(context.Background(), CreateChangeCommand{
		ChangeNumber: "CHG-2026-021",
		Title:        "Raise pasteurization hold time",
		RequestedBy:  "USR-PROD-04",
		Approvers: []ApproverInput{
			{Sequence: 1, ApproverID: "USR-QA-01"},
			{Sequence: 2, ApproverID: "USR-FSTL-01"},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, saved.ChangeID, dto.ChangeID)
	assert.Equal(t, "assessing", dto.Status)
	require.Len(t, dto.Approvals, 2)
	assert.Equal(t, "pending", dto.Approvals[0].Decision)
}

func TestCreateChangeDuplicateNumber(t *testing.T) {
	existing := changeFixture(t)
	repo := &fakeChangeRepo{
		findByNumberFn: func(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error) {
			return existing, nil
		},
	}
	service := newTestService(repo)

	_, err := service.CreateChange(context.Background(), CreateChangeCommand{
		ChangeNumber: "CHG-2026-021",
		Title:        "Duplicate",
		RequestedBy:  "USR-PROD-04",
		Approvers:    []ApproverInput{{Sequence: 1, ApproverID: "USR-QA-01"}},
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestCreateChangeDuplicateSequence(t *testing.T) {
	service := newTestService(&fakeChangeRepo{})

	_, err := service.CreateChange(context.Background(), CreateChangeCommand{
		ChangeNumber: "CHG-2026-022",
		Title:        "Bad chain",
		RequestedBy:  "USR-PROD-04",
		Approvers: []ApproverInput{
			{Sequence: 1, ApproverID: "USR-QA-01"},
			{Sequence: 1, ApproverID: "USR-FSTL-01"},
		},
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestApproveStepChain(t *testing.T) {
	change := changeFixture(t)
	var savedSequence int
	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
		saveWithPendingFn: func(ctx context.Context, c *domain.ChangeRequest, sequence int) error {
			savedSequence = sequence
			return nil
		},
	}
	service := newTestService(repo)

	dto, err := service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-QA-01",
		Decision:   "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, savedSequence)
	assert.Equal(t, "assessing", dto.Status)

	dto, err = service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-FSTL-01",
		Decision:   "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, savedSequence)
	assert.Equal(t, "approved", dto.Status)
}

func TestApproveStepRejection(t *testing.T) {
	change := changeFixture(t)
	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
	}
	service := newTestService(repo)

	dto, err := service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-QA-01",
		Decision:   "rejected",
		Comments:   "Needs validation run first",
	})

	require.NoError(t, err)
	assert.Equal(t, "rejected", dto.Status)
	assert.Equal(t, "pending", dto.Approvals[1].Decision)
}

func TestApproveStepWrongApprover(t *testing.T) {
	change := changeFixture(t)
	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
	}
	service := newTestService(repo)

	_, err := service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-INTRUDER",
		Decision:   "approved",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestApproveStepConcurrentDecision(t *testing.T) {
	change := changeFixture(t)
	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
		saveWithPendingFn: func(ctx context.Context, c *domain.ChangeRequest, sequence int) error {
			return domain.ErrConcurrentDecision
		},
	}
	service := newTestService(repo)

	_, err := service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-QA-01",
		Decision:   "approved",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestApproveStepOnDecidedChange(t *testing.T) {
	change := changeFixture(t)
	_, err := change.DecideStep("USR-QA-01", nil, domain.DecisionRejected, "no")
	require.NoError(t, err)

	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
	}
	service := newTestService(repo)

	_, err = service.ApproveStep(context.Background(), ApproveStepCommand{
		ChangeID:   change.ChangeID,
		ApproverID: "USR-FSTL-01",
		Decision:   "approved",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestImplementAndVerifyChange(t *testing.T) {
	change := changeFixture(t)
	_, err := change.DecideStep("USR-QA-01", nil, domain.DecisionApproved, "")
	require.NoError(t, err)
	_, err = change.DecideStep("USR-FSTL-01", nil, domain.DecisionApproved, "")
	require.NoError(t, err)

	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
	}
	service := newTestService(repo)

	dto, err := service.ImplementChange(context.Background(), ImplementChangeCommand{
		ChangeID:      change.ChangeID,
		ImplementedBy: "USR-PROD-04",
	})
	require.NoError(t, err)
	assert.Equal(t, "implemented", dto.Status)
	require.NotNil(t, dto.ImplementedAt)

	dto, err = service.VerifyChange(context.Background(), VerifyChangeCommand{
		ChangeID:   change.ChangeID,
		VerifiedBy: "USR-QA-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", dto.Status)
	require.NotNil(t, dto.VerifiedAt)
	require.NotNil(t, dto.ClosedAt)
}

func TestImplementChangeBeforeApproval(t *testing.T) {
	change := changeFixture(t)
	repo := &fakeChangeRepo{
		findByIDFn: func(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
			return change, nil
		},
	}
	service := newTestService(repo)

	_, err := service.ImplementChange(context.Background(), ImplementChangeCommand{
		ChangeID:      change.ChangeID,
		ImplementedBy: "USR-PROD-04",
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestGetChangeNotFound(t *testing.T) {
	service := newTestService(&fakeChangeRepo{})

	_, err := service.GetChange(context.Background(), "CHG-missing")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestListChanges(t *testing.T) {
	change := changeFixture(t)
	repo := &fakeChangeRepo{
		listFn: func(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, domain.ChangeStatusAssessing, *filter.Status)
			assert.Equal(t, int64(0), pagination.Skip)
			assert.Equal(t, int64(20), pagination.Limit)
			return []*domain.ChangeRequest{change}, nil
		},
		countFn: func(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
			return 1, nil
		},
	}
	service := newTestService(repo)

	dtos, total, err := service.ListChanges(context.Background(), ListChangesQuery{Status: "assessing"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dtos, 1)
	assert.Equal(t, change.ChangeID, dtos[0].ChangeID)
}

func TestListChangesInvalidStatus(t *testing.T) {
	service := newTestService(&fakeChangeRepo{})

	_, _, err := service.ListChanges(context.Background(), ListChangesQuery{Status: "parked"})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}
