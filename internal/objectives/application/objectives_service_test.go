package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsms-platform/fsms-service/internal/objectives/domain"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

type fakeObjectiveRepo struct {
	saveFn  func(ctx context.Context, objective *domain.FoodSafetyObjective) error
	findFn  func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error)
	listFn  func(ctx context.Context, filter domain.ObjectiveFilter, pagination domain.Pagination) ([]*domain.FoodSafetyObjective, error)
	countFn func(ctx context.Context, filter domain.ObjectiveFilter) (int64, error)
}

func (f *fakeObjectiveRepo) Save(ctx context.Context, objective *domain.FoodSafetyObjective) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, objective)
}

func (f *fakeObjectiveRepo) FindByObjectiveID(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
	if f.findFn == nil {
		return nil, nil
	}
	return f.findFn(ctx, objectiveID)
}

func (f *fakeObjectiveRepo) List(ctx context.Context, filter domain.ObjectiveFilter, pagination domain.Pagination) ([]*domain.FoodSafetyObjective, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, filter, pagination)
}

func (f *fakeObjectiveRepo) Count(ctx context.Context, filter domain.ObjectiveFilter) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx, filter)
}

type fakeTargetRepo struct {
	saveFn          func(ctx context.Context, target *domain.ObjectiveTarget) error
	findByObjFn     func(ctx context.Context, objectiveID string) ([]*domain.ObjectiveTarget, error)
	findForPeriodFn func(ctx context.Context, objectiveID string, date time.Time) (*domain.ObjectiveTarget, error)
}

func (f *fakeTargetRepo) Save(ctx context.Context, target *domain.ObjectiveTarget) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, target)
}

func (f *fakeTargetRepo) FindByObjectiveID(ctx context.Context, objectiveID string) ([]*domain.ObjectiveTarget, error) {
	if f.findByObjFn == nil {
		return nil, nil
	}
	return f.findByObjFn(ctx, objectiveID)
}

func (f *fakeTargetRepo) FindForPeriod(ctx context.Context, objectiveID string, date time.Time) (*domain.ObjectiveTarget, error) {
	if f.findForPeriodFn == nil {
		return nil, nil
	}
	return f.findForPeriodFn(ctx, objectiveID, date)
}

type fakeProgressRepo struct {
	saveFn      func(ctx context.Context, progress *domain.ObjectiveProgress) error
	findByObjFn func(ctx context.Context, objectiveID string, pagination domain.Pagination) ([]*domain.ObjectiveProgress, error)
}

func (f *fakeProgressRepo) Save(ctx context.Context, progress *domain.ObjectiveProgress) error {
	if f.saveFn == nil {
		return nil
	}
	return f.saveFn(ctx, progress)
}

func (f *fakeProgressRepo) FindByObjectiveID(ctx context.Context, objectiveID string, pagination domain.Pagination) ([]*domain.ObjectiveProgress, error) {
	if f.findByObjFn == nil {
		return nil, nil
	}
	return f.findByObjFn(ctx, objectiveID, pagination)
}

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("objectives-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func newTestService(objRepo domain.ObjectiveRepository, targetRepo domain.TargetRepository, progressRepo domain.ProgressRepository) *ObjectivesService {
	return NewObjectivesService(objRepo, targetRepo, progressRepo, testLogger())
}

func objectiveFixture() *domain.FoodSafetyObjective {
	objective := domain.NewFoodSafetyObjective(
		"Reduce customer complaints",
		"Complaints per million units shipped",
		"customer",
		"complaint_rate",
		"ppm",
		"USR-QA-01",
	)
	objective.ClearDomainEvents()
	return objective
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateObjective(t *testing.T) {
	var saved *domain.FoodSafetyObjective
	objRepo := &fakeObjectiveRepo{
		saveFn: func(ctx context.Context, objective *domain.FoodSafetyObjective) error {
			saved = objective
			return nil
		},
	}
	service := newTestService(objRepo, &fakeTargetRepo{}, &fakeProgressRepo{})

	dto, err := service.CreateObjective(context.Background(), CreateObjectiveCommand{
		Title:   "Reduce customer complaints",
		Metric:  "complaint_rate",
		Unit:    "ppm",
		OwnerID: "USR-QA-01",
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, saved.ObjectiveID, dto.ObjectiveID)
	assert.Equal(t, "active", dto.Status)
	assert.Equal(t, "complaint_rate", dto.Metric)
}

func TestSetTarget(t *testing.T) {
	objective := objectiveFixture()
	var saved *domain.ObjectiveTarget
	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return objective, nil
		},
	}
	targetRepo := &fakeTargetRepo{
		saveFn: func(ctx context.Context, target *domain.ObjectiveTarget) error {
			saved = target
			return nil
		},
	}
	service := newTestService(objRepo, targetRepo, &fakeProgressRepo{})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	dto, err := service.SetTarget(context.Background(), SetTargetCommand{
		ObjectiveID:    objective.ObjectiveID,
		PeriodStart:    start,
		PeriodEnd:      end,
		TargetValue:    5,
		UpperThreshold: floatPtr(8),
		IsLowerBetter:  true,
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, objective.ObjectiveID, dto.ObjectiveID)
	assert.Equal(t, 5.0, dto.TargetValue)
	assert.True(t, dto.IsLowerBetter)
}

func TestSetTargetInvertedPeriod(t *testing.T) {
	objective := objectiveFixture()
	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return objective, nil
		},
	}
	service := newTestService(objRepo, &fakeTargetRepo{}, &fakeProgressRepo{})

	_, err := service.SetTarget(context.Background(), SetTargetCommand{
		ObjectiveID: objective.ObjectiveID,
		PeriodStart: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TargetValue: 5,
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestSetTargetObjectiveNotFound(t *testing.T) {
	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return nil, nil
		},
	}
	service := newTestService(objRepo, &fakeTargetRepo{}, &fakeProgressRepo{})

	_, err := service.SetTarget(context.Background(), SetTargetCommand{
		ObjectiveID: "OBJ-missing",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestRecordProgressWithCoveringTarget(t *testing.T) {
	objective := objectiveFixture()
	target, err := domain.NewObjectiveTarget(
		objective.ObjectiveID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		5, nil, floatPtr(8), true,
	)
	require.NoError(t, err)

	var savedProgress *domain.ObjectiveProgress
	var savedObjective *domain.FoodSafetyObjective
	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return objective, nil
		},
		saveFn: func(ctx context.Context, o *domain.FoodSafetyObjective) error {
			savedObjective = o
			return nil
		},
	}
	targetRepo := &fakeTargetRepo{
		findForPeriodFn: func(ctx context.Context, objectiveID string, date time.Time) (*domain.ObjectiveTarget, error) {
			return target, nil
		},
	}
	progressRepo := &fakeProgressRepo{
		saveFn: func(ctx context.Context, progress *domain.ObjectiveProgress) error {
			savedProgress = progress
			return nil
		},
	}
	service := newTestService(objRepo, targetRepo, progressRepo)

	dto, err := service.RecordProgress(context.Background(), RecordProgressCommand{
		ObjectiveID: objective.ObjectiveID,
		PeriodDate:  time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		ActualValue: 4,
		RecordedBy:  "USR-QA-01",
	})

	require.NoError(t, err)
	require.NotNil(t, savedProgress)
	assert.Equal(t, target.TargetID, dto.TargetID)
	require.NotNil(t, dto.AttainmentPercent)
	assert.InDelta(t, 100, *dto.AttainmentPercent, 0.001)
	require.NotNil(t, dto.Status)
	assert.Equal(t, "on_track", *dto.Status)

	require.NotNil(t, savedObjective)
	events := savedObjective.DomainEvents()
	require.Len(t, events, 1)
	recorded, ok := events[0].(*domain.ProgressRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, dto.ProgressID, recorded.ProgressID)
	assert.Equal(t, "on_track", recorded.Status)
}

func TestRecordProgressWithoutTarget(t *testing.T) {
	objective := objectiveFixture()
	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return objective, nil
		},
	}
	service := newTestService(objRepo, &fakeTargetRepo{}, &fakeProgressRepo{})

	dto, err := service.RecordProgress(context.Background(), RecordProgressCommand{
		ObjectiveID: objective.ObjectiveID,
		PeriodDate:  time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		ActualValue: 4,
		RecordedBy:  "USR-QA-01",
	})

	require.NoError(t, err)
	assert.Empty(t, dto.TargetID)
	assert.Nil(t, dto.AttainmentPercent)
	assert.Nil(t, dto.Status)
}

func TestGetObjective(t *testing.T) {
	objective := objectiveFixture()
	target, err := domain.NewObjectiveTarget(
		objective.ObjectiveID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		5, nil, nil, true,
	)
	require.NoError(t, err)
	progress := domain.NewObjectiveProgress(
		objective.ObjectiveID, target,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		4.2, "", "USR-QA-01",
	)

	objRepo := &fakeObjectiveRepo{
		findFn: func(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
			return objective, nil
		},
	}
	targetRepo := &fakeTargetRepo{
		findByObjFn: func(ctx context.Context, objectiveID string) ([]*domain.ObjectiveTarget, error) {
			return []*domain.ObjectiveTarget{target}, nil
		},
	}
	progressRepo := &fakeProgressRepo{
		findByObjFn: func(ctx context.Context, objectiveID string, pagination domain.Pagination) ([]*domain.ObjectiveProgress, error) {
			assert.Equal(t, int64(50), pagination.Limit)
			return []*domain.ObjectiveProgress{progress}, nil
		},
	}
	service := newTestService(objRepo, targetRepo, progressRepo)

	detail, err := service.GetObjective(context.Background(), objective.ObjectiveID)

	require.NoError(t, err)
	assert.Equal(t, objective.ObjectiveID, detail.Objective.ObjectiveID)
	require.Len(t, detail.Targets, 1)
	assert.Equal(t, target.TargetID, detail.Targets[0].TargetID)
	require.Len(t, detail.Progress, 1)
	assert.Equal(t, progress.ProgressID, detail.Progress[0].ProgressID)
}

func TestGetObjectiveNotFound(t *testing.T) {
	service := newTestService(&fakeObjectiveRepo{}, &fakeTargetRepo{}, &fakeProgressRepo{})

	_, err := service.GetObjective(context.Background(), "OBJ-missing")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestListObjectives(t *testing.T) {
	objective := objectiveFixture()
	objRepo := &fakeObjectiveRepo{
		listFn: func(ctx context.Context, filter domain.ObjectiveFilter, pagination domain.Pagination) ([]*domain.FoodSafetyObjective, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, domain.ObjectiveStatusActive, *filter.Status)
			assert.Equal(t, int64(0), pagination.Skip)
			assert.Equal(t, int64(20), pagination.Limit)
			return []*domain.FoodSafetyObjective{objective}, nil
		},
		countFn: func(ctx context.Context, filter domain.ObjectiveFilter) (int64, error) {
			return 1, nil
		},
	}
	service := newTestService(objRepo, &fakeTargetRepo{}, &fakeProgressRepo{})

	dtos, total, err := service.ListObjectives(context.Background(), ListObjectivesQuery{Status: "active"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dtos, 1)
	assert.Equal(t, objective.ObjectiveID, dtos[0].ObjectiveID)
}

func TestListObjectivesInvalidStatus(t *testing.T) {
	service := newTestService(&fakeObjectiveRepo{}, &fakeTargetRepo{}, &fakeProgressRepo{})

	_, _, err := service.ListObjectives(context.Background(), ListObjectivesQuery{Status: "paused"})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}
