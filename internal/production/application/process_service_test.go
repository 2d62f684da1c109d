package application

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsms-platform/fsms-service/internal/production/domain"
	"github.com/fsms-platform/fsms-service/internal/production/workflow"
	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
)

type fakeLoader struct {
	loadWorkflowFn func(workflow.ProductType) (*workflow.Definition, error)
	loadAllFn      func() (map[workflow.ProductType]*workflow.Definition, error)
}

func (f *fakeLoader) LoadWorkflow(pt workflow.ProductType) (*workflow.Definition, error) {
	if f.loadWorkflowFn != nil {
		return f.loadWorkflowFn(pt)
	}
	return nil, workflow.ErrDefinitionNotFound
}

func (f *fakeLoader) LoadAll() (map[workflow.ProductType]*workflow.Definition, error) {
	if f.loadAllFn != nil {
		return f.loadAllFn()
	}
	return nil, nil
}

type fakeProcessRepo struct {
	instantiateFn func(context.Context, *domain.ProductionProcess, []*domain.ProcessStage, []*domain.StageMonitoringRequirement) error
	saveFn        func(context.Context, *domain.ProductionProcess) error
	findFn        func(context.Context, string) (*domain.ProductionProcess, error)
	listFn        func(context.Context, domain.ProcessFilter, domain.Pagination) ([]*domain.ProductionProcess, error)
	countFn       func(context.Context, domain.ProcessFilter) (int64, error)
}

func (f *fakeProcessRepo) Instantiate(ctx context.Context, p *domain.ProductionProcess, s []*domain.ProcessStage, r []*domain.StageMonitoringRequirement) error {
	if f.instantiateFn != nil {
		return f.instantiateFn(ctx, p, s, r)
	}
	return nil
}

func (f *fakeProcessRepo) Save(ctx context.Context, p *domain.ProductionProcess) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, p)
	}
	return nil
}

func (f *fakeProcessRepo) FindByProcessID(ctx context.Context, processID string) (*domain.ProductionProcess, error) {
	if f.findFn != nil {
		return f.findFn(ctx, processID)
	}
	return nil, nil
}

func (f *fakeProcessRepo) FindByBatchNumber(ctx context.Context, batchNumber string) ([]*domain.ProductionProcess, error) {
	return nil, nil
}

func (f *fakeProcessRepo) List(ctx context.Context, filter domain.ProcessFilter, p domain.Pagination) ([]*domain.ProductionProcess, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter, p)
	}
	return nil, nil
}

func (f *fakeProcessRepo) Count(ctx context.Context, filter domain.ProcessFilter) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, filter)
	}
	return 0, nil
}

type fakeStageRepo struct {
	saveFn          func(context.Context, *domain.ProcessStage) error
	findByProcessFn func(context.Context, string) ([]*domain.ProcessStage, error)
	findByKeyFn     func(context.Context, string, string) (*domain.ProcessStage, error)
}

func (f *fakeStageRepo) Save(ctx context.Context, s *domain.ProcessStage) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, s)
	}
	return nil
}

func (f *fakeStageRepo) FindByProcessID(ctx context.Context, processID string) ([]*domain.ProcessStage, error) {
	if f.findByProcessFn != nil {
		return f.findByProcessFn(ctx, processID)
	}
	return nil, nil
}

func (f *fakeStageRepo) FindByProcessAndKey(ctx context.Context, processID, stageKey string) (*domain.ProcessStage, error) {
	if f.findByKeyFn != nil {
		return f.findByKeyFn(ctx, processID, stageKey)
	}
	return nil, nil
}

type fakeRequirementRepo struct {
	findByIDFn      func(context.Context, string) (*domain.StageMonitoringRequirement, error)
	findByProcessFn func(context.Context, string) ([]*domain.StageMonitoringRequirement, error)
	findByStageFn   func(context.Context, string, string) ([]*domain.StageMonitoringRequirement, error)
}

func (f *fakeRequirementRepo) FindByRequirementID(ctx context.Context, requirementID string) (*domain.StageMonitoringRequirement, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, requirementID)
	}
	return nil, nil
}

func (f *fakeRequirementRepo) FindByProcessID(ctx context.Context, processID string) ([]*domain.StageMonitoringRequirement, error) {
	if f.findByProcessFn != nil {
		return f.findByProcessFn(ctx, processID)
	}
	return nil, nil
}

func (f *fakeRequirementRepo) FindByProcessAndStage(ctx context.Context, processID, stageKey string) ([]*domain.StageMonitoringRequirement, error) {
	if f.findByStageFn != nil {
		return f.findByStageFn(ctx, processID, stageKey)
	}
	return nil, nil
}

type fakeLogRepo struct {
	appendFn       func(context.Context, *domain.ProcessLogEntry) error
	findByProcess  func(context.Context, string, domain.Pagination) ([]*domain.ProcessLogEntry, error)
	findReadingsFn func(context.Context, string, string, time.Time) ([]*domain.ProcessLogEntry, error)
	countFn        func(context.Context, string, domain.LogEventType) (int64, error)
}

func (f *fakeLogRepo) Append(ctx context.Context, entry *domain.ProcessLogEntry) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, entry)
	}
	return nil
}

func (f *fakeLogRepo) FindByProcessID(ctx context.Context, processID string, p domain.Pagination) ([]*domain.ProcessLogEntry, error) {
	if f.findByProcess != nil {
		return f.findByProcess(ctx, processID, p)
	}
	return nil, nil
}

func (f *fakeLogRepo) FindReadings(ctx context.Context, processID, requirementID string, since time.Time) ([]*domain.ProcessLogEntry, error) {
	if f.findReadingsFn != nil {
		return f.findReadingsFn(ctx, processID, requirementID, since)
	}
	return nil, nil
}

func (f *fakeLogRepo) CountByEventType(ctx context.Context, processID string, eventType domain.LogEventType) (int64, error) {
	if f.countFn != nil {
		return f.countFn(ctx, processID, eventType)
	}
	return 0, nil
}

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("production-test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func milkDefinition() *workflow.Definition {
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

func newTestEngine(loader DefinitionLoader, processRepo domain.ProcessRepository, stageRepo domain.StageRepository, reqRepo domain.RequirementRepository) *WorkflowEngine {
	return NewWorkflowEngine(loader, processRepo, stageRepo, reqRepo, testLogger(), nil)
}

func TestInstantiateProcess(t *testing.T) {
	loader := &fakeLoader{
		loadWorkflowFn: func(pt workflow.ProductType) (*workflow.Definition, error) {
			require.Equal(t, workflow.ProductTypeFreshMilk, pt)
			return milkDefinition(), nil
		},
	}

	var persistedStages []*domain.ProcessStage
	var persistedReqs []*domain.StageMonitoringRequirement
	processRepo := &fakeProcessRepo{
		instantiateFn: func(_ context.Context, p *domain.ProductionProcess, s []*domain.ProcessStage, r []*domain.StageMonitoringRequirement) error {
			persistedStages = s
			persistedReqs = r
			return nil
		},
	}

	engine := newTestEngine(loader, processRepo, &fakeStageRepo{}, &fakeRequirementRepo{})

	detail, err := engine.InstantiateProcess(context.Background(), InstantiateProcessCommand{
		BatchNumber: "BATCH-001",
		ProductType: "fresh_milk",
		OperatorID:  "OP-001",
	})
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "draft", detail.Process.Status)
	assert.Equal(t, 2, detail.Process.StageCount)
	require.Len(t, persistedStages, 2)
	assert.Equal(t, 1, persistedStages[0].SequenceOrder)
	assert.Equal(t, 2, persistedStages[1].SequenceOrder)
	assert.True(t, persistedStages[1].IsCriticalControlPoint)

	require.Len(t, persistedReqs, 2)
	assert.Equal(t, workflow.FrequencyPerBatch, persistedReqs[0].Frequency)
	assert.Equal(t, workflow.Frequency30Minutes, persistedReqs[1].Frequency)
	assert.Equal(t, 30, persistedReqs[1].ToleranceWindowSeconds)
}

func TestInstantiateProcessInvalidProductType(t *testing.T) {
	engine := newTestEngine(&fakeLoader{}, &fakeProcessRepo{}, &fakeStageRepo{}, &fakeRequirementRepo{})

	_, err := engine.InstantiateProcess(context.Background(), InstantiateProcessCommand{
		BatchNumber: "BATCH-001",
		ProductType: "ice_cream",
		OperatorID:  "OP-001",
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestInstantiateProcessMissingDefinition(t *testing.T) {
	engine := newTestEngine(&fakeLoader{}, &fakeProcessRepo{}, &fakeStageRepo{}, &fakeRequirementRepo{})

	_, err := engine.InstantiateProcess(context.Background(), InstantiateProcessCommand{
		BatchNumber: "BATCH-001",
		ProductType: "fresh_milk",
		OperatorID:  "OP-001",
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func processFixture(status domain.ProcessStatus) *domain.ProductionProcess {
	process := domain.NewProductionProcess("BATCH-001", "OP-001", workflow.ProductTypeFreshMilk, milkDefinition(), nil)
	process.ClearDomainEvents()
	process.Status = status
	return process
}

func stageFixture(process *domain.ProductionProcess, key string, status domain.StageStatus, autoDivert bool) *domain.ProcessStage {
	def := milkDefinition()
	var stageDef workflow.StageDefinition
	for _, s := range def.Stages {
		if s.Key == key {
			stageDef = s
		}
	}
	stage := domain.NewProcessStage(process.ProcessID, stageDef, 1)
	stage.Status = status
	stage.AutoDivert = autoDivert
	return stage
}

func newTestService(processRepo *fakeProcessRepo, stageRepo *fakeStageRepo, reqRepo *fakeRequirementRepo, logRepo *fakeLogRepo) *ProcessService {
	engine := newTestEngine(&fakeLoader{}, processRepo, stageRepo, reqRepo)
	return NewProcessService(engine, processRepo, stageRepo, reqRepo, logRepo, testLogger(), nil)
}

func TestStartProcess(t *testing.T) {
	process := processFixture(domain.ProcessStatusDraft)
	firstStage := stageFixture(process, "reception", domain.StageStatusPending, false)

	var saved *domain.ProductionProcess
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, processID string) (*domain.ProductionProcess, error) {
			return process, nil
		},
		saveFn: func(_ context.Context, p *domain.ProductionProcess) error {
			saved = p
			return nil
		},
	}
	stageRepo := &fakeStageRepo{
		findByProcessFn: func(_ context.Context, _ string) ([]*domain.ProcessStage, error) {
			return []*domain.ProcessStage{firstStage}, nil
		},
	}
	max := 6.0
	reqRepo := &fakeRequirementRepo{
		findByStageFn: func(_ context.Context, _, stageKey string) ([]*domain.StageMonitoringRequirement, error) {
			require.Equal(t, "reception", stageKey)
			return []*domain.StageMonitoringRequirement{
				{RequirementID: "REQ-001", StageKey: stageKey, MaxValue: &max},
			}, nil
		},
	}

	service := newTestService(processRepo, stageRepo, reqRepo, &fakeLogRepo{})

	dto, err := service.StartProcess(context.Background(), StartProcessCommand{ProcessID: process.ProcessID})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", dto.Status)
	require.NotNil(t, saved)
	assert.Equal(t, domain.ProcessStatusInProgress, saved.Status)
}

func TestStartProcessFailsReadinessWithoutRequirements(t *testing.T) {
	process := processFixture(domain.ProcessStatusDraft)
	firstStage := stageFixture(process, "reception", domain.StageStatusPending, false)

	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) {
			return process, nil
		},
	}
	stageRepo := &fakeStageRepo{
		findByProcessFn: func(_ context.Context, _ string) ([]*domain.ProcessStage, error) {
			return []*domain.ProcessStage{firstStage}, nil
		},
	}

	service := newTestService(processRepo, stageRepo, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, err := service.StartProcess(context.Background(), StartProcessCommand{ProcessID: process.ProcessID})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestStartProcessNotFound(t *testing.T) {
	service := newTestService(&fakeProcessRepo{}, &fakeStageRepo{}, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, err := service.StartProcess(context.Background(), StartProcessCommand{ProcessID: "PROC-missing"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestTransitionStageCompleteFinishesProcess(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	stage := stageFixture(process, "pasteurization", domain.StageStatusInProgress, true)
	doneStage := stageFixture(process, "reception", domain.StageStatusCompleted, false)

	var savedProcess *domain.ProductionProcess
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) {
			return process, nil
		},
		saveFn: func(_ context.Context, p *domain.ProductionProcess) error {
			savedProcess = p
			return nil
		},
	}
	stageRepo := &fakeStageRepo{
		findByKeyFn: func(_ context.Context, _, stageKey string) (*domain.ProcessStage, error) {
			return stage, nil
		},
		findByProcessFn: func(_ context.Context, _ string) ([]*domain.ProcessStage, error) {
			return []*domain.ProcessStage{doneStage, stage}, nil
		},
	}
	var logged []*domain.ProcessLogEntry
	logRepo := &fakeLogRepo{
		appendFn: func(_ context.Context, entry *domain.ProcessLogEntry) error {
			logged = append(logged, entry)
			return nil
		},
	}

	service := newTestService(processRepo, stageRepo, &fakeRequirementRepo{}, logRepo)

	dto, err := service.TransitionStage(context.Background(), TransitionStageCommand{
		ProcessID:  process.ProcessID,
		StageKey:   "pasteurization",
		Action:     ActionComplete,
		Notes:      "esign gate satisfied",
		OperatorID: "OP-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", dto.Status)

	// Last stage completed, so the process completed too
	require.NotNil(t, savedProcess)
	assert.Equal(t, domain.ProcessStatusCompleted, savedProcess.Status)

	require.Len(t, logged, 1)
	assert.Equal(t, domain.LogEventTransition, logged[0].EventType)
	assert.Contains(t, logged[0].Reason, "in_progress -> completed")

	// Stage completed + process completed domain events pending on the aggregate
	events := savedProcess.DomainEvents()
	require.Len(t, events, 2)
	_, ok := events[0].(*domain.StageCompletedEvent)
	assert.True(t, ok)
	_, ok = events[1].(*domain.ProcessCompletedEvent)
	assert.True(t, ok)
}

func TestTransitionStageReworkRequiresReason(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	stage := stageFixture(process, "pasteurization", domain.StageStatusInProgress, true)

	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) {
			return process, nil
		},
	}
	stageRepo := &fakeStageRepo{
		findByKeyFn: func(_ context.Context, _, _ string) (*domain.ProcessStage, error) {
			return stage, nil
		},
	}

	service := newTestService(processRepo, stageRepo, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, err := service.TransitionStage(context.Background(), TransitionStageCommand{
		ProcessID:  process.ProcessID,
		StageKey:   "pasteurization",
		Action:     ActionRework,
		OperatorID: "OP-001",
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestTransitionStageRejectedWhileProcessNotInProgress(t *testing.T) {
	process := processFixture(domain.ProcessStatusDraft)
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) {
			return process, nil
		},
	}

	service := newTestService(processRepo, &fakeStageRepo{}, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, err := service.TransitionStage(context.Background(), TransitionStageCommand{
		ProcessID:  process.ProcessID,
		StageKey:   "reception",
		Action:     ActionStart,
		OperatorID: "OP-001",
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func htstRequirement(process *domain.ProductionProcess) *domain.StageMonitoringRequirement {
	min := 72.0
	return &domain.StageMonitoringRequirement{
		RequirementID:          "REQ-HTST",
		ProcessID:              process.ProcessID,
		StageKey:               "pasteurization",
		ConditionType:          workflow.ConditionMinValue,
		Metric:                 "temperature_celsius",
		Unit:                   "C",
		MinValue:               &min,
		ToleranceWindowSeconds: 30,
	}
}

func TestRecordReadingInTolerance(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	req := htstRequirement(process)
	stage := stageFixture(process, "pasteurization", domain.StageStatusInProgress, true)

	var logged []*domain.ProcessLogEntry
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) { return process, nil },
	}
	stageRepo := &fakeStageRepo{
		findByKeyFn: func(_ context.Context, _, _ string) (*domain.ProcessStage, error) { return stage, nil },
	}
	reqRepo := &fakeRequirementRepo{
		findByIDFn: func(_ context.Context, _ string) (*domain.StageMonitoringRequirement, error) { return req, nil },
	}
	logRepo := &fakeLogRepo{
		appendFn: func(_ context.Context, entry *domain.ProcessLogEntry) error {
			logged = append(logged, entry)
			return nil
		},
	}

	service := newTestService(processRepo, stageRepo, reqRepo, logRepo)

	result, err := service.RecordReading(context.Background(), RecordReadingCommand{
		ProcessID:     process.ProcessID,
		RequirementID: "REQ-HTST",
		Value:         72.8,
		RecordedBy:    "sensor-4",
	})
	require.NoError(t, err)

	assert.True(t, result.InTolerance)
	assert.False(t, result.Diverted)
	assert.Nil(t, result.DivertEntry)
	require.Len(t, logged, 1)
	assert.Equal(t, domain.LogEventReading, logged[0].EventType)
}

func TestRecordReadingDivertsAfterWindow(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	req := htstRequirement(process)
	stage := stageFixture(process, "pasteurization", domain.StageStatusInProgress, true)

	earlier := time.Now().UTC().Add(-40 * time.Second)
	priorInTolerance := false
	priorValue := 70.0
	history := []*domain.ProcessLogEntry{
		{
			EventType:     domain.LogEventReading,
			RequirementID: req.RequirementID,
			Value:         &priorValue,
			InTolerance:   &priorInTolerance,
			RecordedAt:    earlier,
		},
	}

	var logged []*domain.ProcessLogEntry
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) { return process, nil },
	}
	stageRepo := &fakeStageRepo{
		findByKeyFn: func(_ context.Context, _, _ string) (*domain.ProcessStage, error) { return stage, nil },
	}
	reqRepo := &fakeRequirementRepo{
		findByIDFn: func(_ context.Context, _ string) (*domain.StageMonitoringRequirement, error) { return req, nil },
	}
	logRepo := &fakeLogRepo{
		appendFn: func(_ context.Context, entry *domain.ProcessLogEntry) error {
			logged = append(logged, entry)
			return nil
		},
		findReadingsFn: func(_ context.Context, _, requirementID string, _ time.Time) ([]*domain.ProcessLogEntry, error) {
			require.Equal(t, req.RequirementID, requirementID)
			return history, nil
		},
	}

	service := newTestService(processRepo, stageRepo, reqRepo, logRepo)

	result, err := service.RecordReading(context.Background(), RecordReadingCommand{
		ProcessID:     process.ProcessID,
		RequirementID: "REQ-HTST",
		Value:         70.5,
		RecordedBy:    "sensor-4",
	})
	require.NoError(t, err)

	assert.False(t, result.InTolerance)
	assert.True(t, result.Diverted)
	require.NotNil(t, result.DivertEntry)

	// Reading entry plus divert entry; the stage status is untouched
	require.Len(t, logged, 2)
	assert.Equal(t, domain.LogEventReading, logged[0].EventType)
	assert.Equal(t, domain.LogEventDivert, logged[1].EventType)
	assert.Equal(t, "system", logged[1].RecordedBy)
	assert.Equal(t, domain.StageStatusInProgress, stage.Status)

	var diverted bool
	for _, event := range process.DomainEvents() {
		if _, ok := event.(*domain.BatchDivertedEvent); ok {
			diverted = true
		}
	}
	assert.True(t, diverted)
}

func TestRecordReadingUnknownRequirement(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) { return process, nil },
	}

	service := newTestService(processRepo, &fakeStageRepo{}, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, err := service.RecordReading(context.Background(), RecordReadingCommand{
		ProcessID:     process.ProcessID,
		RequirementID: "REQ-missing",
		Value:         72,
		RecordedBy:    "sensor-4",
	})

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestRecordLogEntryYield(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	stage := stageFixture(process, "reception", domain.StageStatusInProgress, false)

	var logged *domain.ProcessLogEntry
	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) { return process, nil },
	}
	stageRepo := &fakeStageRepo{
		findByKeyFn: func(_ context.Context, _, _ string) (*domain.ProcessStage, error) { return stage, nil },
	}
	logRepo := &fakeLogRepo{
		appendFn: func(_ context.Context, entry *domain.ProcessLogEntry) error {
			logged = entry
			return nil
		},
	}

	service := newTestService(processRepo, stageRepo, &fakeRequirementRepo{}, logRepo)

	dto, err := service.RecordLogEntry(context.Background(), RecordLogEntryCommand{
		ProcessID:  process.ProcessID,
		StageKey:   "reception",
		EventType:  "yield",
		Quantity:   4850,
		Unit:       "liters",
		RecordedBy: "OP-001",
	})
	require.NoError(t, err)

	assert.Equal(t, "yield", dto.EventType)
	require.NotNil(t, logged)
	require.NotNil(t, logged.Value)
	assert.Equal(t, 4850.0, *logged.Value)
}

func TestGetProcessSummary(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	req := htstRequirement(process)
	stage := stageFixture(process, "pasteurization", domain.StageStatusInProgress, true)
	doneStage := stageFixture(process, "reception", domain.StageStatusCompleted, false)

	value := 72.4
	inTol := true
	latest := &domain.ProcessLogEntry{
		EventType:     domain.LogEventReading,
		RequirementID: req.RequirementID,
		Value:         &value,
		InTolerance:   &inTol,
		RecordedAt:    time.Now().UTC(),
	}

	processRepo := &fakeProcessRepo{
		findFn: func(_ context.Context, _ string) (*domain.ProductionProcess, error) { return process, nil },
	}
	stageRepo := &fakeStageRepo{
		findByProcessFn: func(_ context.Context, _ string) ([]*domain.ProcessStage, error) {
			return []*domain.ProcessStage{doneStage, stage}, nil
		},
	}
	reqRepo := &fakeRequirementRepo{
		findByProcessFn: func(_ context.Context, _ string) ([]*domain.StageMonitoringRequirement, error) {
			return []*domain.StageMonitoringRequirement{req}, nil
		},
	}
	logRepo := &fakeLogRepo{
		countFn: func(_ context.Context, _ string, eventType domain.LogEventType) (int64, error) {
			if eventType == domain.LogEventDivert {
				return 1, nil
			}
			return 12, nil
		},
		findReadingsFn: func(_ context.Context, _, _ string, _ time.Time) ([]*domain.ProcessLogEntry, error) {
			return []*domain.ProcessLogEntry{latest}, nil
		},
	}

	service := newTestService(processRepo, stageRepo, reqRepo, logRepo)

	summary, err := service.GetProcessSummary(context.Background(), process.ProcessID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.DivertCount)
	assert.Equal(t, int64(12), summary.ReadingCount)
	assert.Equal(t, 1, summary.StagesByStatus["completed"])
	assert.Equal(t, 1, summary.StagesByStatus["in_progress"])
	require.Len(t, summary.LatestReadings, 1)
	require.NotNil(t, summary.LatestReadings[0].Value)
	assert.Equal(t, 72.4, *summary.LatestReadings[0].Value)
}

func TestListProcessesInvalidStatus(t *testing.T) {
	service := newTestService(&fakeProcessRepo{}, &fakeStageRepo{}, &fakeRequirementRepo{}, &fakeLogRepo{})

	_, _, err := service.ListProcesses(context.Background(), ListProcessesQuery{Status: "paused"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestListProcesses(t *testing.T) {
	process := processFixture(domain.ProcessStatusInProgress)
	processRepo := &fakeProcessRepo{
		listFn: func(_ context.Context, filter domain.ProcessFilter, p domain.Pagination) ([]*domain.ProductionProcess, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, domain.ProcessStatusInProgress, *filter.Status)
			assert.Equal(t, int64(0), p.Skip)
			assert.Equal(t, int64(20), p.Limit)
			return []*domain.ProductionProcess{process}, nil
		},
		countFn: func(_ context.Context, _ domain.ProcessFilter) (int64, error) {
			return 1, nil
		},
	}

	service := newTestService(processRepo, &fakeStageRepo{}, &fakeRequirementRepo{}, &fakeLogRepo{})

	dtos, total, err := service.ListProcesses(context.Background(), ListProcessesQuery{Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dtos, 1)
	assert.Equal(t, process.ProcessID, dtos[0].ProcessID)
}
