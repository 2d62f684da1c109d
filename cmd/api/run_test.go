package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	changeDomain "github.com/fsms-platform/fsms-service/internal/change/domain"
	haccpDomain "github.com/fsms-platform/fsms-service/internal/haccp/domain"
	ncDomain "github.com/fsms-platform/fsms-service/internal/nonconformance/domain"
	objectivesDomain "github.com/fsms-platform/fsms-service/internal/objectives/domain"
	productionDomain "github.com/fsms-platform/fsms-service/internal/production/domain"
	riskDomain "github.com/fsms-platform/fsms-service/internal/risk/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/idempotency"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
	"github.com/fsms-platform/fsms-service/pkg/mongodb"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	"github.com/fsms-platform/fsms-service/pkg/tracing"
)

type fakeMongo struct{}

func (f *fakeMongo) Database() *mongo.Database     { return nil }
func (f *fakeMongo) Close(context.Context) error   { return nil }
func (f *fakeMongo) HealthCheck(context.Context) error { return nil }

type fakeProducer struct{}

func (f *fakeProducer) Close() error { return nil }

type fakeOutboxPublisher struct {
	startErr error
	stopErr  error
	started  *bool
	stopped  *bool
}

func (f *fakeOutboxPublisher) Start(context.Context) error {
	if f.started != nil {
		*f.started = true
	}
	return f.startErr
}

func (f *fakeOutboxPublisher) Stop() error {
	if f.stopped != nil {
		*f.stopped = true
	}
	return f.stopErr
}

type fakeOutboxRepo struct{}

func (f *fakeOutboxRepo) Save(context.Context, *outbox.OutboxEvent) error    { return nil }
func (f *fakeOutboxRepo) SaveAll(context.Context, []*outbox.OutboxEvent) error { return nil }
func (f *fakeOutboxRepo) FindUnpublished(context.Context, int) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkPublished(context.Context, string) error         { return nil }
func (f *fakeOutboxRepo) IncrementRetry(context.Context, string, string) error { return nil }
func (f *fakeOutboxRepo) DeletePublished(context.Context, int64) error        { return nil }
func (f *fakeOutboxRepo) GetByID(context.Context, string) (*outbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) FindByAggregateID(context.Context, string) ([]*outbox.OutboxEvent, error) {
	return nil, nil
}

type fakeIdempotencyRepo struct{}

func (f *fakeIdempotencyRepo) AcquireLock(ctx context.Context, key *idempotency.Key) (*idempotency.Key, bool, error) {
	return key, true, nil
}
func (f *fakeIdempotencyRepo) ReleaseLock(context.Context, string) error { return nil }
func (f *fakeIdempotencyRepo) StoreResponse(context.Context, string, int, []byte, map[string]string) error {
	return nil
}
func (f *fakeIdempotencyRepo) Get(context.Context, string, string) (*idempotency.Key, error) {
	return nil, idempotency.ErrKeyNotFound
}
func (f *fakeIdempotencyRepo) Purge(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeIdempotencyRepo) EnsureIndexes(context.Context) error             { return nil }

type fakeProcessRepo struct{}

func (f *fakeProcessRepo) Instantiate(context.Context, *productionDomain.ProductionProcess, []*productionDomain.ProcessStage, []*productionDomain.StageMonitoringRequirement) error {
	return nil
}
func (f *fakeProcessRepo) Save(context.Context, *productionDomain.ProductionProcess) error { return nil }
func (f *fakeProcessRepo) FindByProcessID(context.Context, string) (*productionDomain.ProductionProcess, error) {
	return nil, nil
}
func (f *fakeProcessRepo) FindByBatchNumber(context.Context, string) ([]*productionDomain.ProductionProcess, error) {
	return nil, nil
}
func (f *fakeProcessRepo) List(context.Context, productionDomain.ProcessFilter, productionDomain.Pagination) ([]*productionDomain.ProductionProcess, error) {
	return nil, nil
}
func (f *fakeProcessRepo) Count(context.Context, productionDomain.ProcessFilter) (int64, error) {
	return 0, nil
}

type fakeStageRepo struct{}

func (f *fakeStageRepo) Save(context.Context, *productionDomain.ProcessStage) error { return nil }
func (f *fakeStageRepo) FindByProcessID(context.Context, string) ([]*productionDomain.ProcessStage, error) {
	return nil, nil
}
func (f *fakeStageRepo) FindByProcessAndKey(context.Context, string, string) (*productionDomain.ProcessStage, error) {
	return nil, nil
}

type fakeRequirementRepo struct{}

func (f *fakeRequirementRepo) FindByRequirementID(context.Context, string) (*productionDomain.StageMonitoringRequirement, error) {
	return nil, nil
}
func (f *fakeRequirementRepo) FindByProcessID(context.Context, string) ([]*productionDomain.StageMonitoringRequirement, error) {
	return nil, nil
}
func (f *fakeRequirementRepo) FindByProcessAndStage(context.Context, string, string) ([]*productionDomain.StageMonitoringRequirement, error) {
	return nil, nil
}

type fakeProcessLogRepo struct{}

func (f *fakeProcessLogRepo) Append(context.Context, *productionDomain.ProcessLogEntry) error {
	return nil
}
func (f *fakeProcessLogRepo) FindByProcessID(context.Context, string, productionDomain.Pagination) ([]*productionDomain.ProcessLogEntry, error) {
	return nil, nil
}
func (f *fakeProcessLogRepo) FindReadings(context.Context, string, string, time.Time) ([]*productionDomain.ProcessLogEntry, error) {
	return nil, nil
}
func (f *fakeProcessLogRepo) CountByEventType(context.Context, string, productionDomain.LogEventType) (int64, error) {
	return 0, nil
}

type fakeObjectiveRepo struct{}

func (f *fakeObjectiveRepo) Save(context.Context, *objectivesDomain.FoodSafetyObjective) error {
	return nil
}
func (f *fakeObjectiveRepo) FindByObjectiveID(context.Context, string) (*objectivesDomain.FoodSafetyObjective, error) {
	return nil, nil
}
func (f *fakeObjectiveRepo) List(context.Context, objectivesDomain.ObjectiveFilter, objectivesDomain.Pagination) ([]*objectivesDomain.FoodSafetyObjective, error) {
	return nil, nil
}
func (f *fakeObjectiveRepo) Count(context.Context, objectivesDomain.ObjectiveFilter) (int64, error) {
	return 0, nil
}

type fakeTargetRepo struct{}

func (f *fakeTargetRepo) Save(context.Context, *objectivesDomain.ObjectiveTarget) error { return nil }
func (f *fakeTargetRepo) FindByObjectiveID(context.Context, string) ([]*objectivesDomain.ObjectiveTarget, error) {
	return nil, nil
}
func (f *fakeTargetRepo) FindForPeriod(context.Context, string, time.Time) (*objectivesDomain.ObjectiveTarget, error) {
	return nil, nil
}

type fakeProgressRepo struct{}

func (f *fakeProgressRepo) Save(context.Context, *objectivesDomain.ObjectiveProgress) error {
	return nil
}
func (f *fakeProgressRepo) FindByObjectiveID(context.Context, string, objectivesDomain.Pagination) ([]*objectivesDomain.ObjectiveProgress, error) {
	return nil, nil
}

type fakeRiskRegisterRepo struct{}

func (f *fakeRiskRegisterRepo) Save(context.Context, *riskDomain.RiskRegisterItem) error { return nil }
func (f *fakeRiskRegisterRepo) FindByRiskID(context.Context, string) (*riskDomain.RiskRegisterItem, error) {
	return nil, nil
}
func (f *fakeRiskRegisterRepo) FindByRiskNumber(context.Context, string) (*riskDomain.RiskRegisterItem, error) {
	return nil, nil
}
func (f *fakeRiskRegisterRepo) List(context.Context, riskDomain.RiskFilter, riskDomain.Pagination) ([]*riskDomain.RiskRegisterItem, error) {
	return nil, nil
}
func (f *fakeRiskRegisterRepo) Count(context.Context, riskDomain.RiskFilter) (int64, error) {
	return 0, nil
}

type fakeProductRepo struct{}

func (f *fakeProductRepo) Save(context.Context, *haccpDomain.Product) error { return nil }
func (f *fakeProductRepo) FindByProductID(context.Context, string) (*haccpDomain.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) List(context.Context, haccpDomain.ProductFilter, haccpDomain.Pagination) ([]*haccpDomain.Product, error) {
	return nil, nil
}
func (f *fakeProductRepo) Count(context.Context, haccpDomain.ProductFilter) (int64, error) {
	return 0, nil
}

type fakeHazardRepo struct{}

func (f *fakeHazardRepo) Save(context.Context, *haccpDomain.Hazard) error { return nil }
func (f *fakeHazardRepo) FindByHazardID(context.Context, string) (*haccpDomain.Hazard, error) {
	return nil, nil
}
func (f *fakeHazardRepo) FindByProductID(context.Context, string) ([]*haccpDomain.Hazard, error) {
	return nil, nil
}
func (f *fakeHazardRepo) FindByClassification(context.Context, string, haccpDomain.Classification) ([]*haccpDomain.Hazard, error) {
	return nil, nil
}

type fakeChangeRequestRepo struct{}

func (f *fakeChangeRequestRepo) Save(context.Context, *changeDomain.ChangeRequest) error { return nil }
func (f *fakeChangeRequestRepo) SaveWithPendingStep(context.Context, *changeDomain.ChangeRequest, int) error {
	return nil
}
func (f *fakeChangeRequestRepo) FindByChangeID(context.Context, string) (*changeDomain.ChangeRequest, error) {
	return nil, nil
}
func (f *fakeChangeRequestRepo) FindByChangeNumber(context.Context, string) (*changeDomain.ChangeRequest, error) {
	return nil, nil
}
func (f *fakeChangeRequestRepo) List(context.Context, changeDomain.ChangeFilter, changeDomain.Pagination) ([]*changeDomain.ChangeRequest, error) {
	return nil, nil
}
func (f *fakeChangeRequestRepo) Count(context.Context, changeDomain.ChangeFilter) (int64, error) {
	return 0, nil
}

type fakeNCRecordRepo struct{}

func (f *fakeNCRecordRepo) Save(context.Context, *ncDomain.NonConformance) error { return nil }
func (f *fakeNCRecordRepo) FindByNCID(context.Context, string) (*ncDomain.NonConformance, error) {
	return nil, nil
}
func (f *fakeNCRecordRepo) FindByNCNumber(context.Context, string) (*ncDomain.NonConformance, error) {
	return nil, nil
}
func (f *fakeNCRecordRepo) List(context.Context, ncDomain.NCFilter, ncDomain.Pagination) ([]*ncDomain.NonConformance, error) {
	return nil, nil
}
func (f *fakeNCRecordRepo) Count(context.Context, ncDomain.NCFilter) (int64, error) { return 0, nil }

func stubRepositories() *repositories {
	return &repositories{
		Process:     &fakeProcessRepo{},
		Stage:       &fakeStageRepo{},
		Requirement: &fakeRequirementRepo{},
		ProcessLog:  &fakeProcessLogRepo{},
		Objective:   &fakeObjectiveRepo{},
		Target:      &fakeTargetRepo{},
		Progress:    &fakeProgressRepo{},
		Risk:        &fakeRiskRegisterRepo{},
		Product:     &fakeProductRepo{},
		Hazard:      &fakeHazardRepo{},
		Change:      &fakeChangeRequestRepo{},
		NC:          &fakeNCRecordRepo{},
		Outbox:      &fakeOutboxRepo{},
		Idempotency: &fakeIdempotencyRepo{},
	}
}

// seams captures and restores every injection point so each test can
// override only what it needs.
type seams struct {
	mongo     func(context.Context, *mongodb.Config, *metrics.Metrics, *logging.Logger) (instrumentedMongoClient, error)
	producer  func(*kafka.Config, *metrics.Metrics, *logging.Logger) kafkaProducer
	outbox    func(outbox.Repository, kafkaProducer, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher
	repos     func(*mongo.Database, *cloudevents.EventFactory) *repositories
	tracing   func(context.Context, *tracing.Config) (*tracing.TracerProvider, error)
	startHTTP func(*http.Server) error
}

func saveSeams(t *testing.T) {
	t.Helper()
	saved := seams{
		mongo:     newInstrumentedMongoClient,
		producer:  newInstrumentedKafkaProducer,
		outbox:    newOutboxPublisher,
		repos:     newRepositories,
		tracing:   initTracing,
		startHTTP: startHTTPServer,
	}
	t.Cleanup(func() {
		newInstrumentedMongoClient = saved.mongo
		newInstrumentedKafkaProducer = saved.producer
		newOutboxPublisher = saved.outbox
		newRepositories = saved.repos
		initTracing = saved.tracing
		startHTTPServer = saved.startHTTP
	})
}

func stubSeams(t *testing.T) {
	saveSeams(t)
	t.Setenv("WORKFLOWS_DIR", "../../configs/workflows")

	newInstrumentedMongoClient = func(context.Context, *mongodb.Config, *metrics.Metrics, *logging.Logger) (instrumentedMongoClient, error) {
		return &fakeMongo{}, nil
	}
	newInstrumentedKafkaProducer = func(*kafka.Config, *metrics.Metrics, *logging.Logger) kafkaProducer {
		return &fakeProducer{}
	}
	newOutboxPublisher = func(outbox.Repository, kafkaProducer, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return &fakeOutboxPublisher{}
	}
	newRepositories = func(*mongo.Database, *cloudevents.EventFactory) *repositories {
		return stubRepositories()
	}
	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return &tracing.TracerProvider{}, nil
	}
	startHTTPServer = func(*http.Server) error { return http.ErrServerClosed }
}

func TestRunSuccess(t *testing.T) {
	stubSeams(t)

	started := false
	stopped := false
	newOutboxPublisher = func(outbox.Repository, kafkaProducer, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return &fakeOutboxPublisher{
			started: &started,
			stopped: &stopped,
		}
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestRunTracingError(t *testing.T) {
	stubSeams(t)

	initTracing = func(context.Context, *tracing.Config) (*tracing.TracerProvider, error) {
		return nil, errors.New("trace init failed")
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	require.NoError(t, err)
}

func TestRunMongoError(t *testing.T) {
	stubSeams(t)

	newInstrumentedMongoClient = func(context.Context, *mongodb.Config, *metrics.Metrics, *logging.Logger) (instrumentedMongoClient, error) {
		return nil, errors.New("mongo error")
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunWorkflowLoadError(t *testing.T) {
	stubSeams(t)
	t.Setenv("WORKFLOWS_DIR", "testdata/does-not-exist")

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunOutboxStartError(t *testing.T) {
	stubSeams(t)

	newOutboxPublisher = func(outbox.Repository, kafkaProducer, *logging.Logger, *metrics.Metrics, *outbox.PublisherConfig) outboxPublisher {
		return &fakeOutboxPublisher{startErr: errors.New("start failed")}
	}

	signalCh := make(chan os.Signal, 1)
	signalCh <- os.Interrupt

	err := run(context.Background(), signalCh)
	assert.Error(t, err)
}

func TestRunServerErrorLogged(t *testing.T) {
	stubSeams(t)

	serverCalled := make(chan struct{})
	var serverCalledOnce sync.Once
	startHTTPServer = func(*http.Server) error {
		serverCalledOnce.Do(func() { close(serverCalled) })
		return errors.New("server failed")
	}

	signalCh := make(chan os.Signal, 1)
	go func() {
		<-serverCalled
		signalCh <- os.Interrupt
	}()

	err := run(context.Background(), signalCh)
	assert.NoError(t, err)
}
