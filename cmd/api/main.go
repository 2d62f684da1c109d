package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/idempotency"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/metrics"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
	"github.com/fsms-platform/fsms-service/pkg/mongodb"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
	"github.com/fsms-platform/fsms-service/pkg/tracing"

	"github.com/fsms-platform/fsms-service/internal/api/handlers"
	changeApp "github.com/fsms-platform/fsms-service/internal/change/application"
	changeDomain "github.com/fsms-platform/fsms-service/internal/change/domain"
	changeMongo "github.com/fsms-platform/fsms-service/internal/change/infrastructure/mongodb"
	haccpApp "github.com/fsms-platform/fsms-service/internal/haccp/application"
	haccpDomain "github.com/fsms-platform/fsms-service/internal/haccp/domain"
	haccpMongo "github.com/fsms-platform/fsms-service/internal/haccp/infrastructure/mongodb"
	ncApp "github.com/fsms-platform/fsms-service/internal/nonconformance/application"
	ncDomain "github.com/fsms-platform/fsms-service/internal/nonconformance/domain"
	ncMongo "github.com/fsms-platform/fsms-service/internal/nonconformance/infrastructure/mongodb"
	objectivesApp "github.com/fsms-platform/fsms-service/internal/objectives/application"
	objectivesDomain "github.com/fsms-platform/fsms-service/internal/objectives/domain"
	objectivesMongo "github.com/fsms-platform/fsms-service/internal/objectives/infrastructure/mongodb"
	productionApp "github.com/fsms-platform/fsms-service/internal/production/application"
	productionDomain "github.com/fsms-platform/fsms-service/internal/production/domain"
	productionMongo "github.com/fsms-platform/fsms-service/internal/production/infrastructure/mongodb"
	"github.com/fsms-platform/fsms-service/internal/production/workflow"
	riskApp "github.com/fsms-platform/fsms-service/internal/risk/application"
	riskDomain "github.com/fsms-platform/fsms-service/internal/risk/domain"
	riskMongo "github.com/fsms-platform/fsms-service/internal/risk/infrastructure/mongodb"
)

const serviceName = "fsms-service"

type instrumentedMongoClient interface {
	Database() *mongo.Database
	Close(context.Context) error
	HealthCheck(context.Context) error
}

type kafkaProducer interface {
	Close() error
}

type outboxPublisher interface {
	Start(context.Context) error
	Stop() error
}

var newInstrumentedMongoClient = func(ctx context.Context, cfg *mongodb.Config, m *metrics.Metrics, logger *logging.Logger) (instrumentedMongoClient, error) {
	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mongodb.NewInstrumentedClient(client, m, logger), nil
}

var newInstrumentedKafkaProducer = func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafkaProducer {
	producer := kafka.NewProducer(cfg)
	return kafka.NewInstrumentedProducer(producer, m, logger)
}

var newOutboxPublisher = func(repo outbox.Repository, producer kafkaProducer, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
	return outbox.NewPublisher(repo, producer.(*kafka.InstrumentedProducer), logger, m, cfg)
}

// repositories groups every persistence dependency behind its domain
// interface so tests can substitute fakes without a running MongoDB.
type repositories struct {
	Process     productionDomain.ProcessRepository
	Stage       productionDomain.StageRepository
	Requirement productionDomain.RequirementRepository
	ProcessLog  productionDomain.ProcessLogRepository
	Objective   objectivesDomain.ObjectiveRepository
	Target      objectivesDomain.TargetRepository
	Progress    objectivesDomain.ProgressRepository
	Risk        riskDomain.RiskRepository
	Product     haccpDomain.ProductRepository
	Hazard      haccpDomain.HazardRepository
	Change      changeDomain.ChangeRepository
	NC          ncDomain.NCRepository
	Outbox      outbox.Repository
	Idempotency idempotency.Repository
}

var newRepositories = func(db *mongo.Database, eventFactory *cloudevents.EventFactory) *repositories {
	return &repositories{
		Process:     productionMongo.NewProcessRepository(db, eventFactory),
		Stage:       productionMongo.NewStageRepository(db),
		Requirement: productionMongo.NewRequirementRepository(db),
		ProcessLog:  productionMongo.NewProcessLogRepository(db),
		Objective:   objectivesMongo.NewObjectiveRepository(db, eventFactory),
		Target:      objectivesMongo.NewTargetRepository(db),
		Progress:    objectivesMongo.NewProgressRepository(db),
		Risk:        riskMongo.NewRiskRepository(db, eventFactory),
		Product:     haccpMongo.NewProductRepository(db, eventFactory),
		Hazard:      haccpMongo.NewHazardRepository(db),
		Change:      changeMongo.NewChangeRepository(db, eventFactory),
		NC:          ncMongo.NewNCRepository(db, eventFactory),
		Outbox:      outboxMongo.NewOutboxRepository(db),
		Idempotency: idempotency.NewMongoRepository(db),
	}
}

var newWorkflowLoader = workflow.NewLoader

var newMetrics = metrics.New

var initTracing = tracing.Initialize

var startHTTPServer = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fsms-service API")

	// Load configuration
	config := loadConfig()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := initTracing(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := newMetrics(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation
	instrumentedMongo, err := newInstrumentedMongoClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation
	instrumentedProducer := newInstrumentedKafkaProducer(config.Kafka, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory("/fsms-service")

	// Load workflow definitions
	loader, err := newWorkflowLoader(config.WorkflowsDir)
	if err != nil {
		logger.WithError(err).Error("Failed to load workflow definitions", "dir", config.WorkflowsDir)
		return err
	}
	logger.Info("Workflow definitions loaded", "dir", config.WorkflowsDir)

	// Initialize repositories
	repos := newRepositories(instrumentedMongo.Database(), eventFactory)

	// Initialize and start outbox publisher
	publisher := newOutboxPublisher(
		repos.Outbox,
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		return err
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop outbox publisher")
		}
	}()
	logger.Info("Outbox publisher started")

	// Initialize application services
	engine := productionApp.NewWorkflowEngine(loader, repos.Process, repos.Stage, repos.Requirement, logger, m)
	processService := productionApp.NewProcessService(engine, repos.Process, repos.Stage, repos.Requirement, repos.ProcessLog, logger, m)
	objectivesService := objectivesApp.NewObjectivesService(repos.Objective, repos.Target, repos.Progress, logger)
	riskService := riskApp.NewRiskService(repos.Risk, logger)
	haccpService := haccpApp.NewHACCPService(repos.Product, repos.Hazard, logger)
	changeService := changeApp.NewChangeService(repos.Change, logger, m)
	ncService := ncApp.NewNonConformanceService(repos.NC, logger, m)

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return instrumentedMongo.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes with idempotent retries on write endpoints
	idempotencyConfig := idempotency.DefaultConfig(serviceName, repos.Idempotency, logger)
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry())

	v1 := router.Group("/api/v1")
	v1.Use(idempotency.Middleware(idempotencyConfig))

	handlers.NewWorkflowHandlers(engine, logger).RegisterRoutes(v1)
	handlers.NewProcessHandlers(engine, processService, logger).RegisterRoutes(v1)
	handlers.NewObjectiveHandlers(objectivesService, logger).RegisterRoutes(v1)
	handlers.NewRiskHandlers(riskService, logger).RegisterRoutes(v1)
	handlers.NewHACCPHandlers(haccpService, logger).RegisterRoutes(v1)
	handlers.NewChangeHandlers(changeService, logger).RegisterRoutes(v1)
	handlers.NewNonConformanceHandlers(ncService, logger).RegisterRoutes(v1)

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := startHTTPServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr   string
	WorkflowsDir string
	MongoDB      *mongodb.Config
	Kafka        *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		WorkflowsDir: getEnv("WORKFLOWS_DIR", "configs/workflows"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fsms_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
