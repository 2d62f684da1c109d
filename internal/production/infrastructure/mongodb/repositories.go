package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/production/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// ProcessRepository implements domain.ProcessRepository
type ProcessRepository struct {
	collection      *mongo.Collection
	stageCollection *mongo.Collection
	reqCollection   *mongo.Collection
	db              *mongo.Database
	outboxRepo      *outboxMongo.OutboxRepository
	eventFactory    *cloudevents.EventFactory
}

// NewProcessRepository creates a new ProcessRepository
func NewProcessRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *ProcessRepository {
	collection := db.Collection("production_processes")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "processId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "batchNumber", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "productType", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "operatorId", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &ProcessRepository{
		collection:      collection,
		stageCollection: db.Collection("process_stages"),
		reqCollection:   db.Collection("monitoring_requirements"),
		db:              db,
		outboxRepo:      outboxRepo,
		eventFactory:    eventFactory,
	}
}

// Instantiate persists a new process with its stages and requirements in one
// transaction, writing the creation event to the outbox
func (r *ProcessRepository) Instantiate(
	ctx context.Context,
	process *domain.ProductionProcess,
	stages []*domain.ProcessStage,
	requirements []*domain.StageMonitoringRequirement,
) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.InsertOne(sessCtx, process); err != nil {
			return nil, fmt.Errorf("failed to insert process: %w", err)
		}

		if len(stages) > 0 {
			docs := make([]interface{}, len(stages))
			for i, s := range stages {
				docs[i] = s
			}
			if _, err := r.stageCollection.InsertMany(sessCtx, docs); err != nil {
				return nil, fmt.Errorf("failed to insert stages: %w", err)
			}
		}

		if len(requirements) > 0 {
			docs := make([]interface{}, len(requirements))
			for i, req := range requirements {
				docs[i] = req
			}
			if _, err := r.reqCollection.InsertMany(sessCtx, docs); err != nil {
				return nil, fmt.Errorf("failed to insert requirements: %w", err)
			}
		}

		if err := r.saveOutboxEvents(sessCtx, process); err != nil {
			return nil, err
		}

		process.ClearDomainEvents()
		return nil, nil
	})

	return err
}

// Save persists process changes with domain events
func (r *ProcessRepository) Save(ctx context.Context, process *domain.ProductionProcess) error {
	process.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"processId": process.ProcessID}
		update := bson.M{"$set": process}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save process: %w", err)
		}

		if err := r.saveOutboxEvents(sessCtx, process); err != nil {
			return nil, err
		}

		process.ClearDomainEvents()
		return nil, nil
	})

	return err
}

func (r *ProcessRepository) saveOutboxEvents(sessCtx mongo.SessionContext, process *domain.ProductionProcess) error {
	domainEvents := process.DomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.FSMSCloudEvent
		switch e := event.(type) {
		case *domain.ProcessCreatedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.StageStartedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.StageCompletedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.StageReworkedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.ReadingRecordedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.BatchDivertedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		case *domain.ProcessCompletedEvent:
			cloudEvent = r.eventFactory.CreateProcessEvent(sessCtx, e.EventType(), e.ProcessID, e.BatchNumber, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			process.ProcessID,
			"ProductionProcess",
			kafka.Topics.ProductionEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if len(outboxEvents) > 0 {
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}
	return nil
}

// FindByProcessID retrieves a process by its business identifier
func (r *ProcessRepository) FindByProcessID(ctx context.Context, processID string) (*domain.ProductionProcess, error) {
	var process domain.ProductionProcess
	err := r.collection.FindOne(ctx, bson.M{"processId": processID}).Decode(&process)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &process, nil
}

// FindByBatchNumber retrieves processes for a batch
func (r *ProcessRepository) FindByBatchNumber(ctx context.Context, batchNumber string) ([]*domain.ProductionProcess, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findMany(ctx, bson.M{"batchNumber": batchNumber}, opts)
}

// List retrieves processes matching the filter
func (r *ProcessRepository) List(ctx context.Context, filter domain.ProcessFilter, pagination domain.Pagination) ([]*domain.ProductionProcess, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	return r.findMany(ctx, buildProcessFilter(filter), opts)
}

// Count counts processes matching the filter
func (r *ProcessRepository) Count(ctx context.Context, filter domain.ProcessFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildProcessFilter(filter))
}

func (r *ProcessRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ProductionProcess, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var processes []*domain.ProductionProcess
	if err := cursor.All(ctx, &processes); err != nil {
		return nil, err
	}
	return processes, nil
}

func buildProcessFilter(filter domain.ProcessFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.ProductType != nil {
		mongoFilter["productType"] = *filter.ProductType
	}
	if filter.BatchNumber != nil {
		mongoFilter["batchNumber"] = *filter.BatchNumber
	}
	if filter.OperatorID != nil {
		mongoFilter["operatorId"] = *filter.OperatorID
	}
	if filter.CreatedFrom != nil || filter.CreatedTo != nil {
		createdAt := bson.M{}
		if filter.CreatedFrom != nil {
			createdAt["$gte"] = *filter.CreatedFrom
		}
		if filter.CreatedTo != nil {
			createdAt["$lte"] = *filter.CreatedTo
		}
		mongoFilter["createdAt"] = createdAt
	}
	return mongoFilter
}

// StageRepository implements domain.StageRepository
type StageRepository struct {
	collection *mongo.Collection
}

// NewStageRepository creates a new StageRepository
func NewStageRepository(db *mongo.Database) *StageRepository {
	collection := db.Collection("process_stages")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "sequenceOrder", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "stageId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &StageRepository{collection: collection}
}

// Save persists stage changes
func (r *StageRepository) Save(ctx context.Context, stage *domain.ProcessStage) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"stageId": stage.StageID}
	update := bson.M{"$set": stage}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByProcessID retrieves all stages of a process ordered by sequence
func (r *StageRepository) FindByProcessID(ctx context.Context, processID string) ([]*domain.ProcessStage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequenceOrder", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"processId": processID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stages []*domain.ProcessStage
	if err := cursor.All(ctx, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// FindByProcessAndKey retrieves one stage of a process
func (r *StageRepository) FindByProcessAndKey(ctx context.Context, processID, stageKey string) (*domain.ProcessStage, error) {
	var stage domain.ProcessStage
	filter := bson.M{"processId": processID, "key": stageKey}

	err := r.collection.FindOne(ctx, filter).Decode(&stage)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &stage, nil
}

// RequirementRepository implements domain.RequirementRepository
type RequirementRepository struct {
	collection *mongo.Collection
}

// NewRequirementRepository creates a new RequirementRepository
func NewRequirementRepository(db *mongo.Database) *RequirementRepository {
	collection := db.Collection("monitoring_requirements")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "requirementId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "stageKey", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &RequirementRepository{collection: collection}
}

// FindByRequirementID retrieves a requirement by its business identifier
func (r *RequirementRepository) FindByRequirementID(ctx context.Context, requirementID string) (*domain.StageMonitoringRequirement, error) {
	var req domain.StageMonitoringRequirement
	err := r.collection.FindOne(ctx, bson.M{"requirementId": requirementID}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// FindByProcessID retrieves all requirements of a process
func (r *RequirementRepository) FindByProcessID(ctx context.Context, processID string) ([]*domain.StageMonitoringRequirement, error) {
	return r.findMany(ctx, bson.M{"processId": processID})
}

// FindByProcessAndStage retrieves the requirements of one stage
func (r *RequirementRepository) FindByProcessAndStage(ctx context.Context, processID, stageKey string) ([]*domain.StageMonitoringRequirement, error) {
	return r.findMany(ctx, bson.M{"processId": processID, "stageKey": stageKey})
}

func (r *RequirementRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.StageMonitoringRequirement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stageKey", Value: 1}, {Key: "metric", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []*domain.StageMonitoringRequirement
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ProcessLogRepository implements domain.ProcessLogRepository.
// The log collection is append-only; no update or delete paths exist.
type ProcessLogRepository struct {
	collection *mongo.Collection
}

// NewProcessLogRepository creates a new ProcessLogRepository
func NewProcessLogRepository(db *mongo.Database) *ProcessLogRepository {
	collection := db.Collection("process_logs")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "recordedAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "requirementId", Value: 1},
				{Key: "recordedAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "processId", Value: 1},
				{Key: "eventType", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &ProcessLogRepository{collection: collection}
}

// Append records a log entry
func (r *ProcessLogRepository) Append(ctx context.Context, entry *domain.ProcessLogEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// FindByProcessID retrieves log entries for a process, newest first
func (r *ProcessLogRepository) FindByProcessID(ctx context.Context, processID string, pagination domain.Pagination) ([]*domain.ProcessLogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recordedAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	return r.findMany(ctx, bson.M{"processId": processID}, opts)
}

// FindReadings retrieves reading entries for a requirement since a point in
// time, newest first
func (r *ProcessLogRepository) FindReadings(ctx context.Context, processID, requirementID string, since time.Time) ([]*domain.ProcessLogEntry, error) {
	filter := bson.M{
		"processId":     processID,
		"requirementId": requirementID,
		"eventType":     domain.LogEventReading,
	}
	if !since.IsZero() {
		filter["recordedAt"] = bson.M{"$gte": since}
	}

	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: -1}})
	return r.findMany(ctx, filter, opts)
}

// CountByEventType counts entries of one event type for a process
func (r *ProcessLogRepository) CountByEventType(ctx context.Context, processID string, eventType domain.LogEventType) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"processId": processID,
		"eventType": eventType,
	})
}

func (r *ProcessLogRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ProcessLogEntry, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*domain.ProcessLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
