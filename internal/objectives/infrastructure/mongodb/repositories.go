package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/objectives/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// ObjectiveRepository implements domain.ObjectiveRepository
type ObjectiveRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewObjectiveRepository creates a new ObjectiveRepository
func NewObjectiveRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *ObjectiveRepository {
	collection := db.Collection("food_safety_objectives")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "objectiveId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "category", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &ObjectiveRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save persists an objective with domain events
func (r *ObjectiveRepository) Save(ctx context.Context, objective *domain.FoodSafetyObjective) error {
	objective.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"objectiveId": objective.ObjectiveID}
		update := bson.M{"$set": objective}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save objective: %w", err)
		}

		domainEvents := objective.DomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

			for _, event := range domainEvents {
				var cloudEvent *cloudevents.FSMSCloudEvent
				switch e := event.(type) {
				case *domain.ObjectiveCreatedEvent:
					cloudEvent = r.eventFactory.CreateObjectiveEvent(sessCtx, e.EventType(), e.ObjectiveID, e)
				case *domain.ProgressRecordedEvent:
					cloudEvent = r.eventFactory.CreateObjectiveEvent(sessCtx, e.EventType(), e.ObjectiveID, e)
				default:
					continue
				}

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					objective.ObjectiveID,
					"FoodSafetyObjective",
					kafka.Topics.ObjectivesEvents,
					cloudEvent,
				)
				if err != nil {
					return nil, fmt.Errorf("failed to create outbox event: %w", err)
				}
				outboxEvents = append(outboxEvents, outboxEvent)
			}

			if len(outboxEvents) > 0 {
				if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
					return nil, fmt.Errorf("failed to save outbox events: %w", err)
				}
			}
		}

		objective.ClearDomainEvents()
		return nil, nil
	})

	return err
}

// FindByObjectiveID retrieves an objective by its business identifier
func (r *ObjectiveRepository) FindByObjectiveID(ctx context.Context, objectiveID string) (*domain.FoodSafetyObjective, error) {
	var objective domain.FoodSafetyObjective
	err := r.collection.FindOne(ctx, bson.M{"objectiveId": objectiveID}).Decode(&objective)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &objective, nil
}

// List retrieves objectives matching the filter
func (r *ObjectiveRepository) List(ctx context.Context, filter domain.ObjectiveFilter, pagination domain.Pagination) ([]*domain.FoodSafetyObjective, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildObjectiveFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var objectives []*domain.FoodSafetyObjective
	if err := cursor.All(ctx, &objectives); err != nil {
		return nil, err
	}
	return objectives, nil
}

// Count counts objectives matching the filter
func (r *ObjectiveRepository) Count(ctx context.Context, filter domain.ObjectiveFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildObjectiveFilter(filter))
}

func buildObjectiveFilter(filter domain.ObjectiveFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.Category != nil {
		mongoFilter["category"] = *filter.Category
	}
	if filter.OwnerID != nil {
		mongoFilter["ownerId"] = *filter.OwnerID
	}
	return mongoFilter
}

// TargetRepository implements domain.TargetRepository
type TargetRepository struct {
	collection *mongo.Collection
}

// NewTargetRepository creates a new TargetRepository
func NewTargetRepository(db *mongo.Database) *TargetRepository {
	collection := db.Collection("objective_targets")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "targetId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "objectiveId", Value: 1},
				{Key: "periodStart", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &TargetRepository{collection: collection}
}

// Save persists a target
func (r *TargetRepository) Save(ctx context.Context, target *domain.ObjectiveTarget) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"targetId": target.TargetID}
	update := bson.M{"$set": target}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByObjectiveID retrieves all targets of an objective
func (r *TargetRepository) FindByObjectiveID(ctx context.Context, objectiveID string) ([]*domain.ObjectiveTarget, error) {
	opts := options.Find().SetSort(bson.D{{Key: "periodStart", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"objectiveId": objectiveID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var targets []*domain.ObjectiveTarget
	if err := cursor.All(ctx, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// FindForPeriod retrieves the target whose period covers the date
func (r *TargetRepository) FindForPeriod(ctx context.Context, objectiveID string, date time.Time) (*domain.ObjectiveTarget, error) {
	filter := bson.M{
		"objectiveId": objectiveID,
		"periodStart": bson.M{"$lte": date},
		"periodEnd":   bson.M{"$gte": date},
	}

	var target domain.ObjectiveTarget
	err := r.collection.FindOne(ctx, filter).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &target, nil
}

// ProgressRepository implements domain.ProgressRepository
type ProgressRepository struct {
	collection *mongo.Collection
}

// NewProgressRepository creates a new ProgressRepository
func NewProgressRepository(db *mongo.Database) *ProgressRepository {
	collection := db.Collection("objective_progress")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "progressId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "objectiveId", Value: 1},
				{Key: "periodDate", Value: -1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &ProgressRepository{collection: collection}
}

// Save persists a progress record
func (r *ProgressRepository) Save(ctx context.Context, progress *domain.ObjectiveProgress) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"progressId": progress.ProgressID}
	update := bson.M{"$set": progress}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByObjectiveID retrieves progress records of an objective, newest first
func (r *ProgressRepository) FindByObjectiveID(ctx context.Context, objectiveID string, pagination domain.Pagination) ([]*domain.ObjectiveProgress, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "periodDate", Value: -1}}).
		SetSkip(pagination.Skip)
	if pagination.Limit > 0 {
		opts.SetLimit(pagination.Limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"objectiveId": objectiveID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var progress []*domain.ObjectiveProgress
	if err := cursor.All(ctx, &progress); err != nil {
		return nil, err
	}
	return progress, nil
}
