package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/nonconformance/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// NCRepository implements domain.NCRepository
type NCRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewNCRepository creates a new NCRepository
func NewNCRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *NCRepository {
	collection := db.Collection("non_conformances")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ncId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "ncNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "severity", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "batchNumber", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "actions.assigneeId", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &NCRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save persists a non-conformance with domain events
func (r *NCRepository) Save(ctx context.Context, nc *domain.NonConformance) error {
	nc.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"ncId": nc.NCID}
		update := bson.M{"$set": nc}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save non-conformance: %w", err)
		}

		domainEvents := nc.DomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

			for _, event := range domainEvents {
				var cloudEvent *cloudevents.FSMSCloudEvent
				switch e := event.(type) {
				case *domain.NonConformanceRaisedEvent:
					cloudEvent = r.eventFactory.CreateNonConformanceEvent(sessCtx, e.EventType(), e.NCID, e.BatchNumber, e)
				case *domain.NonConformanceClosedEvent:
					cloudEvent = r.eventFactory.CreateNonConformanceEvent(sessCtx, e.EventType(), e.NCID, nc.BatchNumber, e)
				default:
					continue
				}

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					nc.NCID,
					"NonConformance",
					kafka.Topics.NonConformanceEvents,
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

		nc.ClearDomainEvents()
		return nil, nil
	})

	return err
}

// FindByNCID retrieves a record by its business identifier
func (r *NCRepository) FindByNCID(ctx context.Context, ncID string) (*domain.NonConformance, error) {
	return r.findOne(ctx, bson.M{"ncId": ncID})
}

// FindByNCNumber retrieves a record by its register number
func (r *NCRepository) FindByNCNumber(ctx context.Context, ncNumber string) (*domain.NonConformance, error) {
	return r.findOne(ctx, bson.M{"ncNumber": ncNumber})
}

func (r *NCRepository) findOne(ctx context.Context, filter bson.M) (*domain.NonConformance, error) {
	var nc domain.NonConformance
	err := r.collection.FindOne(ctx, filter).Decode(&nc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &nc, nil
}

// List retrieves records matching the filter, newest first
func (r *NCRepository) List(ctx context.Context, filter domain.NCFilter, pagination domain.Pagination) ([]*domain.NonConformance, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildNCFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.NonConformance
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Count counts records matching the filter
func (r *NCRepository) Count(ctx context.Context, filter domain.NCFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildNCFilter(filter))
}

func buildNCFilter(filter domain.NCFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.Source != nil {
		mongoFilter["source"] = *filter.Source
	}
	if filter.Severity != nil {
		mongoFilter["severity"] = *filter.Severity
	}
	if filter.BatchNumber != nil {
		mongoFilter["batchNumber"] = *filter.BatchNumber
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
