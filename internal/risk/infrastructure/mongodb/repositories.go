package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/risk/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// RiskRepository implements domain.RiskRepository
type RiskRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewRiskRepository creates a new RiskRepository
func NewRiskRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *RiskRepository {
	collection := db.Collection("risk_register")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "riskId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "riskNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "itemType", Value: 1},
				{Key: "riskScore", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &RiskRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save persists a register item with domain events
func (r *RiskRepository) Save(ctx context.Context, item *domain.RiskRegisterItem) error {
	item.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"riskId": item.RiskID}
		update := bson.M{"$set": item}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save risk: %w", err)
		}

		domainEvents := item.DomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

			for _, event := range domainEvents {
				var cloudEvent *cloudevents.FSMSCloudEvent
				switch e := event.(type) {
				case *domain.RiskRegisteredEvent:
					cloudEvent = r.eventFactory.CreateRiskEvent(sessCtx, e.EventType(), e.RiskID, e)
				case *domain.RiskAssessedEvent:
					cloudEvent = r.eventFactory.CreateRiskEvent(sessCtx, e.EventType(), e.RiskID, e)
				default:
					continue
				}

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					item.RiskID,
					"RiskRegisterItem",
					kafka.Topics.RiskEvents,
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

		item.ClearDomainEvents()
		return nil, nil
	})

	return err
}

// FindByRiskID retrieves an item by its business identifier
func (r *RiskRepository) FindByRiskID(ctx context.Context, riskID string) (*domain.RiskRegisterItem, error) {
	return r.findOne(ctx, bson.M{"riskId": riskID})
}

// FindByRiskNumber retrieves an item by its register number
func (r *RiskRepository) FindByRiskNumber(ctx context.Context, riskNumber string) (*domain.RiskRegisterItem, error) {
	return r.findOne(ctx, bson.M{"riskNumber": riskNumber})
}

func (r *RiskRepository) findOne(ctx context.Context, filter bson.M) (*domain.RiskRegisterItem, error) {
	var item domain.RiskRegisterItem
	err := r.collection.FindOne(ctx, filter).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List retrieves items matching the filter, highest score first
func (r *RiskRepository) List(ctx context.Context, filter domain.RiskFilter, pagination domain.Pagination) ([]*domain.RiskRegisterItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "riskScore", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildRiskFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.RiskRegisterItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Count counts items matching the filter
func (r *RiskRepository) Count(ctx context.Context, filter domain.RiskFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildRiskFilter(filter))
}

func buildRiskFilter(filter domain.RiskFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.ItemType != nil {
		mongoFilter["itemType"] = *filter.ItemType
	}
	if filter.Severity != nil {
		mongoFilter["severity"] = *filter.Severity
	}
	if filter.Likelihood != nil {
		mongoFilter["likelihood"] = *filter.Likelihood
	}
	if filter.Category != nil {
		mongoFilter["category"] = *filter.Category
	}
	if filter.MinScore != nil {
		mongoFilter["riskScore"] = bson.M{"$gte": *filter.MinScore}
	}
	return mongoFilter
}
