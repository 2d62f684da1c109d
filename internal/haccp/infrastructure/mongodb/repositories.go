package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/haccp/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// ProductRepository implements domain.ProductRepository
type ProductRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *ProductRepository {
	collection := db.Collection("haccp_products")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "haccpPlanApproved", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &ProductRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save persists a product with domain events
func (r *ProductRepository) Save(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"productId": product.ProductID}
		update := bson.M{"$set": product}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save product: %w", err)
		}

		domainEvents := product.DomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))

			for _, event := range domainEvents {
				var cloudEvent *cloudevents.FSMSCloudEvent
				switch e := event.(type) {
				case *domain.HazardAssessedEvent:
					cloudEvent = r.eventFactory.CreateHACCPEvent(sessCtx, e.EventType(), e.ProductID, e)
				case *domain.CCPDeterminedEvent:
					cloudEvent = r.eventFactory.CreateHACCPEvent(sessCtx, e.EventType(), e.ProductID, e)
				case *domain.PlanApprovedEvent:
					cloudEvent = r.eventFactory.CreateHACCPEvent(sessCtx, e.EventType(), e.ProductID, e)
				default:
					continue
				}

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					product.ProductID,
					"Product",
					kafka.Topics.HACCPEvents,
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

		product.ClearDomainEvents()
		return nil, nil
	})

	return err
}

// FindByProductID retrieves a product by its business identifier
func (r *ProductRepository) FindByProductID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List retrieves products matching the filter
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter, pagination domain.Pagination) ([]*domain.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildProductFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Count counts products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildProductFilter(filter))
}

func buildProductFilter(filter domain.ProductFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.Category != nil {
		mongoFilter["category"] = *filter.Category
	}
	if filter.PlanApproved != nil {
		mongoFilter["haccpPlanApproved"] = *filter.PlanApproved
	}
	return mongoFilter
}

// HazardRepository implements domain.HazardRepository
type HazardRepository struct {
	collection *mongo.Collection
}

// NewHazardRepository creates a new HazardRepository
func NewHazardRepository(db *mongo.Database) *HazardRepository {
	collection := db.Collection("hazards")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "hazardId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "productId", Value: 1},
				{Key: "classification", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &HazardRepository{collection: collection}
}

// Save persists a hazard
func (r *HazardRepository) Save(ctx context.Context, hazard *domain.Hazard) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"hazardId": hazard.HazardID}
	update := bson.M{"$set": hazard}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindByHazardID retrieves a hazard by its business identifier
func (r *HazardRepository) FindByHazardID(ctx context.Context, hazardID string) (*domain.Hazard, error) {
	var hazard domain.Hazard
	err := r.collection.FindOne(ctx, bson.M{"hazardId": hazardID}).Decode(&hazard)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &hazard, nil
}

// FindByProductID retrieves all hazards of a product
func (r *HazardRepository) FindByProductID(ctx context.Context, productID string) ([]*domain.Hazard, error) {
	return r.findMany(ctx, bson.M{"productId": productID})
}

// FindByClassification retrieves a product's hazards with one classification
func (r *HazardRepository) FindByClassification(ctx context.Context, productID string, classification domain.Classification) ([]*domain.Hazard, error) {
	return r.findMany(ctx, bson.M{
		"productId":      productID,
		"classification": classification,
	})
}

func (r *HazardRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.Hazard, error) {
	opts := options.Find().SetSort(bson.D{{Key: "processStep", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hazards []*domain.Hazard
	if err := cursor.All(ctx, &hazards); err != nil {
		return nil, err
	}
	return hazards, nil
}
