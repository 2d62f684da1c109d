package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fsms-platform/fsms-service/internal/change/domain"
	"github.com/fsms-platform/fsms-service/pkg/cloudevents"
	"github.com/fsms-platform/fsms-service/pkg/kafka"
	"github.com/fsms-platform/fsms-service/pkg/outbox"
	outboxMongo "github.com/fsms-platform/fsms-service/pkg/outbox/mongodb"
)

// ChangeRepository implements domain.ChangeRepository
type ChangeRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewChangeRepository creates a new ChangeRepository
func NewChangeRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *ChangeRepository {
	collection := db.Collection("change_requests")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "changeId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "changeNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "approvals.approverId", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
	_ = outboxRepo.EnsureIndexes(ctx)

	return &ChangeRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

// Save persists a change request with domain events
func (r *ChangeRepository) Save(ctx context.Context, change *domain.ChangeRequest) error {
	return r.saveWithFilter(ctx, change, bson.M{"changeId": change.ChangeID}, false)
}

// SaveWithPendingStep persists the change only if the step is still pending
// in storage. The filter makes the write a compare-and-set: a concurrent
// decision on the same step leaves nothing to match.
func (r *ChangeRepository) SaveWithPendingStep(ctx context.Context, change *domain.ChangeRequest, sequence int) error {
	filter := bson.M{
		"changeId": change.ChangeID,
		"approvals": bson.M{
			"$elemMatch": bson.M{
				"sequence": sequence,
				"decision": domain.DecisionPending,
			},
		},
	}
	return r.saveWithFilter(ctx, change, filter, true)
}

func (r *ChangeRepository) saveWithFilter(ctx context.Context, change *domain.ChangeRequest, filter bson.M, requireMatch bool) error {
	change.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		update := bson.M{"$set": change}

		var result *mongo.UpdateResult
		if requireMatch {
			result, err = r.collection.UpdateOne(sessCtx, filter, update)
		} else {
			result, err = r.collection.UpdateOne(sessCtx, filter, update, options.Update().SetUpsert(true))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save change: %w", err)
		}
		if requireMatch && result.MatchedCount == 0 {
			return nil, domain.ErrConcurrentDecision
		}

		if err := r.saveOutboxEvents(sessCtx, change); err != nil {
			return nil, err
		}

		change.ClearDomainEvents()
		return nil, nil
	})

	return err
}

func (r *ChangeRepository) saveOutboxEvents(sessCtx mongo.SessionContext, change *domain.ChangeRequest) error {
	domainEvents := change.DomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		var cloudEvent *cloudevents.FSMSCloudEvent
		switch e := event.(type) {
		case *domain.ChangeSubmittedEvent:
			cloudEvent = r.eventFactory.CreateChangeEvent(sessCtx, e.EventType(), e.ChangeID, e)
		case *domain.ChangeApprovedEvent:
			cloudEvent = r.eventFactory.CreateChangeEvent(sessCtx, e.EventType(), e.ChangeID, e)
		case *domain.ChangeRejectedEvent:
			cloudEvent = r.eventFactory.CreateChangeEvent(sessCtx, e.EventType(), e.ChangeID, e)
		case *domain.ChangeImplementedEvent:
			cloudEvent = r.eventFactory.CreateChangeEvent(sessCtx, e.EventType(), e.ChangeID, e)
		case *domain.ChangeClosedEvent:
			cloudEvent = r.eventFactory.CreateChangeEvent(sessCtx, e.EventType(), e.ChangeID, e)
		default:
			continue
		}

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			change.ChangeID,
			"ChangeRequest",
			kafka.Topics.ChangeEvents,
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

// FindByChangeID retrieves a change by its business identifier
func (r *ChangeRepository) FindByChangeID(ctx context.Context, changeID string) (*domain.ChangeRequest, error) {
	return r.findOne(ctx, bson.M{"changeId": changeID})
}

// FindByChangeNumber retrieves a change by its request number
func (r *ChangeRepository) FindByChangeNumber(ctx context.Context, changeNumber string) (*domain.ChangeRequest, error) {
	return r.findOne(ctx, bson.M{"changeNumber": changeNumber})
}

func (r *ChangeRepository) findOne(ctx context.Context, filter bson.M) (*domain.ChangeRequest, error) {
	var change domain.ChangeRequest
	err := r.collection.FindOne(ctx, filter).Decode(&change)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &change, nil
}

// List retrieves changes matching the filter
func (r *ChangeRepository) List(ctx context.Context, filter domain.ChangeFilter, pagination domain.Pagination) ([]*domain.ChangeRequest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(pagination.Skip).
		SetLimit(pagination.Limit)

	cursor, err := r.collection.Find(ctx, buildChangeFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var changes []*domain.ChangeRequest
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// Count counts changes matching the filter
func (r *ChangeRepository) Count(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, buildChangeFilter(filter))
}

func buildChangeFilter(filter domain.ChangeFilter) bson.M {
	mongoFilter := bson.M{}
	if filter.Status != nil {
		mongoFilter["status"] = *filter.Status
	}
	if filter.RequestedBy != nil {
		mongoFilter["requestedBy"] = *filter.RequestedBy
	}
	return mongoFilter
}
