package idempotency

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository stores idempotency keys. Implementations must make AcquireLock
// atomic so two concurrent retries cannot both proceed.
type Repository interface {
	// AcquireLock upserts the key and locks it, returning the stored key and
	// whether this call created it
	AcquireLock(ctx context.Context, key *Key) (*Key, bool, error)

	// ReleaseLock unlocks a key without completing it, so a failed request
	// can be retried
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse caches the response and marks the key completed
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Get retrieves a key by its value within one service's namespace
	Get(ctx context.Context, value, service string) (*Key, error)

	// Purge removes keys that expired before the given time
	Purge(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the unique and TTL indexes
	EnsureIndexes(ctx context.Context) error
}

const keysCollection = "idempotency_keys"

// MongoRepository implements Repository on MongoDB
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository creates a MongoDB-backed key repository
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	repo := &MongoRepository{collection: db.Collection(keysCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = repo.EnsureIndexes(ctx)

	return repo
}

// AcquireLock upserts the key, setting the lock timestamp. The unique index
// on (service, key) makes concurrent upserts converge on one document.
func (r *MongoRepository) AcquireLock(ctx context.Context, key *Key) (*Key, bool, error) {
	now := time.Now().UTC()
	key.LockedAt = &now

	filter := bson.M{
		"service": key.Service,
		"key":     key.Value,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"key":           key.Value,
			"service":       key.Service,
			"requestPath":   key.RequestPath,
			"requestMethod": key.RequestMethod,
			"fingerprint":   key.Fingerprint,
			"createdAt":     key.CreatedAt,
			"expiresAt":     key.ExpiresAt,
		},
		"$set": bson.M{"lockedAt": now},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored Key
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, false, err
	}

	isNew := stored.CompletedAt == nil && stored.CreatedAt.Equal(key.CreatedAt)
	return &stored, isNew, nil
}

// ReleaseLock clears the lock timestamp
func (r *MongoRepository) ReleaseLock(ctx context.Context, keyID string) error {
	objID, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$unset": bson.M{"lockedAt": ""}},
	)
	return err
}

// StoreResponse caches the response, marks the key completed and unlocks it
func (r *MongoRepository) StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error {
	objID, err := primitive.ObjectIDFromHex(keyID)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{
			"$set": bson.M{
				"responseCode":    responseCode,
				"responseBody":    responseBody,
				"responseHeaders": headers,
				"completedAt":     time.Now().UTC(),
			},
			"$unset": bson.M{"lockedAt": ""},
		},
	)
	return err
}

// Get retrieves a key by value within one service's namespace
func (r *MongoRepository) Get(ctx context.Context, value, service string) (*Key, error) {
	var stored Key
	err := r.collection.FindOne(ctx, bson.M{
		"service": service,
		"key":     value,
	}).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &stored, nil
}

// Purge removes keys that expired before the given time
func (r *MongoRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates the unique (service, key) index and the TTL index
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "service", Value: 1},
				{Key: "key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "lockedAt", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
