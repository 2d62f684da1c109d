package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HeaderName is the HTTP header carrying the client's idempotency key
const HeaderName = "Idempotency-Key"

var (
	// ErrKeyRequired is returned when a mutating request carries no key in required mode
	ErrKeyRequired = errors.New("idempotency key is required for this operation")

	// ErrKeyInvalid is returned when the key contains characters outside [A-Za-z0-9_-]
	ErrKeyInvalid = errors.New("invalid idempotency key format")

	// ErrKeyTooLong is returned when the key exceeds the configured maximum length
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length")

	// ErrKeyNotFound is returned when no stored key matches
	ErrKeyNotFound = errors.New("idempotency key not found")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Key is a stored idempotency key: the fingerprint of the original request
// plus the cached response, enabling safe operator retries of writes.
type Key struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Value         string             `bson:"key"`
	Service       string             `bson:"service"`
	RequestPath   string             `bson:"requestPath"`
	RequestMethod string             `bson:"requestMethod"`
	Fingerprint   string             `bson:"fingerprint"`

	// LockedAt is set while a request holding this key is in flight
	LockedAt *time.Time `bson:"lockedAt,omitempty"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// Completed reports whether the original request finished and cached a response
func (k *Key) Completed() bool {
	return k.CompletedAt != nil
}

// Locked reports whether a request holding this key is still in flight
func (k *Key) Locked() bool {
	return k.LockedAt != nil && k.CompletedAt == nil
}

// ValidateKey checks the key's length and character set
func ValidateKey(key string, maxLength int) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > maxLength {
		return ErrKeyTooLong
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// Fingerprint hashes a request body so retries with a different payload can
// be told apart from genuine replays
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// NormalizeKey trims surrounding whitespace from a client-supplied key
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}
