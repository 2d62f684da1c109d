package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fsms-platform/fsms-service/pkg/errors"
	"github.com/fsms-platform/fsms-service/pkg/logging"
	"github.com/fsms-platform/fsms-service/pkg/middleware"
)

const (
	// DefaultMaxKeyLength follows the common 255 character limit
	DefaultMaxKeyLength = 255

	// DefaultLockTimeout is how long a lock is honored before it is stale
	DefaultLockTimeout = 5 * time.Minute

	// DefaultRetention is how long completed keys are kept
	DefaultRetention = 24 * time.Hour

	// DefaultMaxResponseSize caps cached responses at 1MB
	DefaultMaxResponseSize = 1 * 1024 * 1024
)

// Config configures the idempotency middleware
type Config struct {
	// Service namespaces keys so services sharing a database do not collide
	Service string

	// Repository is the key storage backend
	Repository Repository

	// RequireKey rejects mutating requests without a key when true.
	// When false, requests without a key pass through untracked.
	RequireKey bool

	MaxKeyLength    int
	LockTimeout     time.Duration
	Retention       time.Duration
	MaxResponseSize int

	Logger  *logging.Logger
	Metrics *Metrics
}

// DefaultConfig returns a Config with the standard limits. Keys stay optional
// so clients without retry logic are unaffected.
func DefaultConfig(service string, repo Repository, logger *logging.Logger) *Config {
	return &Config{
		Service:         service,
		Repository:      repo,
		RequireKey:      false,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		Retention:       DefaultRetention,
		MaxResponseSize: DefaultMaxResponseSize,
		Logger:          logger,
	}
}

// responseRecorder tees the response body so it can be cached for replays
type responseRecorder struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *responseRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Middleware makes mutating endpoints safe to retry. A repeated key replays
// the cached response; a repeated key with a different body is rejected; a
// key held by an in-flight request conflicts. GET and other non-mutating
// methods pass through.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderName))
		if key == "" {
			if config.RequireKey {
				middleware.AbortWithAppError(c, apperrors.ErrBadRequest(
					fmt.Sprintf("%s header is required for this operation", HeaderName)))
				return
			}
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, apperrors.ErrValidation(
				fmt.Sprintf("invalid idempotency key: %v", err)))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		handle(c, config, key, Fingerprint(body))
	}
}

func handle(c *gin.Context, config *Config, key, fingerprint string) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	stored, isNew, err := config.Repository.AcquireLock(ctx, &Key{
		Value:         key,
		Service:       config.Service,
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
		Fingerprint:   fingerprint,
		CreatedAt:     now,
		ExpiresAt:     now.Add(config.Retention),
	})
	if err != nil {
		config.Logger.WithError(err).Error("Failed to acquire idempotency lock",
			"key", key, "path", c.Request.URL.Path)
		config.Metrics.recordStorageError(config.Service, "acquire_lock")
		middleware.AbortWithAppError(c, apperrors.ErrServiceUnavailable("idempotency storage"))
		return
	}

	if stored.Completed() {
		if stored.Fingerprint != fingerprint {
			config.Logger.Warn("Idempotency key reused with a different body",
				"key", key, "path", c.Request.URL.Path)
			config.Metrics.recordMismatch(config.Service, c.Request.URL.Path, c.Request.Method)
			middleware.AbortWithAppError(c, &apperrors.AppError{
				Code:       apperrors.CodeConflict,
				Message:    "request body differs from the original request with this idempotency key",
				HTTPStatus: http.StatusUnprocessableEntity,
			})
			return
		}

		config.Metrics.recordHit(config.Service, c.Request.URL.Path, c.Request.Method)
		for k, v := range stored.ResponseHeaders {
			c.Header(k, v)
		}
		c.Data(stored.ResponseCode, "application/json", stored.ResponseBody)
		c.Abort()
		return
	}

	if !isNew && stored.Locked() {
		lockAge := time.Since(*stored.LockedAt)
		if lockAge < config.LockTimeout {
			config.Metrics.recordCollision(config.Service, c.Request.URL.Path, c.Request.Method)
			middleware.AbortWithAppError(c, apperrors.ErrConflict(
				"a request with this idempotency key is currently being processed"))
			return
		}
		config.Logger.Warn("Stale idempotency lock, proceeding",
			"key", key, "path", c.Request.URL.Path, "lockAge", lockAge)
	}

	config.Metrics.recordMiss(config.Service, c.Request.URL.Path, c.Request.Method)

	recorder := &responseRecorder{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
	}
	c.Writer = recorder

	c.Next()

	responseBody := recorder.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		responseBody = []byte(fmt.Sprintf(`{"error":"response too large to cache","size":%d}`, len(responseBody)))
	}

	headers := make(map[string]string)
	for k, v := range c.Writer.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	if err := config.Repository.StoreResponse(ctx, stored.ID.Hex(), recorder.statusCode, responseBody, headers); err != nil {
		config.Logger.WithError(err).Error("Failed to store idempotency response",
			"key", key, "path", c.Request.URL.Path)
		config.Metrics.recordStorageError(config.Service, "store_response")
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost ||
		method == http.MethodPut ||
		method == http.MethodPatch ||
		method == http.MethodDelete
}
