// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines the middleware system, which lets
// cross-cutting concerns (logging, caching, auditing) wrap every adapter
// operation.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Operation represents the kind of store operation being executed.
type Operation string

const (
	// OperationCreate corresponds to an insert.
	OperationCreate Operation = "create"
	// OperationUpdate corresponds to a sparse update batch.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a delete.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a query.
	OperationFind Operation = "find"
)

// Handler is the function signature executed by the adapter pipeline. It
// receives a context, the operation kind, and the operation payload.
type Handler func(ctx context.Context, op Operation, payload any) error

// Middleware wraps a Handler with additional logic, decorator style.
// Middlewares are chained globally and executed for every operation.
type Middleware func(next Handler) Handler

var (
	middlewareMutex      sync.RWMutex
	globalMiddlewareList []Middleware
)

// Use registers a global middleware, applied to all operations of all
// adapters. The most recently registered middleware runs first.
func Use(mw Middleware) {
	middlewareMutex.Lock()
	defer middlewareMutex.Unlock()
	globalMiddlewareList = append(globalMiddlewareList, mw)
}

// runMiddlewares applies the chain of middlewares to the final handler.
func runMiddlewares(final Handler) Handler {
	middlewareMutex.RLock()
	defer middlewareMutex.RUnlock()
	h := final
	// Apply in reverse order (last registered runs first).
	for i := len(globalMiddlewareList) - 1; i >= 0; i-- {
		h = globalMiddlewareList[i](h)
	}
	return h
}

// Dispatch executes an operation through the global middleware chain. The
// exec function contains the driver logic and is wrapped by the registered
// middlewares.
func Dispatch(ctx context.Context, op Operation, payload any, exec func() error) error {
	handler := runMiddlewares(func(ctx context.Context, op Operation, payload any) error {
		return exec()
	})
	return handler(ctx, op, payload)
}

// LoggingMiddleware logs every operation with its duration and outcome
// through the given structured logger. A nil logger uses slog.Default.
//
// Example:
//
//	core.Use(core.LoggingMiddleware(slog.Default()))
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, payload any) error {
			start := time.Now()
			err := next(ctx, op, payload)
			elapsed := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "glyph operation failed",
					"op", string(op), "elapsed", elapsed, "error", err)
			} else {
				logger.DebugContext(ctx, "glyph operation",
					"op", string(op), "elapsed", elapsed)
			}
			return err
		}
	}
}

// Cache is the interface for pluggable caching mechanisms used by
// CacheMiddleware. Values are stored with a TTL.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// memoryCache is a simple in-memory Cache implementation backed by a map
// protected by a RWMutex, with per-entry expiration.
type memoryCache struct {
	data  map[string]memoryEntry
	mutex sync.RWMutex
}

type memoryEntry struct {
	value      any
	expiration time.Time
}

// NewMemoryCache creates a new in-memory Cache instance.
func NewMemoryCache() Cache {
	return &memoryCache{
		data: make(map[string]memoryEntry),
	}
}

// Get retrieves a value from the cache by key. It returns false if the key
// does not exist or is expired.
func (c *memoryCache) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !entry.expiration.IsZero() && time.Now().After(entry.expiration) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache with the given TTL. A zero TTL never
// expires.
func (c *memoryCache) Set(key string, value any, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.data[key] = memoryEntry{value: value, expiration: exp}
}

// CacheMiddleware caches find results keyed by record type, id list and
// options. A repeated find inside the TTL window is answered from the cache
// without touching the store. Writes do not invalidate entries; pick a TTL
// accordingly.
//
// Example:
//
//	core.Use(core.CacheMiddleware(core.NewMemoryCache(), 30*time.Second))
func CacheMiddleware(cache Cache, ttl time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, payload any) error {
			findPayload, ok := payload.(*FindPayload)
			if op != OperationFind || !ok {
				return next(ctx, op, payload)
			}

			// Map formatting is key-ordered, so the key is deterministic.
			key := fmt.Sprintf("%s:%#v:%#v", findPayload.RecordType, findPayload.IDs, findPayload.Options)

			if cached, hit := cache.Get(key); hit {
				if result, ok := cached.(*Result); ok {
					// The stored result stays private: callers get a copy
					// they are free to mutate.
					findPayload.Result = result.Clone()
					return nil
				}
			}

			err := next(ctx, op, payload)
			if err == nil && findPayload.Result != nil {
				cache.Set(key, findPayload.Result.Clone(), ttl)
			}
			return err
		}
	}
}
