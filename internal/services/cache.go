package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "gstin:"

// CacheService is a RecordStore on Redis with an in-memory fallback
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	// In-memory fallback cache when Redis is not available
	memCache map[string]cacheItem
	memMutex sync.RWMutex
}

type cacheItem struct {
	entry     models.CacheEntry
	expiresAt time.Time
}

// NewCacheService creates a new cache service. client may be nil.
func NewCacheService(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CacheService {
	return &CacheService{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		memCache: make(map[string]cacheItem),
	}
}

func cacheKey(gstin string) string {
	return cacheKeyPrefix + gstin
}

// Get retrieves an entry from cache
func (c *CacheService) Get(ctx context.Context, gstin string) (*models.CacheEntry, error) {
	key := cacheKey(gstin)

	// Try Redis first if available
	if c.client != nil {
		val, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var entry models.CacheEntry
			jerr := json.Unmarshal(val, &entry)
			if jerr == nil {
				c.logger.WithField("key", key).Debug("Cache hit (Redis)")
				return &entry, nil
			}
			c.logger.WithError(jerr).WithField("key", key).Warn("Corrupt cache entry in Redis, ignoring")
		} else if !errors.Is(err, redis.Nil) {
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis get error, falling back to memory cache")
		}
	}

	// Fallback to memory cache
	c.memMutex.RLock()
	item, exists := c.memCache[key]
	c.memMutex.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	if c.ttl > 0 && time.Now().After(item.expiresAt) {
		c.memMutex.Lock()
		delete(c.memCache, key)
		c.memMutex.Unlock()
		return nil, ErrNotFound
	}

	c.logger.WithField("key", key).Debug("Cache hit (memory)")
	entry := item.entry
	return &entry, nil
}

// Save stores the record, keeping CreatedAt of an existing entry
func (c *CacheService) Save(ctx context.Context, record models.Record, verifiedAt time.Time) (*models.CacheEntry, error) {
	entry := models.CacheEntry{Record: record, CreatedAt: verifiedAt, VerifiedAt: verifiedAt}
	if prev, err := c.Get(ctx, record.GSTIN); err == nil && !prev.CreatedAt.IsZero() {
		entry.CreatedAt = prev.CreatedAt
	}

	key := cacheKey(record.GSTIN)
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Try Redis first if available
	if c.client != nil {
		err := c.client.Set(ctx, key, data, c.ttl).Err()
		if err == nil {
			c.logger.WithField("key", key).Debug("Cache set (Redis)")
			return &entry, nil
		}
		c.logger.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Redis set error, falling back to memory cache")
	}

	c.memMutex.Lock()
	c.memCache[key] = cacheItem{entry: entry, expiresAt: time.Now().Add(c.ttl)}
	c.memMutex.Unlock()

	c.logger.WithField("key", key).Debug("Cache set (memory)")
	return &entry, nil
}

// Delete removes an entry from cache
func (c *CacheService) Delete(ctx context.Context, gstin string) error {
	key := cacheKey(gstin)

	if c.client != nil {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis delete error")
		}
	}

	c.memMutex.Lock()
	delete(c.memCache, key)
	c.memMutex.Unlock()

	c.logger.WithField("key", key).Debug("Cache delete")
	return nil
}

// Stats returns cache statistics
func (c *CacheService) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "memory"}

	if c.client != nil {
		keys, err := c.client.Keys(ctx, cacheKeyPrefix+"*").Result()
		if err == nil {
			stats["backend"] = "redis"
			stats["redis"] = map[string]interface{}{
				"available": true,
				"entries":   len(keys),
			}
		} else {
			stats["redis"] = map[string]interface{}{
				"available": false,
				"error":     err.Error(),
			}
		}
	} else {
		stats["redis"] = map[string]interface{}{
			"available": false,
		}
	}

	c.memMutex.RLock()
	memSize := len(c.memCache)
	c.memMutex.RUnlock()

	stats["memory"] = map[string]interface{}{
		"size": memSize,
		"ttl":  c.ttl.String(),
	}
	return stats, nil
}

// Health returns cache service health status
func (c *CacheService) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.client.Ping(ctx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		health["redis"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	// Memory cache is always available
	health["memory"] = map[string]interface{}{
		"status": "healthy",
	}
	health["status"] = "healthy"
	return health
}

// Close closes the Redis client
func (c *CacheService) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// cleanupExpired removes expired items from memory cache
func (c *CacheService) cleanupExpired() {
	if c.ttl <= 0 {
		return
	}
	c.memMutex.Lock()
	defer c.memMutex.Unlock()

	now := time.Now()
	for key, item := range c.memCache {
		if now.After(item.expiresAt) {
			delete(c.memCache, key)
		}
	}
}

// StartCleanupRoutine periodically drops expired memory entries until ctx ends
func (c *CacheService) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.cleanupExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}
