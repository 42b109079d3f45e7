package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/passbi/txc_segments/internal/config"
	"github.com/passbi/txc_segments/internal/models"
	"github.com/redis/go-redis/v9"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis configuration
type Config struct {
	Host       string
	Port       int
	Password   string
	DB         int
	TTL        time.Duration
	TLSEnabled bool
}

// ConfigFrom converts application settings into a client configuration
func ConfigFrom(settings config.CacheConfig) *Config {
	return &Config{
		Host:       settings.Host,
		Port:       settings.Port,
		Password:   settings.Password,
		DB:         settings.DB,
		TTL:        settings.TTL,
		TLSEnabled: settings.TLS,
	}
}

// Options builds go-redis options for cfg
func (c *Config) Options() *redis.Options {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	if c.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return opts
}

// GetClient returns the global Redis client (singleton pattern)
// The first call decides the configuration.
func GetClient(cfg *Config) (*redis.Client, error) {
	clientOnce.Do(func() {
		client = redis.NewClient(cfg.Options())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("failed to connect to Redis: %w", err)
		}
	})

	return client, clientErr
}

// Close closes the Redis client
func Close() {
	if client != nil {
		client.Close()
	}
}

// ResultCache stores per-document extraction results
// Failures are logged and treated as misses so extraction always proceeds.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResultCache wraps a Redis client; a zero ttl keeps entries forever
func NewResultCache(rdb *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: ttl}
}

// Get retrieves a cached result
func (c *ResultCache) Get(ctx context.Context, key string) (models.ExtractionResult, bool) {
	var result models.ExtractionResult

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false
	}
	if err != nil {
		log.Printf("Warning: cache lookup failed for %s: %v", key, err)
		return result, false
	}

	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("Warning: discarding unreadable cache entry %s: %v", key, err)
		return models.ExtractionResult{}, false
	}
	return result, true
}

// Set caches a result
func (c *ResultCache) Set(ctx context.Context, key string, result models.ExtractionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("Warning: failed to marshal result for %s: %v", key, err)
		return
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("Warning: failed to cache %s: %v", key, err)
	}
}

// HealthCheck performs a health check on the Redis connection
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}

	return nil
}
