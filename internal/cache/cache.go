// Package cache stores converted outputs in Redis, keyed by a digest of the
// input bytes and the requested format.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "geodata:convert:"

// Entry is one cached conversion result.
type Entry struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Features int    `json:"features"`
	Data     []byte `json:"data"`
}

// Cache wraps a Redis client. A nil *Cache is valid and never hits.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New wraps an existing client. A nil client yields a nil cache.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Open connects to addr. An empty address disables caching.
func Open(addr, pass string, db int, ttl time.Duration, logger zerolog.Logger) *Cache {
	if addr == "" {
		return nil
	}
	return New(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl, logger)
}

// OpenFromEnv connects using REDIS_HOST, REDIS_PORT, REDIS_PASS and
// REDIS_DB. Without REDIS_HOST caching is disabled.
func OpenFromEnv(ttl time.Duration, logger zerolog.Logger) *Cache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	logger.Debug().Str("addr", host+":"+port).Int("db", db).Msg("Using redis cache from environment")
	return Open(host+":"+port, os.Getenv("REDIS_PASS"), db, ttl, logger)
}

// Key derives the cache key for an input and output format.
func Key(format string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(input)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry stored under key. Errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	s, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("Cache lookup failed")
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(s, &e); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropped unreadable cache entry")
		return nil, false
	}
	return &e, true
}

// Set stores e under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, e *Entry) {
	if c == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Cache store failed")
	}
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
