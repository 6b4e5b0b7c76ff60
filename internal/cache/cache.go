// Package cache provides the encrypted persisted state blob: a Redis-backed
// key-value store whose values are sealed with an AEAD before they leave the
// process. It is opaque to the rest of the system beyond get/set/remove.
package cache

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"log/slog"
	"strings"
	"time"

	"driftline/internal/models"
	"driftline/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cache seals values with ChaCha20-Poly1305 and stores them in Redis.
// A Cache with no reachable Redis degrades to a no-op.
type Cache struct {
	client *redis.Client
	aead   cipher.AEAD
	logger *slog.Logger
}

// New connects to Redis at addr (plain host:port or redis:// URL) and derives
// the sealing key from secret. Connection failures are logged and the cache
// continues disabled.
func New(addr, secret string) (*Cache, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.Component("cache").Warn("invalid REDIS_URL, continuing without cache",
				slog.String("addr", addr), slog.String("error", err.Error()))
			return newWithClient(nil, secret)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		observability.Component("cache").Warn("redis unavailable, continuing without cache",
			slog.String("error", err.Error()))
		client = nil
	}

	return newWithClient(client, secret)
}

// NewWithClient builds a Cache over an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, secret string) (*Cache, error) {
	return newWithClient(client, secret)
}

func newWithClient(client *redis.Client, secret string) (*Cache, error) {
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Cache{
		client: client,
		aead:   aead,
		logger: observability.Component("cache"),
	}, nil
}

// Enabled reports whether a Redis backend is reachable.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the unsealed value for key. The second return is false when the
// key is absent or the cache is disabled.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.Enabled() {
		return nil, false, nil
	}

	blob, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		observability.CacheErrors.WithLabelValues("get").Inc()
		return nil, false, models.NewInternalError(err)
	}

	if len(blob) < c.aead.NonceSize() {
		observability.CacheErrors.WithLabelValues("get").Inc()
		return nil, false, models.NewValidationError("persisted blob too short")
	}
	nonce, sealed := blob[:c.aead.NonceSize()], blob[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		observability.CacheErrors.WithLabelValues("open").Inc()
		return nil, false, models.NewValidationError("persisted blob failed authentication")
	}
	return plain, true, nil
}

// Set seals value and stores it under key.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if !c.Enabled() {
		return nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return models.NewInternalError(err)
	}
	blob := append(nonce, c.aead.Seal(nil, nonce, value, nil)...)

	if err := c.client.Set(ctx, key, blob, 0).Err(); err != nil {
		observability.CacheErrors.WithLabelValues("set").Inc()
		return models.NewInternalError(err)
	}
	return nil
}

// Remove deletes the key.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		observability.CacheErrors.WithLabelValues("del").Inc()
		return models.NewInternalError(err)
	}
	return nil
}
