// Package cache keeps short-lived JSON documents in Redis (or Dragonfly).
// Every helper is a no-op when no cache host is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/archivohistorico/heritage/internal/pkg/env"
)

// ErrMiss is returned by GetJSON when the key is absent or caching is disabled
var ErrMiss = errors.New("cache miss")

var client *redis.Client

// SetupCache connects to CACHE_HOST:CACHE_PORT. An empty CACHE_HOST disables caching.
func SetupCache(ctx context.Context) {
	host := env.GetEnv("CACHE_HOST", "")
	if host == "" {
		log.Info("[Cache] CACHE_HOST not set, caching disabled")
		client = nil
		return
	}
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to %s:%s: %v", host, port, err)
	} else {
		log.Infof("[Cache] Connected to %s:%s: %s", host, port, pong)
	}
}

// Enabled reports whether a client was configured
func Enabled() bool {
	return client != nil
}

// Close releases the client
func Close() {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Warnf("[Cache] Close failed: %v", err)
	}
	client = nil
}

// SetJSON stores value as JSON under key
func SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, expiration).Err()
}

// GetJSON decodes the value at key into dst
func GetJSON(ctx context.Context, key string, dst any) error {
	if client == nil {
		return ErrMiss
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Delete removes keys
func Delete(ctx context.Context, keys ...string) error {
	if client == nil || len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}

// ImageMetadataKey is the key of the cached metadata of a stored original
func ImageMetadataKey(original string) string {
	return "image:metadata:" + original
}
