package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/RuanOosthuizen/StagePass/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the underlying Redis client, or nil when the cache is not set up.
func GetClient() *redis.Client {
	return client
}

// Get retrieves a value from the cache
func Get(key string) (string, error) {
	if client == nil {
		return "", redis.Nil
	}
	return client.Get(ctx, key).Result()
}

// Set stores a value in the cache with an expiration
func Set(key string, value string, expiration time.Duration) error {
	if client == nil {
		return nil
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Delete removes a key from the cache
func Delete(key string) error {
	if client == nil {
		return nil
	}
	return client.Del(ctx, key).Err()
}

// AcquireLock takes a best-effort distributed lock via SET NX. It returns true
// when the lock was obtained. Callers must ReleaseLock when done; the TTL caps
// how long a crashed holder can block others.
func AcquireLock(key string, ttl time.Duration) (bool, error) {
	if client == nil {
		// Without a cache server we degrade to unlocked operation; callers
		// must still be guarded by their storage-level idempotency checks.
		return true, nil
	}
	return client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock frees a lock taken with AcquireLock.
func ReleaseLock(key string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		log.Printf("Warning: could not release lock %s: %v", key, err)
	}
}
