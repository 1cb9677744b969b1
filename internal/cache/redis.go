package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"market-intel/internal/domain"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

const (
	lastRunKey = "marketintel:last_run"
	lastRunTTL = 48 * time.Hour
	statusKey  = "marketintel:status"
	statusTTL  = 5 * time.Minute
)

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects the shared client. The cache is an optional layer:
// a failed connection logs a warning and leaves Client nil, and every
// accessor degrades to a no-op.
func InitRedis(ctx context.Context) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Printf("Warning: failed to parse REDIS_URL: %v, cache disabled", err)
			return
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		log.Printf("Warning: failed to connect to Redis: %v, cache disabled", err)
		return
	}
	Client = client
	log.Println("Connected to Redis")
}

// StoreRunReport caches the latest run report for the status endpoint.
func StoreRunReport(ctx context.Context, result domain.RunResult) error {
	if Client == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	return Client.Set(ctx, lastRunKey, payload, lastRunTTL).Err()
}

// LatestRunReport returns the cached run report, or nil when none is
// cached or the cache is disabled.
func LatestRunReport(ctx context.Context) (*domain.RunResult, error) {
	if Client == nil {
		return nil, nil
	}
	payload, err := Client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal run report: %w", err)
	}
	return &result, nil
}

// StoreStatus caches the record-count map briefly to keep the status
// endpoint off the database on repeated polls.
func StoreStatus(ctx context.Context, counts map[string]int64) error {
	if Client == nil {
		return nil
	}
	payload, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return Client.Set(ctx, statusKey, payload, statusTTL).Err()
}

// CachedStatus returns the cached record counts, or nil on a miss.
func CachedStatus(ctx context.Context) (map[string]int64, error) {
	if Client == nil {
		return nil, nil
	}
	payload, err := Client.Get(ctx, statusKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var counts map[string]int64
	if err := json.Unmarshal(payload, &counts); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return counts, nil
}
