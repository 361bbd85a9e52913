package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fanpulse/fanpulse/internal/scoring"
)

// Config holds Redis cache configuration.
type Config struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Addr: "localhost:6379",
		TTL:  5 * time.Minute,
	}
}

// LatestCache caches the most recent scoring results so dashboard polling
// does not hit postgres per page load. A miss or any Redis failure is a
// cache miss, never an error surfaced to the read path.
type LatestCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New creates a cache over a fresh Redis client.
func New(config Config) *LatestCache {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &LatestCache{client: client, ttl: config.TTL}
}

// NewWithClient creates a cache over an existing client (used by tests with
// redismock).
func NewWithClient(client redis.Cmdable, ttl time.Duration) *LatestCache {
	return &LatestCache{client: client, ttl: ttl}
}

func fvsKey(artistID string) string {
	return fmt.Sprintf("fanpulse:fvs:latest:%s", artistID)
}

func momentumKey(artistID string) string {
	return fmt.Sprintf("fanpulse:momentum:latest:%s", artistID)
}

// GetFVS returns the cached latest FVS result, (nil, false) on miss.
func (c *LatestCache) GetFVS(ctx context.Context, artistID string) (*scoring.FVSResult, bool) {
	data, err := c.client.Get(ctx, fvsKey(artistID)).Bytes()
	if err != nil {
		return nil, false
	}
	var result scoring.FVSResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// SetFVS stores the latest FVS result. Errors are returned for logging but
// callers treat them as non-fatal.
func (c *LatestCache) SetFVS(ctx context.Context, result *scoring.FVSResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal fvs result: %w", err)
	}
	if err := c.client.Set(ctx, fvsKey(result.ArtistID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache fvs result: %w", err)
	}
	return nil
}

// GetMomentum returns the cached latest momentum result, (nil, false) on miss.
func (c *LatestCache) GetMomentum(ctx context.Context, artistID string) (*scoring.MomentumResult, bool) {
	data, err := c.client.Get(ctx, momentumKey(artistID)).Bytes()
	if err != nil {
		return nil, false
	}
	var result scoring.MomentumResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// SetMomentum stores the latest momentum result.
func (c *LatestCache) SetMomentum(ctx context.Context, result *scoring.MomentumResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal momentum result: %w", err)
	}
	if err := c.client.Set(ctx, momentumKey(result.ArtistID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache momentum result: %w", err)
	}
	return nil
}

// Invalidate drops both cached results for an artist.
func (c *LatestCache) Invalidate(ctx context.Context, artistID string) error {
	return c.client.Del(ctx, fvsKey(artistID), momentumKey(artistID)).Err()
}
