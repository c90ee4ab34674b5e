package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slidecast/config"
	"slidecast/types"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the status mirror
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisMirror stores job snapshots as JSON strings with a TTL so that
// `watch` and other API replicas can see jobs this process runs.
type RedisMirror struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisMirror connects and verifies connectivity
func NewRedisMirror(cfg RedisConfig) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return newRedisMirror(client, cfg.TTL), nil
}

func newRedisMirror(client redis.Cmdable, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = config.JobStatusTTL
	}
	return &RedisMirror{client: client, ttl: ttl}
}

func key(id string) string {
	return config.RedisKeyPrefix + id
}

// Save writes a snapshot
func (r *RedisMirror) Save(ctx context.Context, st types.JobStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(st.ID), data, r.ttl).Err()
}

// Load reads a snapshot; a missing key returns ErrNotFound
func (r *RedisMirror) Load(ctx context.Context, id string) (*types.JobStatus, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var st types.JobStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &st, nil
}

// Close closes the underlying client when it owns one
func (r *RedisMirror) Close() error {
	if c, ok := r.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
