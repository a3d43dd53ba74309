package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hotelbooking/internal/config"
	"hotelbooking/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the client if it is set.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

const searchGenerationKey = "search:gen"

// RedisSearchCache namespaces entries by a generation counter so that
// Invalidate is a single INCR; stale generations expire by TTL.
type RedisSearchCache struct {
	client *redis.Client
}

func NewRedisSearchCache(client *redis.Client) *RedisSearchCache {
	return &RedisSearchCache{client: client}
}

func (r *RedisSearchCache) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, searchGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read search generation: %w", err)
	}
	return gen, nil
}

func searchKey(gen, key string) string {
	return "search:" + gen + ":" + key
}

// Generation returns the current generation as a decimal token.
func (r *RedisSearchCache) Generation(ctx context.Context) (string, error) {
	if r.client == nil {
		return "", errors.New("redis client is nil")
	}
	gen, err := r.generation(ctx)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(gen, 10), nil
}

func (r *RedisSearchCache) GetRooms(ctx context.Context, key string) ([]models.AvailableRoom, bool, error) {
	if r.client == nil {
		return nil, false, errors.New("redis client is nil")
	}
	gen, err := r.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	val, err := r.client.Get(ctx, searchKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get search result from redis: %w", err)
	}

	var rooms []models.AvailableRoom
	if err := json.Unmarshal(val, &rooms); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal search result: %w", err)
	}
	return rooms, true, nil
}

// SetRooms writes under gen, not the current generation. A result from an
// older generation lands under a key no reader looks up and expires by TTL.
func (r *RedisSearchCache) SetRooms(ctx context.Context, gen, key string, rooms []models.AvailableRoom, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if _, err := strconv.ParseInt(gen, 10, 64); err != nil {
		return fmt.Errorf("invalid search generation %q", gen)
	}
	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("failed to marshal search result: %w", err)
	}
	if err := r.client.Set(ctx, searchKey(gen, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set search result in redis: %w", err)
	}
	return nil
}

func (r *RedisSearchCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Incr(ctx, searchGenerationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	return nil
}

type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (r *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedupe key: %w", err)
	}
	return n > 0, nil
}

func (r *RedisDeduper) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dedupe key: %w", err)
	}
	return nil
}
