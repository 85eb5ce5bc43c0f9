package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores each slot as a plain Redis string under prefix+slot.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisClient creates a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

// Get returns the slot value; redis.Nil is reported as ErrNotFound.
func (r *RedisStorage) Get(ctx context.Context, slot string) ([]byte, error) {
	if slot == "" {
		return nil, ErrEmptySlot
	}
	b, err := r.client.Get(ctx, r.prefix+slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: redis get %s: %w", slot, err)
	}
	return b, nil
}

// Set overwrites the slot value without expiry.
func (r *RedisStorage) Set(ctx context.Context, slot string, payload []byte) error {
	if slot == "" {
		return ErrEmptySlot
	}
	if err := r.client.Set(ctx, r.prefix+slot, payload, 0).Err(); err != nil {
		return fmt.Errorf("kv: redis set %s: %w", slot, err)
	}
	return nil
}
