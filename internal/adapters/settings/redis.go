package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the per-module hashes (default "forkadmin:settings:").
	Prefix string
}

// RedisStore keeps one hash per module; field values are JSON documents.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis. The connection is lazy; call Ping to verify.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreFromClient(client, opts.Prefix)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "forkadmin:settings:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrSettingsUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get returns the decoded value or def.
func (s *RedisStore) Get(ctx context.Context, module, key string, def any) (any, error) {
	raw, err := s.client.HGet(ctx, s.hash(module), key).Result()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrSettingsUnavailable, err)
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode %s.%s: %w", module, key, err)
	}
	if v == nil {
		return def, nil
	}
	return v, nil
}

// Set stores value; nil removes the field.
func (s *RedisStore) Set(ctx context.Context, module, key string, value any) error {
	return s.SetMany(ctx, module, map[string]any{key: value})
}

// SetMany writes all fields inside MULTI/EXEC.
func (s *RedisStore) SetMany(ctx context.Context, module string, values map[string]any) error {
	encoded := make(map[string]any, len(values))
	var deletes []string
	for k, v := range values {
		if v == nil {
			deletes = append(deletes, k)
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", module, k, err)
		}
		encoded[k] = string(data)
	}

	hash := s.hash(module)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(encoded) > 0 {
			pipe.HSet(ctx, hash, encoded)
		}
		if len(deletes) > 0 {
			pipe.HDel(ctx, hash, deletes...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrSettingsUnavailable, err)
	}
	return nil
}

// updateAttempts bounds the optimistic retries of Update.
const updateAttempts = 16

// Update runs fn inside WATCH/MULTI/EXEC and retries when another client
// changed the hash in between.
func (s *RedisStore) Update(ctx context.Context, module, key string, fn func(current any) (any, error)) error {
	hash := s.hash(module)
	txf := func(tx *redis.Tx) error {
		var current any
		raw, err := tx.HGet(ctx, hash, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(raw), &current); err != nil {
				return fmt.Errorf("decode %s.%s: %w", module, key, err)
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		var data []byte
		if next != nil {
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode %s.%s: %w", module, key, err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.HDel(ctx, hash, key)
			} else {
				pipe.HSet(ctx, hash, key, string(data))
			}
			return nil
		})
		return err
	}

	for range updateAttempts {
		err := s.client.Watch(ctx, txf, hash)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update %s.%s: %w", module, key, err)
		}
		return nil
	}
	return fmt.Errorf("%w: update %s.%s kept conflicting", ports.ErrSettingsUnavailable, module, key)
}

func (s *RedisStore) hash(module string) string {
	return s.prefix + module
}

var (
	_ ports.SettingsStore   = (*RedisStore)(nil)
	_ ports.SettingsUpdater = (*RedisStore)(nil)
)
