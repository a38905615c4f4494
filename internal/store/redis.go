// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// watchRetries bounds how many times a WATCH transaction is replayed after a
// conflicting concurrent commit before giving up with ErrContention.
const watchRetries = 16

// RedisStore implements Store on a Redis instance. Optimistic concurrency
// comes from WATCH: if the key changes between the read and the EXEC, the
// pipeline fails with redis.TxFailedErr and the transaction function is
// re-run against the fresh value.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// ConnectRedis builds a RedisStore from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - REDIS_KEY_PREFIX (optional, default "password")
func ConnectRedis() (*RedisStore, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, prefix: getEnv("REDIS_KEY_PREFIX", "password")}, nil
}

// NewRedisStore wraps an existing client, for callers that manage their own
// connection (the archiver shares one client between queue and store).
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Client exposes the underlying connection for non-document uses (queues).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode document %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Transaction(ctx context.Context, key string, fn TxFunc) (TxResult, error) {
	var res TxResult

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, s.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("redis get %s: %w", key, err)
		}

		next, err := fn(current)
		if errors.Is(err, ErrAbort) {
			res = TxResult{Committed: false, Value: current}
			return nil
		}
		if err != nil {
			return err
		}

		if next == nil {
			// Committing the absent value: nothing to write, but the
			// WATCH still guarantees nobody raced a document in.
			res = TxResult{Committed: true, Value: nil}
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(key), []byte(next), 0)
			return nil
		})
		if err != nil {
			return err
		}
		res = TxResult{Committed: true, Value: next}
		return nil
	}

	for i := 0; i < watchRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key(key))
		if err == nil {
			return res, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return TxResult{}, err
	}
	return TxResult{}, ErrContention
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
