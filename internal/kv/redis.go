package kv

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/inkpress/apiserver/config"
	"github.com/redis/go-redis/v9"
)

const (
	redisScanCount = 200
	redisMGetBatch = 100
)

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// RedisStore keeps the namespace in redis, every key prefixed with "{namespace}:".
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, namespace string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisStore(client, namespace), nil
}

func newRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.fullKey(key), value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.fullKey(key)).Err()
}

// List scans the keyspace with SCAN MATCH and loads values in MGET batches.
// Keys removed between the scan and the fetch are skipped.
func (r *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	match := globEscaper.Replace(r.fullKey(prefix)) + "*"

	var keys []string
	iter := r.client.Scan(ctx, 0, match, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	keys = dedupeSorted(keys)

	entries := make([]Entry, 0, len(keys))
	for start := 0; start < len(keys); start += redisMGetBatch {
		end := min(start+redisMGetBatch, len(keys))
		batch := keys[start:end]

		values, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, err
		}
		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			entries = append(entries, Entry{
				Key:   strings.TrimPrefix(batch[i], r.keyPrefix()),
				Value: []byte(raw),
			})
		}
	}
	return entries, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) keyPrefix() string {
	if r.namespace == "" {
		return ""
	}
	return r.namespace + ":"
}

func (r *RedisStore) fullKey(key string) string {
	return r.keyPrefix() + key
}

// SCAN may return a key more than once.
func dedupeSorted(keys []string) []string {
	if len(keys) < 2 {
		return keys
	}
	out := keys[:1]
	for _, key := range keys[1:] {
		if key != out[len(out)-1] {
			out = append(out, key)
		}
	}
	return out
}
