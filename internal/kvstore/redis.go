package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by Redis hashes. Each key maps to a hash with
// "value" and "version" fields; compare-and-swap runs inside a
// WATCH/MULTI transaction so a concurrent writer aborts the commit.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis store from a connection URL. All keys are
// namespaced under "sudhaar:".
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, prefix: "sudhaar:"}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get returns the document stored under key.
func (r *Redis) Get(ctx context.Context, key string) (*Document, error) {
	fields, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("get %s: bad version %q", key, fields["version"])
	}
	return &Document{
		Key:     key,
		Value:   json.RawMessage(fields["value"]),
		Version: version,
	}, nil
}

// Put writes value under key, enforcing the versioning contract.
func (r *Redis) Put(ctx context.Context, key string, value json.RawMessage, expected int64) (int64, error) {
	rkey := r.key(key)
	var newVersion int64

	txn := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, rkey, "version").Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		var stored int64
		if exists {
			stored, err = strconv.ParseInt(current, 10, 64)
			if err != nil {
				return fmt.Errorf("bad version %q", current)
			}
		}

		switch {
		case expected == AnyVersion:
		case expected == 0 && exists:
			return ErrVersionMismatch
		case expected > 0 && (!exists || stored != expected):
			return ErrVersionMismatch
		}

		newVersion = stored + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rkey, "value", string(value), "version", newVersion)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txn, rkey)
	if errors.Is(err, redis.TxFailedErr) {
		// Key changed between WATCH and EXEC; same outcome as a stale version.
		return 0, ErrVersionMismatch
	}
	if err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			return 0, ErrVersionMismatch
		}
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return newVersion, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns all documents whose key starts with prefix, in key order.
func (r *Redis) List(ctx context.Context, prefix string) ([]Document, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(keys)

	out := make([]Document, 0, len(keys))
	for _, rkey := range keys {
		doc, err := r.Get(ctx, rkey[len(r.prefix):])
		if errors.Is(err, ErrNotFound) {
			continue // deleted between SCAN and HGETALL
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}
