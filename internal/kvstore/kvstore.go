// Package kvstore provides a string-keyed JSON document store with
// per-record optimistic versioning. Every document carries a version
// counter; writers state the version they read, and a write with a stale
// version fails instead of silently overwriting a concurrent change.
//
// Three backends implement the interface: an in-memory map (tests and
// development), PostgreSQL (single kv_documents table over a pgx pool)
// and Redis (WATCH/MULTI transactions).
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key has no document.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrVersionMismatch is returned by Put when the expected version
	// does not match the stored one (or the key exists on a create-only
	// write). The caller should re-read and retry.
	ErrVersionMismatch = errors.New("kvstore: version mismatch")
)

// AnyVersion disables the version check on Put.
const AnyVersion int64 = -1

// Document is a versioned JSON value stored under a key.
// Version starts at 1 on creation and increments on every write.
type Document struct {
	Key     string
	Value   json.RawMessage
	Version int64
}

// Store is a synchronous key-value document store.
//
// Put semantics by expected version:
//   - 0: create-only; fails with ErrVersionMismatch if the key exists
//   - AnyVersion: unconditional write
//   - n > 0: compare-and-swap; fails with ErrVersionMismatch unless the
//     stored version is exactly n
type Store interface {
	Get(ctx context.Context, key string) (*Document, error)
	Put(ctx context.Context, key string, value json.RawMessage, expected int64) (int64, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Document, error)
}

// maxUpdateRetries bounds the read-modify-write loop in Update.
const maxUpdateRetries = 5

// Update runs a read-modify-CAS loop on key. fn receives the current
// value (nil if the key does not exist) and returns the replacement.
// On ErrVersionMismatch the read is repeated, up to maxUpdateRetries
// times; other errors abort immediately.
func Update(ctx context.Context, s Store, key string, fn func(current json.RawMessage) (json.RawMessage, error)) (*Document, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		var current json.RawMessage
		var expected int64

		doc, err := s.Get(ctx, key)
		switch {
		case err == nil:
			current = doc.Value
			expected = doc.Version
		case errors.Is(err, ErrNotFound):
			expected = 0
		default:
			return nil, err
		}

		next, err := fn(current)
		if err != nil {
			return nil, err
		}

		version, err := s.Put(ctx, key, next, expected)
		if err == nil {
			return &Document{Key: key, Value: next, Version: version}, nil
		}
		if !errors.Is(err, ErrVersionMismatch) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update %s: retries exhausted: %w", key, lastErr)
}

// GetJSON reads key and unmarshals it into out.
func GetJSON(ctx context.Context, s Store, key string, out any) (int64, error) {
	doc, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(doc.Value, out); err != nil {
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc.Version, nil
}

// PutJSON marshals v and writes it under key with the given expected
// version.
func PutJSON(ctx context.Context, s Store, key string, v any, expected int64) (int64, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, raw, expected)
}
