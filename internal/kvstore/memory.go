package kvstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store backed by a map. It is the default
// backend in development and the one the service tests run against.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

// Get returns the document stored under key.
func (m *Memory) Get(ctx context.Context, key string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Copy the value so callers can't mutate stored bytes.
	cp := doc
	cp.Value = append(json.RawMessage(nil), doc.Value...)
	return &cp, nil
}

// Put writes value under key, enforcing the versioning contract.
func (m *Memory) Put(ctx context.Context, key string, value json.RawMessage, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.docs[key]
	switch {
	case expected == AnyVersion:
	case expected == 0 && exists:
		return 0, ErrVersionMismatch
	case expected > 0 && (!exists || current.Version != expected):
		return 0, ErrVersionMismatch
	}

	version := current.Version + 1
	m.docs[key] = Document{
		Key:     key,
		Value:   append(json.RawMessage(nil), value...),
		Version: version,
	}
	return version, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

// List returns all documents whose key starts with prefix, in key order.
func (m *Memory) List(ctx context.Context, prefix string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for key, doc := range m.docs {
		if strings.HasPrefix(key, prefix) {
			cp := doc
			cp.Value = append(json.RawMessage(nil), doc.Value...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
