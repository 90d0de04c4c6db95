package kvstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissing(t *testing.T) {
	s := NewMemory()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCreateOnly(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	version, err := s.Put(ctx, "k", json.RawMessage(`{"a":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// A second create-only write on the same key must fail.
	_, err = s.Put(ctx, "k", json.RawMessage(`{"a":2}`), 0)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(doc.Value))
}

func TestMemoryCompareAndSwap(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	v1, err := s.Put(ctx, "k", json.RawMessage(`1`), 0)
	require.NoError(t, err)

	v2, err := s.Put(ctx, "k", json.RawMessage(`2`), v1)
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)

	// Writing with the stale version must fail and leave the value alone.
	_, err = s.Put(ctx, "k", json.RawMessage(`3`), v1)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", string(doc.Value))
	assert.Equal(t, v2, doc.Version)
}

func TestMemoryAnyVersion(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Put(ctx, "k", json.RawMessage(`1`), AnyVersion)
	require.NoError(t, err)

	v, err := s.Put(ctx, "k", json.RawMessage(`2`), AnyVersion)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMemoryListPrefix(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for _, key := range []string{"a:2", "a:1", "b:1"} {
		_, err := s.Put(ctx, key, json.RawMessage(`{}`), 0)
		require.NoError(t, err)
	}

	docs, err := s.List(ctx, "a:")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a:1", docs[0].Key)
	assert.Equal(t, "a:2", docs[1].Key)
}

func TestMemoryDeleteIsIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Put(ctx, "k", json.RawMessage(`1`), 0)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCreatesWhenMissing(t *testing.T) {
	s := NewMemory()

	doc, err := Update(context.Background(), s, "counter", func(current json.RawMessage) (json.RawMessage, error) {
		assert.Nil(t, current)
		return json.RawMessage(`1`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Put(ctx, "counter", json.RawMessage(`0`), 0)
	require.NoError(t, err)

	// Simulate a concurrent writer sneaking in between the read and the
	// CAS on the first attempt.
	raced := false
	_, err = Update(ctx, s, "counter", func(current json.RawMessage) (json.RawMessage, error) {
		if !raced {
			raced = true
			_, err := s.Put(ctx, "counter", json.RawMessage(`100`), AnyVersion)
			require.NoError(t, err)
		}
		var n int
		require.NoError(t, json.Unmarshal(current, &n))
		return json.Marshal(n + 1)
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	// The retry must have observed the racing write.
	assert.Equal(t, "101", string(doc.Value))
}

func TestUpdateConcurrentIncrements(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := Update(ctx, s, "counter", func(current json.RawMessage) (json.RawMessage, error) {
					n := 0
					if current != nil {
						if err := json.Unmarshal(current, &n); err != nil {
							return nil, err
						}
					}
					return json.Marshal(n + 1)
				})
				if err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	var n int
	require.NoError(t, json.Unmarshal(doc.Value, &n))
	assert.Equal(t, writers, n)
}

func TestUpdatePropagatesCallbackError(t *testing.T) {
	s := NewMemory()

	wantErr := assert.AnError
	_, err := Update(context.Background(), s, "k", func(json.RawMessage) (json.RawMessage, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
