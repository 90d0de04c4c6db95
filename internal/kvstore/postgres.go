package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store backed by a single kv_documents table. The version
// column carries the optimistic-concurrency counter; conditional UPDATEs
// make compare-and-swap atomic on the server side.
type Postgres struct {
	pool *pgxpool.Pool
}

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_documents (
	key     TEXT PRIMARY KEY,
	value   JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1
)`

// NewPostgres creates a Postgres store over pool and ensures the
// kv_documents table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("create kv_documents: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Get returns the document stored under key.
func (p *Postgres) Get(ctx context.Context, key string) (*Document, error) {
	doc := Document{Key: key}
	err := p.pool.QueryRow(ctx,
		`SELECT value, version FROM kv_documents WHERE key = $1`, key,
	).Scan(&doc.Value, &doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return &doc, nil
}

// Put writes value under key, enforcing the versioning contract.
func (p *Postgres) Put(ctx context.Context, key string, value json.RawMessage, expected int64) (int64, error) {
	switch {
	case expected == AnyVersion:
		var version int64
		err := p.pool.QueryRow(ctx, `
			INSERT INTO kv_documents (key, value, version) VALUES ($1, $2, 1)
			ON CONFLICT (key) DO UPDATE SET value = $2, version = kv_documents.version + 1
			RETURNING version`, key, value,
		).Scan(&version)
		if err != nil {
			return 0, fmt.Errorf("put %s: %w", key, err)
		}
		return version, nil

	case expected == 0:
		var version int64
		err := p.pool.QueryRow(ctx, `
			INSERT INTO kv_documents (key, value, version) VALUES ($1, $2, 1)
			ON CONFLICT (key) DO NOTHING
			RETURNING version`, key, value,
		).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionMismatch
		}
		if err != nil {
			return 0, fmt.Errorf("put %s: %w", key, err)
		}
		return version, nil

	default:
		var version int64
		err := p.pool.QueryRow(ctx, `
			UPDATE kv_documents SET value = $2, version = version + 1
			WHERE key = $1 AND version = $3
			RETURNING version`, key, value, expected,
		).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionMismatch
		}
		if err != nil {
			return 0, fmt.Errorf("put %s: %w", key, err)
		}
		return version, nil
	}
}

// Delete removes key. Deleting an absent key is a no-op.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns all documents whose key starts with prefix, in key order.
func (p *Postgres) List(ctx context.Context, prefix string) ([]Document, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT key, value, version FROM kv_documents
		WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Key, &doc.Value, &doc.Version); err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
