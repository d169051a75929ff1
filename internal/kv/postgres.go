package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostgresStore keeps the namespace in the kv_entries table created by the
// migrations under internal/db/migrations.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

func NewPostgresStore(db *sql.DB, namespace string) *PostgresStore {
	return &PostgresStore{db: db, namespace: namespace}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `
		SELECT value
		FROM kv_entries
		WHERE namespace = $1 AND key = $2`
	var value []byte
	err := p.db.QueryRowContext(ctx, query, p.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	_, err := p.db.ExecContext(ctx, query, p.namespace, key, value)
	return err
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`
	_, err := p.db.ExecContext(ctx, query, p.namespace, key)
	return err
}

func (p *PostgresStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	const query = `
		SELECT key, value
		FROM kv_entries
		WHERE namespace = $1 AND key LIKE $2 ESCAPE '\'
		ORDER BY key`
	rows, err := p.db.QueryContext(ctx, query, p.namespace, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
