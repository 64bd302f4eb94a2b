package store

import (
	"context"
	"database/sql"
	"errors"
)

// DefaultDocumentName is the row the user collection is stored under.
const DefaultDocumentName = "users"

// PostgresBackend stores the user document as one jsonb row in user_documents.
type PostgresBackend struct {
	db   *sql.DB
	name string
}

func NewPostgresBackend(db *sql.DB, name string) *PostgresBackend {
	if name == "" {
		name = DefaultDocumentName
	}
	return &PostgresBackend{db: db, name: name}
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	const query = `
		SELECT data
		FROM user_documents
		WHERE name = $1`
	var data []byte
	err := b.db.QueryRowContext(ctx, query, b.name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO user_documents (name, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	_, err := b.db.ExecContext(ctx, query, b.name, string(data))
	return err
}
