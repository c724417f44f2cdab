package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// PostgresBackend keeps entries in a single credentials table.
type PostgresBackend struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresBackend creates a PostgresBackend with the given connection.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{DB: db}
}

// OpenPostgresBackend connects to dsn and creates the credentials table.
func OpenPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	pb := NewPostgresBackend(db)
	if err := pb.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pb, nil
}

// EnsureSchema creates the credentials table if needed.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, credentialsSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get implements Backend.
func (p *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.DB.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE key = $1`,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Backend.
func (p *PostgresBackend) Set(ctx context.Context, key, value string) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO credentials (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM credentials WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database handle.
func (p *PostgresBackend) Close() error {
	return p.DB.Close()
}
