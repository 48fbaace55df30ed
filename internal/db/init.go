// Package db opens the PostgreSQL store and runs its maintenance jobs.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    first_name TEXT NOT NULL,
    middle_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL,
    phone TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    image_url TEXT NOT NULL DEFAULT '',
    image_alt TEXT NOT NULL DEFAULT '',
    address_state TEXT NOT NULL DEFAULT '',
    address_country TEXT NOT NULL,
    address_city TEXT NOT NULL,
    address_street TEXT NOT NULL,
    address_house_number INTEGER NOT NULL,
    address_zip TEXT NOT NULL DEFAULT '',
    is_business BOOLEAN NOT NULL DEFAULT FALSE,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cards (
    id UUID PRIMARY KEY,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    description TEXT NOT NULL,
    phone TEXT NOT NULL,
    email TEXT NOT NULL,
    web TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    image_alt TEXT NOT NULL DEFAULT '',
    address_state TEXT NOT NULL DEFAULT '',
    address_country TEXT NOT NULL,
    address_city TEXT NOT NULL,
    address_street TEXT NOT NULL,
    address_house_number INTEGER NOT NULL,
    address_zip TEXT NOT NULL DEFAULT '',
    biz_number BIGINT NOT NULL,
    user_id UUID NOT NULL,
    likes TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT cards_biz_number_key UNIQUE (biz_number)
);

CREATE INDEX IF NOT EXISTS cards_user_id_idx ON cards (user_id);
`

// InitPostgres opens dsn, checks the connection and creates the schema.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Reset removes every card and user. It backs the seed command and runs
// inside its transaction.
func Reset(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE cards, users`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
