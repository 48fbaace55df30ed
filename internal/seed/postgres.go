package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/bcards/internal/db"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/repository"
)

// PostgresTarget seeds a PostgreSQL database. Runs through a PostgresTarget
// built by NewPostgresTarget happen in a single transaction.
type PostgresTarget struct {
	conn  *sql.DB
	q     repository.DBTX
	cards *repository.PostgresCardRepository
	users *repository.PostgresUserRepository
}

// NewPostgresTarget returns a target writing through conn.
func NewPostgresTarget(conn *sql.DB) *PostgresTarget {
	t := bind(conn)
	t.conn = conn
	return t
}

func bind(q repository.DBTX) *PostgresTarget {
	return &PostgresTarget{
		q:     q,
		cards: repository.NewPostgresCardRepository(q),
		users: repository.NewPostgresUserRepository(q),
	}
}

// Reset truncates cards and users.
func (t *PostgresTarget) Reset(ctx context.Context) error {
	return db.Reset(ctx, t.q)
}

// InsertUser stores u.
func (t *PostgresTarget) InsertUser(ctx context.Context, u *models.User) error {
	return t.users.InsertUser(ctx, u)
}

// InsertCard stores c.
func (t *PostgresTarget) InsertCard(ctx context.Context, c *models.Card) error {
	return t.cards.InsertCard(ctx, c)
}

// InTx runs fn against a target bound to a new transaction, committing when
// fn succeeds. The truncation is rolled back with the inserts on failure.
func (t *PostgresTarget) InTx(ctx context.Context, fn func(Target) error) error {
	if t.conn == nil {
		return fn(t)
	}
	tx, err := t.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}
