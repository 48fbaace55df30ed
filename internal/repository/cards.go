// Package repository provides PostgreSQL persistence for cards and users.
package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/search"
	"github.com/lib/pq"
)

const cardColumns = `id, title, subtitle, description, phone, email, web,
	image_url, image_alt,
	address_state, address_country, address_city, address_street, address_house_number, address_zip,
	biz_number, user_id, likes, created_at, updated_at`

// PostgresCardRepository implements card persistence against a PostgreSQL database.
type PostgresCardRepository struct {
	// DB is the database handle or transaction executing queries.
	DB DBTX
}

// NewPostgresCardRepository creates a new PostgresCardRepository.
// db must be a valid connection to a PostgreSQL instance, or a transaction on one.
func NewPostgresCardRepository(db DBTX) *PostgresCardRepository {
	return &PostgresCardRepository{DB: db}
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c     models.Card
		likes []string
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.Subtitle, &c.Description, &c.Phone, &c.Email, &c.Web,
		&c.Image.URL, &c.Image.Alt,
		&c.Address.State, &c.Address.Country, &c.Address.City, &c.Address.Street,
		&c.Address.HouseNumber, &c.Address.Zip,
		&c.BizNumber, &c.OwnerID, pq.Array(&likes), &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Likes = models.NewLikeSet(likes...)
	return &c, nil
}

func (r *PostgresCardRepository) queryCards(ctx context.Context, op, query string, args ...any) ([]models.Card, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	cards := make([]models.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cards, nil
}

// ListCards returns every card ordered by bizNumber.
func (r *PostgresCardRepository) ListCards(ctx context.Context) ([]models.Card, error) {
	return r.queryCards(ctx, "ListCards",
		`SELECT `+cardColumns+` FROM cards ORDER BY biz_number`)
}

// ListCardsByOwner returns the cards created by ownerID.
func (r *PostgresCardRepository) ListCardsByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	return r.queryCards(ctx, "ListCardsByOwner",
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY biz_number`, ownerID)
}

// SearchCards returns the cards where any requested field matches the term,
// ignoring case.
func (r *PostgresCardRepository) SearchCards(ctx context.Context, q search.Query) ([]models.Card, error) {
	where, args, err := q.Where(1)
	if err != nil {
		return nil, err
	}
	return r.queryCards(ctx, "SearchCards",
		`SELECT `+cardColumns+` FROM cards WHERE `+where+` ORDER BY biz_number`, args...)
}

// GetCard fetches a single card by id.
func (r *PostgresCardRepository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	c, err := scanCard(r.DB.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if err != nil {
		return nil, translate("GetCard", err)
	}
	return c, nil
}

// MaxBizNumber retrieves the highest bizNumber of all cards.
// If no cards exist, it returns 0.
func (r *PostgresCardRepository) MaxBizNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(biz_number), 0) FROM cards`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("MaxBizNumber failed: %w", err)
	}
	return n, nil
}

// InsertCard stores a new card. The unique index on biz_number turns a lost
// allocation race into apperr.ErrDuplicateKey.
func (r *PostgresCardRepository) InsertCard(ctx context.Context, c *models.Card) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		c.ID, c.Title, c.Subtitle, c.Description, c.Phone, c.Email, c.Web,
		c.Image.URL, c.Image.Alt,
		c.Address.State, c.Address.Country, c.Address.City, c.Address.Street,
		c.Address.HouseNumber, c.Address.Zip,
		c.BizNumber, c.OwnerID, pq.Array(c.Likes.Slice()), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return translate("InsertCard", err)
	}
	return nil
}

// UpdateCard persists the editable fields of c. biz_number, user_id and likes
// are not part of the statement.
func (r *PostgresCardRepository) UpdateCard(ctx context.Context, c *models.Card) (*models.Card, error) {
	updated, err := scanCard(r.DB.QueryRowContext(ctx, `
		UPDATE cards SET
			title = $2, subtitle = $3, description = $4, phone = $5, email = $6, web = $7,
			image_url = $8, image_alt = $9,
			address_state = $10, address_country = $11, address_city = $12, address_street = $13,
			address_house_number = $14, address_zip = $15,
			updated_at = $16
		WHERE id = $1
		RETURNING `+cardColumns,
		c.ID, c.Title, c.Subtitle, c.Description, c.Phone, c.Email, c.Web,
		c.Image.URL, c.Image.Alt,
		c.Address.State, c.Address.Country, c.Address.City, c.Address.Street,
		c.Address.HouseNumber, c.Address.Zip,
		c.UpdatedAt,
	))
	if err != nil {
		return nil, translate("UpdateCard", err)
	}
	return updated, nil
}

// DeleteCard removes a card by id and returns its last state.
func (r *PostgresCardRepository) DeleteCard(ctx context.Context, id string) (*models.Card, error) {
	deleted, err := scanCard(r.DB.QueryRowContext(ctx,
		`DELETE FROM cards WHERE id = $1 RETURNING `+cardColumns, id))
	if err != nil {
		return nil, translate("DeleteCard", err)
	}
	return deleted, nil
}

// ToggleLike flips userID in the likes array in a single statement, so
// concurrent toggles by different users never overwrite each other.
func (r *PostgresCardRepository) ToggleLike(ctx context.Context, cardID, userID string) (*models.Card, error) {
	c, err := scanCard(r.DB.QueryRowContext(ctx, `
		UPDATE cards SET
			likes = CASE
				WHEN $2::text = ANY(likes) THEN array_remove(likes, $2::text)
				ELSE array_append(likes, $2::text)
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+cardColumns, cardID, userID))
	if err != nil {
		return nil, translate("ToggleLike", err)
	}
	return c, nil
}

// PruneLikes removes liking identities that no longer belong to a registered
// user and returns the number of cards changed.
func (r *PostgresCardRepository) PruneLikes(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE cards c SET
			likes = ARRAY(
				SELECT l FROM unnest(c.likes) AS l
				WHERE EXISTS (SELECT 1 FROM users u WHERE u.id::text = l)
			),
			updated_at = NOW()
		WHERE EXISTS (
			SELECT 1 FROM unnest(c.likes) AS l
			WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.id::text = l)
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("PruneLikes: %w", err)
	}
	return res.RowsAffected()
}
