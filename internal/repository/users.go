package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/bcards/internal/models"
)

const userColumns = `id, first_name, middle_name, last_name, phone, email, password_hash,
	image_url, image_alt,
	address_state, address_country, address_city, address_street, address_house_number, address_zip,
	is_business, is_admin, created_at, updated_at`

// PostgresUserRepository implements user persistence against a PostgreSQL database.
type PostgresUserRepository struct {
	DB DBTX
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(db DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Name.First, &u.Name.Middle, &u.Name.Last, &u.Phone, &u.Email, &u.PasswordHash,
		&u.Image.URL, &u.Image.Alt,
		&u.Address.State, &u.Address.Country, &u.Address.City, &u.Address.Street,
		&u.Address.HouseNumber, &u.Address.Zip,
		&u.IsBusiness, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user in registration order.
func (r *PostgresUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	return users, nil
}

// GetUser fetches a user by id.
func (r *PostgresUserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate("GetUser", err)
	}
	return u, nil
}

// GetUserByEmail fetches a user by email, ignoring case.
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, translate("GetUserByEmail", err)
	}
	return u, nil
}

// InsertUser stores a new user. A registered email yields apperr.ErrDuplicateKey.
func (r *PostgresUserRepository) InsertUser(ctx context.Context, u *models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		u.ID, u.Name.First, u.Name.Middle, u.Name.Last, u.Phone, strings.ToLower(u.Email), u.PasswordHash,
		u.Image.URL, u.Image.Alt,
		u.Address.State, u.Address.Country, u.Address.City, u.Address.Street,
		u.Address.HouseNumber, u.Address.Zip,
		u.IsBusiness, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return translate("InsertUser", err)
	}
	return nil
}

// UpdateUser stores the profile fields of u.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	updated, err := scanUser(r.DB.QueryRowContext(ctx, `
		UPDATE users SET
			phone = $2, password_hash = $3, image_url = $4, image_alt = $5,
			address_state = $6, address_country = $7, address_city = $8, address_street = $9,
			address_house_number = $10, address_zip = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Phone, u.PasswordHash, u.Image.URL, u.Image.Alt,
		u.Address.State, u.Address.Country, u.Address.City, u.Address.Street,
		u.Address.HouseNumber, u.Address.Zip,
		u.UpdatedAt,
	))
	if err != nil {
		return nil, translate("UpdateUser", err)
	}
	return updated, nil
}

// DeleteUser removes a user and returns its last state.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
	if err != nil {
		return nil, translate("DeleteUser", err)
	}
	return u, nil
}

// SetBusiness sets the business flag of a user.
func (r *PostgresUserRepository) SetBusiness(ctx context.Context, id string, isBusiness bool) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		UPDATE users SET is_business = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, isBusiness))
	if err != nil {
		return nil, translate("SetBusiness", err)
	}
	return u, nil
}
