package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the user store collaborator. The engine never owns account
// persistence; it looks accounts up and writes back mutations.
type Repository interface {
	FindByUsernameOrEmail(ctx context.Context, s string) ([]Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Update(ctx context.Context, account *Account) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, username, email, first_name, last_name, password_hash, role, institution, license_number, is_active, last_login_at, created_at, updated_at`

// FindByUsernameOrEmail returns every account whose username or email equals
// s. The caller decides what an ambiguous result means.
func (r *PGRepository) FindByUsernameOrEmail(ctx context.Context, s string) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1 OR email = $1`, s)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// GetByID fetches one account.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// Update writes back the mutable account fields.
func (r *PGRepository) Update(ctx context.Context, account *Account) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, is_active = $3, last_login_at = $4, updated_at = $5 WHERE id = $1`,
		account.ID, account.PasswordHash, account.IsActive,
		toTimestamptz(account.LastLoginAt), toTimestamptz(account.UpdatedAt))
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	var role string
	var lastLogin, createdAt, updatedAt pgtype.Timestamptz
	err := row.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.FirstName, &acct.LastName,
		&acct.PasswordHash, &role, &acct.Institution, &acct.LicenseNumber, &acct.IsActive,
		&lastLogin, &createdAt, &updatedAt)
	if err != nil {
		return Account{}, err
	}
	acct.Role = Role(role)
	if lastLogin.Valid {
		acct.LastLoginAt = lastLogin.Time
	}
	if createdAt.Valid {
		acct.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		acct.UpdatedAt = updatedAt.Time
	}
	return acct, nil
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

var _ Repository = (*PGRepository)(nil)
