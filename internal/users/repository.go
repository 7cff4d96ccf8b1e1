package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/auth"
)

// RepositoryPort defines data access methods for account administration.
type RepositoryPort interface {
	List(ctx context.Context) ([]auth.Account, error)
	Insert(ctx context.Context, account *auth.Account) error
}

// PGRepository implements RepositoryPort on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns every account ordered by username.
func (r *PGRepository) List(ctx context.Context) ([]auth.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, email, first_name, last_name, role, institution, license_number, is_active, last_login_at, created_at
		 FROM accounts ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []auth.Account
	for rows.Next() {
		var acct auth.Account
		var role string
		var lastLogin, createdAt pgtype.Timestamptz
		if err := rows.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.FirstName, &acct.LastName,
			&role, &acct.Institution, &acct.LicenseNumber, &acct.IsActive, &lastLogin, &createdAt); err != nil {
			return nil, err
		}
		acct.Role = auth.Role(role)
		if lastLogin.Valid {
			acct.LastLoginAt = lastLogin.Time
		}
		if createdAt.Valid {
			acct.CreatedAt = createdAt.Time
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

// Insert stores a freshly provisioned account.
func (r *PGRepository) Insert(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, email, first_name, last_name, password_hash, role, institution, license_number, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		account.ID, account.Username, account.Email, account.FirstName, account.LastName,
		account.PasswordHash, string(account.Role), account.Institution, account.LicenseNumber,
		account.IsActive, pgtype.Timestamptz{Time: account.CreatedAt, Valid: true})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

var _ RepositoryPort = (*PGRepository)(nil)
