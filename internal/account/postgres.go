package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ Repository = (*PostgresStore)(nil)

const uniqueViolation = "23505"

// PostgresStore reads accounts from the users table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open pgx-backed *sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectAccount = `select id, email, role, name, password_hash, created_at, updated_at from users`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.findOne(ctx, selectAccount+` where id=$1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, selectAccount+` where lower(email)=$1`, normalizeEmail(email))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	var acc Account
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Role, &acc.Name, &acc.PasswordHash, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &acc, nil
}

// Create inserts acc, assigning an ID when missing.
func (s *PostgresStore) Create(ctx context.Context, acc Account) (*Account, error) {
	acc.Email = normalizeEmail(acc.Email)
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`insert into users (id, email, role, name, password_hash, created_at, updated_at) values ($1, $2, $3, $4, $5, $6, $7)`,
		acc.ID, acc.Email, acc.Role, acc.Name, acc.PasswordHash, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &acc, nil
}
