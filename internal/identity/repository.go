package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

var (
	// ErrNotFound is returned when no account matches a lookup.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Repository persists accounts and resolves them by id or email.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account. A duplicate email maps to ErrEmailTaken.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5)`, accountID, account.Name, account.Email, account.PasswordHash, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrEmailTaken
	}
	return err
}

// FindByID fetches an account by its id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.scanOne(ctx, `SELECT id, name, email, password_hash, created_at FROM accounts WHERE id = $1`, accountID)
}

// FindByEmail fetches an account by its normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.scanOne(ctx, `SELECT id, name, email, password_hash, created_at FROM accounts WHERE email = $1`, email)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		account   Account
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &account.Name, &account.Email, &account.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	account.ID = id.String()
	account.CreatedAt = createdAt.UTC()
	return account, nil
}
