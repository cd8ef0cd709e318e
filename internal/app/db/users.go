package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"roomchat/internal/app/user"
)

const (
	createUserSQL = `INSERT INTO users (id, user_name, password_hash)
VALUES ($1, $2, $3)
RETURNING id, user_name, password_hash, created_at`

	getUserByNameSQL = `SELECT id, user_name, password_hash, created_at
FROM users
WHERE user_name = $1`
)

// UserRepository stores accounts in the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. A taken username yields user.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, userName, passwordHash string) (user.Account, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}

	row := r.db.QueryRow(ctx, createUserSQL, id, userName, passwordHash)
	account, err := scanAccount(row)
	if err != nil {
		return user.Account{}, accountError(err)
	}

	return account, nil
}

// FindByUserName returns the account with the given username.
func (r *UserRepository) FindByUserName(ctx context.Context, userName string) (user.Account, error) {
	row := r.db.QueryRow(ctx, getUserByNameSQL, userName)
	account, err := scanAccount(row)
	if err != nil {
		return user.Account{}, accountError(err)
	}

	return account, nil
}

func scanAccount(row pgx.Row) (user.Account, error) {
	var (
		id        pgtype.UUID
		account   user.Account
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &account.UserName, &account.PasswordHash, &createdAt); err != nil {
		return user.Account{}, err
	}

	account.ID = uuidString(id)
	account.CreatedAt = createdAt.Time
	return account, nil
}

// uuidString formats a pgtype.UUID in canonical form.
func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
