package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"roomchat/internal/app/user"
)

const (
	uniqueViolationCode = "23505"

	usersUserNameKey = "users_user_name_key"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

// accountError maps driver errors of the users table onto the user package sentinels.
func accountError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return user.ErrNotFound
	case IsUniqueViolation(err):
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		if pgErr.ConstraintName == "" || pgErr.ConstraintName == usersUserNameKey {
			return user.ErrAlreadyExists
		}
	}
	return err
}
