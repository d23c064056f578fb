package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the systems react to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// MapError translates a database error into the caller's domain errors:
// sql.ErrNoRows becomes notFound and a unique violation becomes duplicate.
// Anything else is returned as is.
func MapError(err error, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case hasCode(err, codeUniqueViolation):
		return duplicate
	default:
		return err
	}
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation, as when linking to a row that no longer exists.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
