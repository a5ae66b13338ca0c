package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName)
	}
	if code := sqlStateOf(err); code != "" {
		return code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

// IsForeignKeyViolation reports whether the provided error is a referential
// integrity failure. Postgres drivers expose SQLSTATE 23503; the sqlite driver
// used in tests only exposes the message text.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code := sqlStateOf(err); code != "" {
		return code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func sqlStateOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
