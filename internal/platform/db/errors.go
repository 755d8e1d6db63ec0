package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

// PostgreSQL error codes the store reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Classify maps a pgx error on resource id to the application taxonomy.
// Errors it does not recognise are wrapped as internal.
func Classify(err error, resource string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(err, apperr.KindConflict, apperr.CodeDuplicate,
				fmt.Sprintf("%s already exists", resource))
		case pgForeignKeyViolation:
			return apperr.Wrap(err, apperr.KindConflict, apperr.CodeInUse,
				fmt.Sprintf("%s is referenced by other records", resource))
		}
	}

	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(fmt.Errorf("%s %d: %w", resource, id, err))
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
