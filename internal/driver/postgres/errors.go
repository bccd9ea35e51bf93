package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mosaic-db/mosaic/internal/errs"
)

// PostgreSQL SQLSTATE error codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrConnectionFailure = "08006"
	pgErrInvalidPassword   = "28P01"
	pgErrInvalidAuthSpec   = "28000"
	pgErrUnknownDatabase   = "3D000"
	pgErrSyntaxError       = "42601"
	pgErrUndefinedTable    = "42P01"
	pgErrUndefinedColumn   = "42703"
	pgErrQueryCanceled     = "57014"
)

// mapError converts a pgx error into a categorized *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrConnectionFailure, pgErrInvalidPassword, pgErrInvalidAuthSpec, pgErrUnknownDatabase:
			return errs.Wrap(errs.ErrKindConnection, msg, err)
		case pgErrSyntaxError, pgErrUndefinedTable, pgErrUndefinedColumn:
			return errs.Wrap(errs.ErrKindStatement, msg, err)
		case pgErrQueryCanceled:
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		// Every other SQLSTATE is a statement-level rejection.
		return errs.Wrap(errs.ErrKindStatement, msg, err)
	}

	return errs.Wrap(errs.ErrKindUnknown, msg, err)
}
