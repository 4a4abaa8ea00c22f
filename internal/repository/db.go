package repository

import (
	"context"
	"errors"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

// mapError turns driver errors into domain sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", entities.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// wordPattern builds a regex matching the lower-cased column as whole words,
// for use as text ~ (pattern). Metacharacters in the column are escaped and
// suffix goes right after it. The edges are non-word characters rather than
// \m and \M so names ending in punctuation still match.
func wordPattern(column, suffix string) string {
	return `'(^|\W)' || regexp_replace(lower(` + column + `), '([!$()*+.:<=>?[\\\]^{|}-])', '\\\1', 'g') || '` + suffix + `(\W|$)'`
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
