package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"inkwell/internal/domain"
)

// SQLSTATE codes the post repository translates.
const (
	pgUniqueViolation     = "23505"
	pgInvalidTextEncoding = "22P02" // malformed uuid literal
)

// translatePostError maps a driver error for post id to a domain error. Ids
// that are not valid uuids are reported as missing, like ids that match no row.
func translatePostError(err error, op, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{Message: fmt.Sprintf("post %s not found", id)}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("post %s: %w", id, domain.ErrConflict)
		case pgInvalidTextEncoding:
			return &domain.NotFoundError{Message: fmt.Sprintf("post %s not found", id)}
		}
	}
	return fmt.Errorf("%s post: %w", op, err)
}
