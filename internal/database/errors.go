package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
)

// Postgres SQLSTATE codes the engine reacts to.
const (
	codeInvalidText          = "22P02"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify maps driver errors onto the engine's failure kinds. Errors that
// match none of them are returned wrapped but otherwise unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidText:
			// A malformed uuid cannot name an existing row.
			return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected, codeCheckViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.Message, apperr.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
