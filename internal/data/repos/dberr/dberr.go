// Package dberr maps database failures onto application error kinds.
package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeInsufficientPriv    = "42501"
)

// Translate converts err into an *apperrors.Error. Errors that already carry a kind pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, "not_found", "Resource not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflict(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return foreignKey(err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return check(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Internal("Database operation canceled", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case CodeUniqueViolation:
			return conflict(err)
		case CodeForeignKeyViolation:
			return foreignKey(err)
		case CodeCheckViolation:
			return check(err)
		case CodeInsufficientPriv:
			return apperrors.Wrap(apperrors.KindForbidden, "forbidden", "Access denied", err)
		}
	}

	// SQLite reports constraint failures only through the message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return conflict(err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return foreignKey(err)
	case strings.Contains(msg, "check constraint failed"):
		return check(err)
	case strings.Contains(msg, "row-level security"):
		return apperrors.Wrap(apperrors.KindForbidden, "forbidden", "Access denied", err)
	}
	return apperrors.Internal("Database error", err)
}

// NotFound translates err, replacing a missing-row result with the given code and message.
func NotFound(err error, code, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(code, message)
	}
	return Translate(err)
}

func conflict(err error) error {
	return apperrors.Wrap(apperrors.KindConflict, "duplicate", "Resource already exists", err)
}

func foreignKey(err error) error {
	return apperrors.Wrap(apperrors.KindValidation, "invalid_generation_id", "Invalid generation_id: generation does not exist", err)
}

func check(err error) error {
	return apperrors.Wrap(apperrors.KindValidation, "constraint_violation", "Invalid data: constraint violation", err)
}
