package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/fuisce/errors"
)

var (
	// ErrNoDefaultInterface is returned by InterfaceSelector for a non-testing
	// host when CreateDefaultInterface was never called.
	ErrNoDefaultInterface = apperrors.NotConfigured(
		"a default database interface has not yet been defined; " +
			"define a default interface for all apps running in production or development mode")

	// ErrNoInterface is returned by Transact when ctx carries no interface.
	ErrNoInterface = apperrors.NotConfigured("no database interface in context")

	// ErrNotSetUp is returned by operations that need an engine before
	// SetupEngine was called.
	ErrNotSetUp = apperrors.NotConfigured("database engine is not set up")
)

// IsBusyError reports whether err is SQLite refusing work on a locked
// database; such operations can be retried.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a UNIQUE or PRIMARY KEY violation.
func IsDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyError checks if the error is a FOREIGN KEY violation.
func IsForeignKeyError(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// FromDatabase converts a database error to an AppError.
// AppErrors pass through unchanged.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var out *apperrors.AppError
	switch {
	case IsNotFoundError(err):
		out = apperrors.NotFound(resource, "").WithCause(err)
	case IsDuplicateError(err):
		out = apperrors.AlreadyExists(resource).WithCause(err)
	case IsForeignKeyError(err):
		out = apperrors.Conflict(fmt.Sprintf("%s references a missing or still referenced row", resource)).WithCause(err)
	case IsBusyError(err):
		out = apperrors.Busy("database").WithCause(err)
	default:
		out = apperrors.DatabaseError(err)
	}
	dbMetrics().RecordError(context.Background(), string(out.Code))
	return out
}
