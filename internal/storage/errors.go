package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/adlio/asanadw/internal/errs"
)

// wrapDBError classifies a database/sql error into asanadw's typed error
// taxonomy, converting sql.ErrNoRows into errs.KindNotFound and everything
// else into errs.KindDatabase, tagged with the failing operation.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, op, err)
	}
	if isConstraintViolation(err) {
		return errs.Wrap(errs.KindDatabase, op+": constraint violation", err)
	}
	return errs.Wrap(errs.KindDatabase, op, err)
}

func wrapDBErrorf(err error, format string, args ...any) error {
	return wrapDBError(fmt.Sprintf(format, args...), err)
}

// isConstraintViolation reports whether err looks like a SQLite constraint
// failure (FOREIGN KEY, UNIQUE, NOT NULL, CHECK). The driver surfaces these
// as plain error strings rather than a typed sentinel.
func isConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "CONSTRAINT")
}
