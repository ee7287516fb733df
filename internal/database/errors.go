package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL/MariaDB error numbers.
const (
	erDupEntry            = 1062 // unique key violation
	erBadNull             = 1048 // column cannot be null
	erWarnDataOutOfRange  = 1264
	erWarnDataTruncated   = 1265
	erTruncatedWrongValue = 1366
	erDataTooLong         = 1406
)

// IsDuplicateEntry reports whether err is a unique-constraint violation.
// Falls back to the message text for drivers or wrappers that don't expose
// a *mysql.MySQLError.
func IsDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == erDupEntry
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// IsDataError reports whether err is a strict-mode rejection of one row's
// values (too long, out of range, wrong type, null). Retrying the same row
// fails the same way, unlike a connection or lock error.
func IsDataError(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case erBadNull, erWarnDataOutOfRange, erWarnDataTruncated, erTruncatedWrongValue, erDataTooLong:
		return true
	}
	return false
}
