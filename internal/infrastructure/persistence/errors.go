package persistence

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/formbox/backend/internal/domain/shared"
)

// unavailableHints are driver message fragments that indicate a transport or
// connection failure rather than a statement problem. Drivers wrap these
// inconsistently, so matching on the message is the only portable check.
var unavailableHints = []string{
	"database is closed",
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no such host",
	"the database system is starting up",
	"the database system is shutting down",
}

// isUnavailable reports whether an error is a transient storage failure that
// the caller may retry
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, hint := range unavailableHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// wrapStorageErr keeps the operation context on a storage error and tags
// transient transport failures with shared.ErrUnavailable so the delivery
// layer can answer with a retriable status instead of a generic failure.
func wrapStorageErr(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	if isUnavailable(err) {
		return fmt.Errorf("%s: %v: %w", op, err, shared.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
