// Package errs defines the three error kinds kvsql ever returns from the
// core: ParseError, InternalError, and WriteConflict (the only retryable
// kind). Callers cross package boundaries with errors.Is/errors.As instead
// of matching on a closed enum.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel kinds. Wrap these with fmt context via the constructors below;
// never return them bare.
var (
	ErrParse         = errors.New("parse error")
	ErrInternal      = errors.New("internal error")
	ErrWriteConflict = errors.New("write conflict")
)

// Parse builds a ParseError with a formatted message.
func Parse(format string, args ...interface{}) error {
	return errors.Wrap(ErrParse, fmt.Sprintf(format, args...))
}

// Internal builds an InternalError with a formatted message.
func Internal(format string, args ...interface{}) error {
	return errors.Wrap(ErrInternal, fmt.Sprintf(format, args...))
}

// WriteConflict builds the single retryable error kind.
func WriteConflict(format string, args ...interface{}) error {
	return errors.Wrap(ErrWriteConflict, fmt.Sprintf(format, args...))
}

// IsWriteConflict reports whether err (or any error it wraps) is a
// WriteConflict, the only error kind a caller should consider retryable.
func IsWriteConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}
