package webdav

import (
	"errors"
	"fmt"
)

// StatusError is returned for any remote response outside the success range
// of the attempted operation. Code carries the HTTP status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webdav: status %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
