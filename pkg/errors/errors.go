package errors

import (
	"errors"
	"net/http"

	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// ApplicativeError carries the HTTP status code and status word a handler
// should respond with, alongside a human readable message.
type ApplicativeError struct {
	HTTPStatusCode int
	Status         string
	Message        string
}

func (e *ApplicativeError) Error() string {
	return e.Message
}

func New(httpStatusCode int, status string, message string) error {
	return &ApplicativeError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

// Destruct resolves any error into an applicative error. Errors that were not
// constructed by this package are treated as internal server errors.
func Destruct(err error) *ApplicativeError {
	var ae *ApplicativeError
	if errors.As(err, &ae) {
		return ae
	}

	return &ApplicativeError{
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         status.INTERNAL_SERVER_ERROR,
		Message:        "an internal server error occurred",
	}
}

// Is reports whether err is an applicative error carrying the given status word.
func Is(err error, statusWord string) bool {
	var ae *ApplicativeError
	if errors.As(err, &ae) {
		return ae.Status == statusWord
	}

	return false
}
