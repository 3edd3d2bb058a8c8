package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Op names a remote operation.
type Op string

// Remote operations.
const (
	OpList    Op = "list"
	OpGetByID Op = "get"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
)

// Sentinel errors for transport operations.
var (
	// ErrHTTPFailure matches every failed remote call, whatever the cause.
	ErrHTTPFailure = errors.New("user service request failed")
	// ErrInvalidArgument is returned before any request is issued.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is the single failure kind of the transport. Network errors,
// timeouts and non-2xx responses all surface as an Error; Status is 0 when
// no response was received.
type Error struct {
	Op     Op
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s users: status %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s users: status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s users: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrHTTPFailure) true for every Error.
func (e *Error) Is(target error) bool {
	return target == ErrHTTPFailure
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// IsNotFound reports whether the service answered 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
