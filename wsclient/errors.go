package wsclient

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
)

// ErrUnrecoverableConnection is returned when the server refused the handshake
// in a way retrying will not fix (bad credentials, unknown endpoint...).
type ErrUnrecoverableConnection struct {
	err        error
	url        url.URL
	statusCode int
}

func (e ErrUnrecoverableConnection) Error() string {
	return fmt.Sprintf("Unrecoverable connection error: %s to %s (status %d)", e.err, e.url.String(), e.statusCode)
}

func (e ErrUnrecoverableConnection) Unwrap() error { return e.err }

// StatusCode returns the HTTP status the handshake was refused with.
func (e ErrUnrecoverableConnection) StatusCode() int { return e.statusCode }

func WrapErrorUnrecoverableConnection(err error, url url.URL, statusCode int) *ErrUnrecoverableConnection {
	if err == nil {
		return nil
	}
	return &ErrUnrecoverableConnection{
		err:        err,
		url:        url,
		statusCode: statusCode,
	}
}

func isUnrecoverable(err error) bool {
	var target *ErrUnrecoverableConnection
	return errors.As(err, &target)
}
