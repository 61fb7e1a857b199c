package authclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx answer from the server. Message is the server's
// "error" field.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies the status so callers can use errors.Is with the
// package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return ErrRejected
	}
}
