// Package serviceerr holds the error taxonomy shared by the interview
// service and its HTTP surface.
package serviceerr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrTimeout    = errors.New("generation endpoint timed out")

	// ErrMalformedReply is returned by the reply repair pipeline. It is always
	// handled by substituting a fallback question and never reaches a client.
	ErrMalformedReply = errors.New("malformed model reply")
)

// UpstreamError describes a failed call to the generation endpoint.
type UpstreamError struct {
	StatusCode int    // HTTP status returned by the endpoint, 0 if none
	Detail     string // response body or transport message
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := "generation endpoint error"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s - %s", msg, e.Detail)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Validation wraps ErrValidation with a human readable reason.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// HTTPStatus maps an error to the status code reported to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the upstream detail attached to err, if any.
func Detail(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Detail
	}
	return ""
}
