package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMalformedResponse is returned when a response body does not have the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassOther represents non-2xx statuses outside 4xx/5xx (e.g. 3xx not followed).
	ErrorClassOther ErrorClass = "other"
)

// RemoteRequestError is returned for any response with a non-2xx status.
// Requests are never retried; the error aborts the run.
type RemoteRequestError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

// Error implements the error interface.
func (e *RemoteRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s (status %d)", e.URL, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RemoteRequestError) Unwrap() error {
	return e.Err
}

// Class returns the error class of the failed status.
func (e *RemoteRequestError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// classifyStatus maps an HTTP status code to an ErrorClass.
// 2xx statuses have no class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassOther
	}
}

// malformed wraps a decoding or shape problem as ErrMalformedResponse.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
