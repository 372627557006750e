package model

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why an external API call failed.
type FailureKind int

const (
	// FailureUnclassified covers transport errors, decode errors and any
	// status code without a more specific kind.
	FailureUnclassified FailureKind = iota

	// FailureBadRequest indicates the platform rejected the request (400).
	FailureBadRequest

	// FailureNotFound indicates the requested entity does not exist (404, or
	// a successful response with a null body).
	FailureNotFound

	// FailureRateLimited indicates the caller exceeded the platform budget (429).
	FailureRateLimited

	// FailureServerError indicates a server-side error (500 and other 5xx).
	FailureServerError

	// FailureServiceUnavailable indicates the platform is temporarily
	// unavailable (503).
	FailureServiceUnavailable
)

// String returns a human-readable name of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureBadRequest:
		return "bad request"
	case FailureNotFound:
		return "not found"
	case FailureRateLimited:
		return "rate limited"
	case FailureServerError:
		return "server error"
	case FailureServiceUnavailable:
		return "service unavailable"
	default:
		return "unclassified"
	}
}

// Retryable reports whether a call failing with this kind may succeed when
// repeated after a delay.
func (k FailureKind) Retryable() bool {
	return k == FailureRateLimited || k == FailureServiceUnavailable
}

// ClassifyStatus maps an HTTP status code to a failure kind.
func ClassifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusBadRequest:
		return FailureBadRequest
	case status == http.StatusNotFound:
		return FailureNotFound
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status == http.StatusServiceUnavailable:
		return FailureServiceUnavailable
	case status >= http.StatusInternalServerError && status <= 599:
		return FailureServerError
	default:
		return FailureUnclassified
	}
}

// Failure is the error returned by every Sleeper client operation.
type Failure struct {
	// Kind is the classification used by retry and logging decisions.
	Kind FailureKind

	// Op names the failed operation, e.g. "league users".
	Op string

	// Status is the HTTP status code, or 0 for transport errors.
	Status int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Op, f.Kind)
	if f.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", f.Status)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// FailureKindOf returns the kind of the first *Failure in err's chain, or
// FailureUnclassified when err carries none.
func FailureKindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureUnclassified
}
