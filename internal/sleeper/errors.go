package sleeper

import "errors"

// Client construction and payload errors.
var (
	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not
	// in "host:port" format with a port between 1 and 65535.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidBaseURL is returned when the API base URL is empty or not http(s).
	ErrInvalidBaseURL = errors.New("invalid base URL: must start with http:// or https://")

	// ErrNullBody is wrapped by NotFound failures for 200 responses whose
	// body is the JSON literal null, which is how the platform answers
	// unknown ids.
	ErrNullBody = errors.New("response body is null")

	// ErrMalformedBody is wrapped by Unclassified failures when a response
	// is not the JSON shape the endpoint documents.
	ErrMalformedBody = errors.New("malformed response body")
)
