package domain

import "errors"

// Error taxonomy for analytics requests. The HTTP layer maps each class to a
// distinct status code; ErrModelFailure never escapes the forecast cascade.
var (
	// ErrInsufficientData means there is not enough history for the requested
	// analysis. A client-visible "cannot compute" condition, not a server error.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParameters means the request was malformed (bad date range,
	// cluster count exceeding record count, out-of-range bins). Rejected
	// before any computation begins.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrModelFailure means a forecasting model's fit step failed to converge
	// or hit a numerical error. Recovered locally by the cascade.
	ErrModelFailure = errors.New("model failure")

	// ErrUpstreamUnavailable means the record store could not be reached.
	ErrUpstreamUnavailable = errors.New("record store unavailable")
)
