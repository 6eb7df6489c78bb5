package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAuthDisabled  = errors.New("authentication disabled")
	ErrBackpressure  = errors.New("backpressure")
	ErrLowConfidence = errors.New("confidence below threshold")
)
