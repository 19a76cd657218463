package calculator

import "errors"

var (
	// ErrInsufficientData is returned when a series is shorter than the
	// indicator's lookback.
	ErrInsufficientData = errors.New("not enough data")
	// ErrInvalidInput is returned for non-positive periods and similar
	// malformed arguments.
	ErrInvalidInput = errors.New("invalid indicator input")
)
