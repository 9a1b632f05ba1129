package resample

import "errors"

// Errors that abort a whole pass. Unresolved cells are never errors.
var (
	ErrNoRays         = errors.New("no rays in volume")
	ErrTooFewRays     = errors.New("fewer than 2 usable rays")
	ErrNoBeamWidth    = errors.New("radar beam width unavailable")
	ErrNoGateGeometry = errors.New("ray gate geometry unavailable")
	ErrInvalidGrid    = errors.New("invalid output grid")
	ErrSearchTooLarge = errors.New("search grid exceeds cell limit")
)
