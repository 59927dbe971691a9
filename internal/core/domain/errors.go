package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks input that can be neither parsed nor geocoded.
	ErrInput = errors.New("invalid input")
	// ErrNotFound marks a geocoding query with zero results.
	ErrNotFound = errors.New("not found")
	// ErrExport marks a failure to serialise a route for download.
	ErrExport = errors.New("export failed")
)

// MaxRouteDistanceMeters is the pre-flight great-circle limit between endpoints.
const MaxRouteDistanceMeters = 6_000_000.0

// RouteTooLongError is returned when the endpoints are further apart than the limit.
type RouteTooLongError struct {
	DistanceMeters float64
	LimitMeters    float64
}

func (e *RouteTooLongError) Error() string {
	return fmt.Sprintf("Route is too long (%dkm). Maximum allowed is %dkm.",
		int(e.DistanceMeters/1000), int(e.LimitMeters/1000))
}

// UpstreamError wraps a failed call to a third-party provider.
// Status and Body carry the provider's raw response for diagnostics.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s error (%d): %s", e.Provider, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Provider, e.Body)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRouteTooLong reports whether err carries a RouteTooLongError.
func IsRouteTooLong(err error) bool {
	var tooLong *RouteTooLongError
	return errors.As(err, &tooLong)
}

// IsUpstream reports whether err carries an UpstreamError.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
