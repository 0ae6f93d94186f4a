package lighting

import "errors"

// Domain errors for the lighting package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, lighting.ErrZoneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrZoneNotFound is returned when a zone name does not exist.
	ErrZoneNotFound = errors.New("zone: not found")

	// ErrZoneExists is returned when creating a zone whose name is taken.
	ErrZoneExists = errors.New("zone: already exists")

	// ErrInvalidZone is returned when zone validation fails.
	ErrInvalidZone = errors.New("zone: invalid")

	// ErrPeriodNotFound is returned when a lighting period ID does not exist.
	ErrPeriodNotFound = errors.New("lighting period: not found")

	// ErrInvalidPeriod is returned when lighting period validation fails.
	ErrInvalidPeriod = errors.New("lighting period: invalid")

	// ErrInvalidMode is returned when a lighting period mode string cannot
	// be folded into a known mode.
	ErrInvalidMode = errors.New("lighting period: invalid mode")
)
