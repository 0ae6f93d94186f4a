package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidState) {
//	    // handle malformed state report
//	}
var (
	// ErrInvalidState is returned when a state payload cannot be parsed.
	ErrInvalidState = errors.New("device: invalid state")

	// ErrVariableNotFound is returned when a variable ID has never reported.
	ErrVariableNotFound = errors.New("device: variable not found")

	// ErrVariableValue is returned when a variable value cannot be coerced
	// to the requested type.
	ErrVariableValue = errors.New("device: variable value not coercible")
)
