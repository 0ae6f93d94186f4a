package lighting

import "time"

// Snapshot is the last reported state of a device, as of the most recent
// refresh from the device plane. The zero value means "never reported".
type Snapshot struct {
	DeviceID string

	// On is the reported power state.
	On bool

	// Brightness is the reported level in percent. Meaningful only when
	// Dimmable is true.
	Brightness int

	// Dimmable distinguishes dimmers from plain switches: targets for
	// switches compare on/off only.
	Dimmable bool

	// SensorValue is the reported reading for sensor devices (lux for
	// luminance sensors).
	SensorValue float64

	// LastChanged is when the device last reported a state change.
	LastChanged time.Time
}

// IsOn reports whether the snapshot represents a lit device.
func (s Snapshot) IsOn() bool {
	if s.Dimmable {
		return s.On && s.Brightness > 0
	}
	return s.On
}

// DeviceStates is the snapshot query collaborator: given a device ID it
// returns the current reported state. The second return is false when the
// device is unknown to the device plane.
type DeviceStates interface {
	Snapshot(deviceID string) (Snapshot, bool)
}

// Commander issues device commands. Calls are fire-and-forget: the state
// machine does not await delivery, and failures are the device plane's to
// log.
type Commander interface {
	SendCommand(deviceID string, target Target)
}

// Variables reads dynamic variables coerced to a primitive type. Used for
// variable-backed luminance thresholds and global behaviour switches.
type Variables interface {
	Bool(id string) (bool, error)
	Float(id string) (float64, error)
}

// Logger defines the logging interface used by the lighting package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
