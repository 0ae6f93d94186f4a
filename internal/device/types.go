package device

import (
	"reflect"
	"time"
)

// State holds a device's reported state as a JSON map, exactly as received
// from the device plane.
//
// Examples:
//   - Dimmer: {"on": true, "level": 75}
//   - Switch: {"on": false}
//   - Presence sensor: {"occupied": true}
//   - Luminance sensor: {"value": 412.5}
type State map[string]any

// Copy returns an independent copy of the state map.
func (s State) Copy() State {
	if s == nil {
		return nil
	}
	cpy := make(State, len(s))
	for k, v := range s {
		cpy[k] = v
	}
	return cpy
}

// Bool reads a boolean field, coercing the loose types JSON decoding
// produces (bool, float64 0/1). The second return is false when the field
// is absent or not coercible.
func (s State) Bool(key string) (bool, bool) {
	raw, ok := s[key]
	if !ok {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	}
	return false, false
}

// Float reads a numeric field. JSON decoding yields float64 for all
// numbers; integer-typed values from other producers are accepted too.
func (s State) Float(key string) (float64, bool) {
	raw, ok := s[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// On reports the device's power state. Presence sensors report through
// "occupied"; everything else through "on".
func (s State) On() bool {
	if v, ok := s.Bool("on"); ok {
		return v
	}
	v, _ := s.Bool("occupied")
	return v
}

// Level reports the dimmer level in percent. The second return is false
// for devices that never report a level (plain switches, sensors).
func (s State) Level() (int, bool) {
	v, ok := s.Float("level")
	if !ok {
		return 0, false
	}
	return int(v), true
}

// SensorValue reports the sensor reading ("value" field, lux for
// luminance sensors).
func (s State) SensorValue() (float64, bool) {
	return s.Float("value")
}

// Diff computes the fields of next that differ from s, including fields
// absent from s. An empty result means the report carried no change.
func (s State) Diff(next State) map[string]any {
	diff := make(map[string]any)
	for k, v := range next {
		if prev, ok := s[k]; !ok || !reflect.DeepEqual(prev, v) {
			diff[k] = v
		}
	}
	return diff
}

// Record is one device's tracked state plus bookkeeping.
type Record struct {
	DeviceID    string    `json:"device_id"`
	State       State     `json:"state"`
	LastChanged time.Time `json:"last_changed"`
	LastSeen    time.Time `json:"last_seen"`
}
