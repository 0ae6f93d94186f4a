package device

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// VariableHandler receives variable-change notifications.
type VariableHandler func(variableID string)

// Variables tracks dynamic variable values fed from the MQTT variable
// topics and answers typed reads for the decision engine.
//
// Values arrive as raw payloads (bare scalars or quoted strings) and are
// coerced at read time: the same variable may be read as a boolean switch
// by one zone and never as a number, so storage stays untyped.
//
// All public methods are thread-safe.
type Variables struct {
	mu     sync.RWMutex
	values map[string]string

	onChange VariableHandler
	logger   Logger
}

// NewVariables creates an empty variable store.
func NewVariables() *Variables {
	return &Variables{
		values: make(map[string]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the variable store.
func (v *Variables) SetLogger(logger Logger) {
	v.logger = logger
}

// SetChangeHandler registers the change notification callback. Set once
// during wiring, before subscriptions start.
func (v *Variables) SetChangeHandler(h VariableHandler) {
	v.onChange = h
}

// Apply ingests a variable value report. Unchanged values are absorbed
// without notification.
func (v *Variables) Apply(variableID string, payload []byte) {
	value := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(payload)), `"`))

	v.mu.Lock()
	prev, existed := v.values[variableID]
	v.values[variableID] = value
	v.mu.Unlock()

	if existed && prev == value {
		return
	}

	v.logger.Debug("variable changed", "variable_id", variableID, "value", value)
	if v.onChange != nil {
		v.onChange(variableID)
	}
}

// Bool reads a variable coerced to boolean. Accepted true spellings:
// "true", "yes", "on", "1" (case-insensitive); their counterparts read
// false. Numbers read as non-zero.
func (v *Variables) Bool(id string) (bool, error) {
	raw, err := v.raw(id)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(raw) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	}
	if f, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
		return f != 0, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrVariableValue, raw)
}

// Float reads a variable coerced to a number.
func (v *Variables) Float(id string) (float64, error) {
	raw, err := v.raw(id)
	if err != nil {
		return 0, err
	}

	f, parseErr := strconv.ParseFloat(raw, 64)
	if parseErr != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrVariableValue, raw)
	}
	return f, nil
}

// String reads a variable's raw value.
func (v *Variables) String(id string) (string, error) {
	return v.raw(id)
}

func (v *Variables) raw(id string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.values[id]
	if !ok {
		return "", ErrVariableNotFound
	}
	return value, nil
}
