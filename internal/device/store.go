package device

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// Logger defines the logging interface used by this package.
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

// ChangeHandler receives device-state change notifications. diff holds the
// fields that changed in the triggering report.
type ChangeHandler func(deviceID string, diff map[string]any)

// Store tracks the last reported state of every device, fed from the MQTT
// state topics. It answers snapshot queries for the decision engine and
// notifies a change handler when a report differs from the tracked state.
//
// All public methods are thread-safe. The change handler is invoked
// synchronously from ApplyState, outside the store lock.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record

	onChange ChangeHandler
	history  StateHistoryRepository
	logger   Logger
	now      func() time.Time
}

// NewStore creates an empty device state store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetChangeHandler registers the change notification callback. Set once
// during wiring, before subscriptions start.
func (s *Store) SetChangeHandler(h ChangeHandler) {
	s.onChange = h
}

// SetHistory attaches an optional state history repository; every applied
// change is recorded to it.
func (s *Store) SetHistory(h StateHistoryRepository) {
	s.history = h
}

// ApplyState ingests a state report for a device.
//
// The payload is the JSON state document from the device plane. The diff
// against the tracked state is computed and, when non-empty, the tracked
// record is updated and the change handler invoked. Reports that match the
// tracked state refresh last-seen only; they are command confirmations or
// retained republishes, not changes.
func (s *Store) ApplyState(deviceID string, payload []byte) error {
	if deviceID == "" {
		return fmt.Errorf("%w: empty device id", ErrInvalidState)
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	now := s.now()

	s.mu.Lock()
	rec, ok := s.records[deviceID]
	if !ok {
		rec = &Record{DeviceID: deviceID, State: State{}}
		s.records[deviceID] = rec
	}
	diff := rec.State.Diff(state)
	rec.LastSeen = now
	if len(diff) > 0 {
		rec.State = state.Copy()
		rec.LastChanged = now
	}
	s.mu.Unlock()

	if len(diff) == 0 {
		return nil
	}

	s.logger.Debug("device state changed", "device_id", deviceID, "diff", diff)

	if s.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.history.RecordStateChange(ctx, deviceID, state, StateHistorySourceMQTT); err != nil {
			s.logger.Error("failed to record state history", "device_id", deviceID, "error", err)
		}
		cancel()
	}

	if s.onChange != nil {
		s.onChange(deviceID, diff)
	}
	return nil
}

// Snapshot returns the tracked state of a device in the decision engine's
// shape. The second return is false for devices that have never reported.
func (s *Store) Snapshot(deviceID string) (lighting.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[deviceID]
	if !ok {
		return lighting.Snapshot{}, false
	}

	// The snapshot must be assembled before the lock is released:
	// ApplyState replaces rec.State and rec.LastChanged in place.
	snap := lighting.Snapshot{
		DeviceID:    deviceID,
		On:          rec.State.On(),
		LastChanged: rec.LastChanged,
	}
	if level, dimmable := rec.State.Level(); dimmable {
		snap.Brightness = level
		snap.Dimmable = true
	}
	if v, ok := rec.State.SensorValue(); ok {
		snap.SensorValue = v
	}
	return snap, true
}

// Get returns the raw tracked record for a device.
func (s *Store) Get(deviceID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[deviceID]
	if !ok {
		return Record{}, false
	}
	cpy := *rec
	cpy.State = rec.State.Copy()
	return cpy, true
}

// Known returns the IDs of all devices that have reported at least once.
func (s *Store) Known() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}
