package lighting

import "time"

// Settings carries the plugin-level defaults and global behaviour variable
// references, loaded from the application configuration.
type Settings struct {
	// Enabled is the master switch for the automation.
	Enabled bool

	// EnabledVariableID, when set, overrides Enabled with the variable's
	// current value.
	EnabledVariableID string

	// Global behaviour variables. Empty IDs disable the behaviour.
	SomeoneHomeVariableID string
	GoneToBedVariableID   string
	GuestModeVariableID   string

	// Defaults applied where zones and periods carry the UseDefault
	// sentinel.
	DefaultLockDuration  time.Duration
	DefaultLockExtension time.Duration
	DefaultBrightness    int

	// GracePeriod is the no-presence grace window before an early unlock.
	GracePeriod time.Duration

	// ProcessInterval is the periodic re-evaluation cadence for the agent.
	ProcessInterval time.Duration
}

// AutoLightsConfig is the in-memory object graph assembled from stored
// configuration: the zone list, the lighting-period list, and the plugin
// defaults. It is rebuilt wholesale on config reload; zones always start
// Unlocked.
type AutoLightsConfig struct {
	Enabled               bool
	EnabledVariableID     string
	SomeoneHomeVariableID string
	GoneToBedVariableID   string
	GuestModeVariableID   string

	DefaultLockDuration  time.Duration
	DefaultLockExtension time.Duration
	DefaultBrightness    int
	GracePeriod          time.Duration
	ProcessInterval      time.Duration

	Zones   []*Zone
	Periods []*LightingPeriod

	// agent is a back-reference for callback purposes, set once after
	// construction. The config does not own the agent.
	agent *Agent
}

// SetAgent records the back-reference to the agent. Called once during
// wiring, before any processing starts.
func (c *AutoLightsConfig) SetAgent(a *Agent) {
	c.agent = a
}

// Agent returns the agent back-reference, or nil before wiring completes.
func (c *AutoLightsConfig) Agent() *Agent {
	return c.agent
}

// ZoneByName returns the named zone or ErrZoneNotFound.
func (c *AutoLightsConfig) ZoneByName(name string) (*Zone, error) {
	for _, z := range c.Zones {
		if z.Name == name {
			return z, nil
		}
	}
	return nil, ErrZoneNotFound
}

// PeriodByID returns the lighting period with the given ID, or
// ErrPeriodNotFound.
func (c *AutoLightsConfig) PeriodByID(id string) (*LightingPeriod, error) {
	for _, p := range c.Periods {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPeriodNotFound
}

// IsEnabled reports whether the automation is globally enabled, consulting
// the enabled variable when one is configured. A failed variable read
// falls back to the static setting.
func (c *AutoLightsConfig) IsEnabled(vars Variables) bool {
	if c.EnabledVariableID != "" && vars != nil {
		if v, err := vars.Bool(c.EnabledVariableID); err == nil {
			return v
		}
	}
	return c.Enabled
}

// GlobalLightsOff reports whether a global behaviour switch demands all
// lights off, and why. Lights go off when the someone-home variable reads
// false, unless guest mode is active.
func (c *AutoLightsConfig) GlobalLightsOff(vars Variables) (bool, string) {
	if c.SomeoneHomeVariableID == "" || vars == nil {
		return false, ""
	}

	home, err := vars.Bool(c.SomeoneHomeVariableID)
	if err != nil || home {
		return false, ""
	}

	if c.GuestModeVariableID != "" {
		if guest, guestErr := vars.Bool(c.GuestModeVariableID); guestErr == nil && guest {
			return false, ""
		}
	}
	return true, "nobody home"
}

// GoneToBed reports whether the household-asleep variable is set. Zones
// with TurnOffWhileSleeping react to this.
func (c *AutoLightsConfig) GoneToBed(vars Variables) bool {
	if c.GoneToBedVariableID == "" || vars == nil {
		return false
	}
	asleep, err := vars.Bool(c.GoneToBedVariableID)
	return err == nil && asleep
}

// HasVariable reports whether the given variable ID is one of the global
// behaviour variables. Changes to these re-evaluate every zone.
func (c *AutoLightsConfig) HasVariable(id string) bool {
	if id == "" {
		return false
	}
	switch id {
	case c.EnabledVariableID, c.SomeoneHomeVariableID, c.GoneToBedVariableID, c.GuestModeVariableID:
		return true
	}
	return false
}
