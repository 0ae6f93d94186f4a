package lighting

// Target is the desired state for a single device.
type Target struct {
	// On is the desired power state.
	On bool `json:"on"`

	// Brightness is the desired level in percent. Zero when On is false;
	// ignored by non-dimmable devices.
	Brightness int `json:"brightness"`
}

// TargetOff is the canonical "switch off" target.
var TargetOff = Target{}

// Equal reports whether two targets describe the same device state.
// For off targets the brightness is irrelevant.
func (t Target) Equal(other Target) bool {
	if t.On != other.On {
		return false
	}
	if !t.On {
		return true
	}
	return t.Brightness == other.Brightness
}

// DeviceCommand is one concrete change to issue to a device.
type DeviceCommand struct {
	DeviceID string `json:"device_id"`
	Target   Target `json:"target"`
}

// Exclusion records a device skipped during plan calculation and why.
type Exclusion struct {
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason"`
}

// Plan is the outcome of one brightness calculation pass for a zone.
//
// It is produced fresh by every call to Zone.CalculateTargetBrightness and
// never mutated after return. NewTargets holds the desired state for each
// device whose target differs from its reported state; DeviceChanges holds
// the same information as an ordered command list (configured device-list
// order, on-lights before off-lights).
type Plan struct {
	NewTargets    map[string]Target `json:"new_targets"`
	Exclusions    []Exclusion       `json:"exclusions"`
	DeviceChanges []DeviceCommand   `json:"device_changes"`
}

// emptyPlan returns a plan with no targets or changes.
func emptyPlan() Plan {
	return Plan{NewTargets: map[string]Target{}}
}

// HasChanges reports whether the plan carries any device commands.
func (p *Plan) HasChanges() bool {
	return len(p.DeviceChanges) > 0
}

// exclude appends an exclusion record.
func (p *Plan) exclude(deviceID, reason string) {
	p.Exclusions = append(p.Exclusions, Exclusion{DeviceID: deviceID, Reason: reason})
}

// setTarget records a desired state that differs from the reported one.
func (p *Plan) setTarget(deviceID string, target Target) {
	p.NewTargets[deviceID] = target
	p.DeviceChanges = append(p.DeviceChanges, DeviceCommand{DeviceID: deviceID, Target: target})
}
