package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Auto Lights MQTT namespace.
//
// All runtime topics use the flat scheme: autolights/{category}/{id}
const (
	// TopicPrefix is the base for all Auto Lights topics.
	TopicPrefix = "autolights"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "autolights/system"
)

// Topics provides builders for Auto Lights MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("light-living-main")
//	// Returns: "autolights/state/light-living-main"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceState returns the topic for device state reports.
//
// Example: autolights/state/light-living-main
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceCommand returns the topic for commands to a device.
//
// Example: autolights/command/light-living-main
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Variable returns the topic carrying a behaviour variable value.
//
// Example: autolights/variable/someone-home
func (Topics) Variable(variableID string) string {
	return fmt.Sprintf("%s/variable/%s", TopicPrefix, variableID)
}

// Event returns the topic for engine events.
//
// Example: autolights/event/zone_locked
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: autolights/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: autolights/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceStates returns a pattern matching all device state reports.
//
// Pattern: autolights/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching all device commands.
//
// Pattern: autolights/command/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllVariables returns a pattern matching all behaviour variables.
//
// Pattern: autolights/variable/+
func (Topics) AllVariables() string {
	return fmt.Sprintf("%s/variable/+", TopicPrefix)
}

// AllEvents returns a pattern matching all engine events.
//
// Pattern: autolights/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Auto Lights topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: autolights/#
func (Topics) AllTopics() string {
	return "autolights/#"
}

// IDFromTopic extracts the trailing identifier segment from a topic.
// Returns "" when the topic has no identifier segment.
//
// Example: "autolights/state/light-living-main" → "light-living-main"
func IDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
