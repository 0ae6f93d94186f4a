package device

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// Publisher is the outbound half of the MQTT plane.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// commandTopicFmt is the per-device command topic.
const commandTopicFmt = "autolights/command/%s"

// Commander publishes device commands to the MQTT command topics. Commands
// are fire-and-forget: delivery failures are logged, never returned, so
// the decision engine does not stall on a flaky broker.
type Commander struct {
	publisher Publisher
	logger    Logger
}

// NewCommander creates a commander over the given publisher.
func NewCommander(publisher Publisher, logger Logger) *Commander {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Commander{publisher: publisher, logger: logger}
}

// SendCommand publishes the desired target for a device.
//
// Payload shape: {"on": bool, "brightness": percent}. Brightness is only
// meaningful for on targets; device adapters ignore it otherwise.
func (c *Commander) SendCommand(deviceID string, target lighting.Target) {
	payload, err := json.Marshal(target)
	if err != nil {
		c.logger.Error("failed to marshal command", "device_id", deviceID, "error", err)
		return
	}

	topic := fmt.Sprintf(commandTopicFmt, deviceID)
	if err := c.publisher.Publish(topic, payload, 1, false); err != nil {
		c.logger.Error("failed to publish command",
			"device_id", deviceID, "topic", topic, "error", err)
		return
	}
	c.logger.Debug("command published",
		"device_id", deviceID, "on", target.On, "brightness", target.Brightness)
}
