package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordEvaluation writes a zone evaluation measurement.
//
// One point is written per zone pass, recording whether presence was
// detected and how many device commands the pass produced. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Implements lighting.Telemetry.
//
// Parameters:
//   - zoneName: The evaluated zone
//   - presence: Whether presence was detected during the pass
//   - changes: Number of device commands the pass issued
func (c *Client) RecordEvaluation(zoneName string, presence bool, changes int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"zone_evaluation",
		map[string]string{
			"zone": zoneName,
		},
		map[string]interface{}{
			"presence": presence,
			"changes":  changes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordLockEvent writes a zone lock transition measurement.
//
// Implements lighting.Telemetry.
//
// Parameters:
//   - zoneName: The zone whose lock changed
//   - event: The transition (locked, extended, unlocked)
func (c *Client) RecordLockEvent(zoneName, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"zone_lock",
		map[string]string{
			"zone":  zoneName,
			"event": event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceMetric writes a single device measurement.
//
// Used for recording sensor telemetry alongside the zone series, for
// example luminance readings observed while evaluating.
//
// Parameters:
//   - deviceID: Unique identifier for the device (e.g., "lux-hall-01")
//   - measurement: The metric name (e.g., "luminance_lux", "brightness_pct")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteDeviceMetric("lux-hall-01", "luminance_lux", 412.5)
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
