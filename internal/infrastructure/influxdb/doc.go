// Package influxdb provides InfluxDB connectivity for Auto Lights Core.
//
// It wraps the official influxdb-client-go v2 library with Auto Lights-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Zone evaluation telemetry (presence, commands issued per pass)
//   - Zone lock transitions (locked, extended, unlocked)
//   - Device telemetry and sensor data (luminance, brightness)
//
// The Client satisfies lighting.Telemetry, so it plugs straight into the
// agent as its metrics sink.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "autolights",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a zone pass
//	client.RecordEvaluation("lounge", true, 2)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
