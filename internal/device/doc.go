// Package device provides the device plane for Auto Lights Core.
//
// It tracks the last reported state of every light, presence and luminance
// sensor, feeds change notifications into the lighting agent, publishes
// device commands, and mirrors dynamic variables.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                           Device Plane                                │
//	│                                                                       │
//	│  ┌────────────────┐   ┌──────────────────┐   ┌────────────────────┐  │
//	│  │     Store      │   │    Commander     │   │     Variables      │  │
//	│  │   (store.go)   │   │  (commander.go)  │   │   (variables.go)   │  │
//	│  │                │   │                  │   │                    │  │
//	│  │ • State cache  │   │ • Command topics │   │ • Typed coercion   │  │
//	│  │ • Diff + notify│   │ • Fire-and-forget│   │ • Change notify    │  │
//	│  │ • Snapshots    │   │                  │   │                    │  │
//	│  └────────────────┘   └──────────────────┘   └────────────────────┘  │
//	│        ▲ state                │ commands              ▲ values        │
//	└────────│──────────────────────│───────────────────────│───────────────┘
//	         │                      ▼                       │
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                      MQTT broker (device plane)                      │
//	│   autolights/state/{id}   autolights/command/{id}                    │
//	│   autolights/variable/{id}                                           │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - State: Raw reported state as a JSON map with typed accessors
//   - Store: Tracked per-device state with diffing and change notification
//   - Commander: MQTT command publisher for the lighting agent
//   - Variables: Dynamic variable mirror with boolean/number coercion
//
// # Usage
//
//	store := device.NewStore()
//	store.SetLogger(log)
//	store.SetHistory(device.NewSQLiteStateHistoryRepository(db))
//	store.SetChangeHandler(func(id string, diff map[string]any) {
//	    agent.ProcessDeviceChange(id, diff)
//	})
//
//	// From the MQTT subscription:
//	_ = store.ApplyState("hall-dimmer", payload)
//
//	commander := device.NewCommander(mqttClient, log)
//	commander.SendCommand("hall-dimmer", lighting.Target{On: true, Brightness: 80})
//
// # Thread Safety
//
// Store and Variables are safe for concurrent use; change handlers are
// invoked synchronously from the ingesting goroutine, outside internal
// locks.
package device
