// Package lighting provides the zone decision engine for Auto Lights Core.
//
// A zone groups presence sensors, luminance sensors, and lights under one
// automation policy. Lighting periods are time-of-day windows that decide
// when the automation may turn lights on or off and at what brightness.
// When a human changes a light by hand, the zone locks: automatic control
// is suppressed until the lock expires, is extended by continued presence,
// or is released early after presence leaves the zone.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                   Agent (agent.go)                        │
//	│  Routes device changes, owns lock and grace timers        │
//	│  ┌──────────────┐    ┌───────────────┐                  │
//	│  │ AutoLights   │───▶│  Repository   │                  │
//	│  │ Config       │    │(repository.go)│                  │
//	│  └──────────────┘    └───────────────┘                  │
//	│        │                                                 │
//	│        ▼                                                 │
//	│  ┌─────────────────────────────────────────────────┐    │
//	│  │  Decision pipeline (per zone, per pass)          │    │
//	│  │  1. Resolve active lighting periods              │    │
//	│  │  2. Evaluate presence (memoised per pass)        │    │
//	│  │  3. Evaluate luminance gating                    │    │
//	│  │  4. Compute per-device targets                   │    │
//	│  │  5. Diff against reported state → Plan           │    │
//	│  │  6. Issue device commands (fire-and-forget)      │    │
//	│  └─────────────────────────────────────────────────┘    │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - LightingPeriod: Time window with mode, brightness cap, lock override
//   - Zone: Device associations, behaviour settings, lock state
//   - Plan: Computed targets, exclusions, and ordered device commands
//   - Agent: Event/timer orchestration bridging devices to zones
//   - AutoLightsConfig: The assembled zone/period graph with defaults
//
// # Thread Safety
//
// Each zone's mutable state (lock fields, runtime cache) is guarded by a
// per-zone mutex. The agent serialises its timer bookkeeping under its own
// mutex; timer callbacks re-validate conditions at fire time and detect
// stale handles by comparison, so a fired-but-cancelled timer is a no-op.
//
// # Usage
//
//	repo := lighting.NewSQLiteRepository(db)
//	cfg, err := lighting.BuildConfig(settings, storedZones, storedPeriods)
//	if err != nil {
//	    return err
//	}
//
//	agent := lighting.NewAgent(cfg, states, commander, vars, log)
//	cfg.SetAgent(agent)
//	go agent.Run(ctx)
package lighting
