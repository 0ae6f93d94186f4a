// Auto Lights Core - Zone Lighting Decision Engine
//
// This is the main entry point for the Auto Lights Core application.
// It evaluates presence, luminance, and time-of-day lighting periods per
// zone and drives lights over MQTT, while respecting manual interventions
// through the zone lock state machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/auto-lights-core/migrations"

	"github.com/nerrad567/auto-lights-core/internal/api"
	"github.com/nerrad567/auto-lights-core/internal/device"
	"github.com/nerrad567/auto-lights-core/internal/infrastructure/config"
	"github.com/nerrad567/auto-lights-core/internal/infrastructure/database"
	"github.com/nerrad567/auto-lights-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/auto-lights-core/internal/infrastructure/logging"
	"github.com/nerrad567/auto-lights-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often expired state history is swept.
const historyPruneInterval = 6 * time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Auto Lights Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the zone/period configuration graph
	repo := lighting.NewSQLiteRepository(db.DB)
	lightingCfg, err := lighting.LoadConfig(ctx, repo, lightingSettings(cfg))
	if err != nil {
		return fmt.Errorf("loading lighting configuration: %w", err)
	}
	log.Info("lighting configuration loaded",
		"zones", len(lightingCfg.Zones),
		"periods", len(lightingCfg.Periods),
	)

	// Device plane: state store, behaviour variables, state history
	store := device.NewStore()
	store.SetLogger(log)
	store.SetHistory(device.NewSQLiteStateHistoryRepository(db.DB))

	vars := device.NewVariables()
	vars.SetLogger(log)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the agent and wire the device plane into it
	commander := device.NewCommander(mqttClient, log)
	agent := lighting.NewAgent(lightingCfg, store, commander, vars, log)
	lightingCfg.SetAgent(agent)
	agent.SetLockEventRecorder(repo)
	if influxClient != nil {
		agent.SetTelemetry(influxClient)
	}

	store.SetChangeHandler(func(deviceID string, diff map[string]any) {
		agent.ProcessDeviceChange(deviceID, diff)
	})
	vars.SetChangeHandler(func(variableID string) {
		agent.ProcessVariableChange(variableID)
	})

	// Subscribe to device state reports and behaviour variables
	if err := subscribeDevicePlane(mqttClient, cfg, store, vars, log); err != nil {
		return fmt.Errorf("subscribing to device topics: %w", err)
	}

	// Periodic re-evaluation
	go agent.Run(ctx)

	// State history retention sweep
	if cfg.AutoLights.HistoryRetentionDays > 0 {
		go pruneHistoryLoop(ctx, db, cfg.AutoLights.HistoryRetentionDays, log)
	}

	// Start the HTTP API
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Lighting: lightingCfg,
		Repo:     repo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Auto Lights Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses AUTOLIGHTS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AUTOLIGHTS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// lightingSettings converts the application config into the lighting
// package's settings.
func lightingSettings(cfg *config.Config) lighting.Settings {
	return lighting.Settings{
		Enabled:               cfg.AutoLights.Enabled,
		EnabledVariableID:     cfg.AutoLights.EnabledVariable,
		SomeoneHomeVariableID: cfg.AutoLights.SomeoneHomeVariable,
		GoneToBedVariableID:   cfg.AutoLights.GoneToBedVariable,
		GuestModeVariableID:   cfg.AutoLights.GuestModeVariable,
		DefaultLockDuration:   cfg.AutoLights.DefaultLockDuration(),
		DefaultLockExtension:  cfg.AutoLights.DefaultLockExtension(),
		DefaultBrightness:     cfg.AutoLights.DefaultBrightness,
		GracePeriod:           cfg.AutoLights.GracePeriod(),
		ProcessInterval:       cfg.AutoLights.ProcessInterval(),
	}
}

// subscribeDevicePlane subscribes to the state and variable topics and
// routes payloads into the store and variable cache. The topic's trailing
// segment is the device or variable ID.
func subscribeDevicePlane(client *mqtt.Client, cfg *config.Config, store *device.Store, vars *device.Variables, log *logging.Logger) error {
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2 at config load

	topics := mqtt.Topics{}
	err := client.Subscribe(topics.AllDeviceStates(), qos, func(topic string, payload []byte) error {
		deviceID := mqtt.IDFromTopic(topic)
		if deviceID == "" {
			return fmt.Errorf("state topic missing device id: %s", topic)
		}
		if applyErr := store.ApplyState(deviceID, payload); applyErr != nil {
			log.Warn("rejected state report", "device_id", deviceID, "error", applyErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to device states: %w", err)
	}

	err = client.Subscribe(topics.AllVariables(), qos, func(topic string, payload []byte) error {
		variableID := mqtt.IDFromTopic(topic)
		if variableID == "" {
			return fmt.Errorf("variable topic missing id: %s", topic)
		}
		vars.Apply(variableID, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to variables: %w", err)
	}

	return nil
}

// pruneHistoryLoop periodically deletes state history older than the
// configured retention window.
func pruneHistoryLoop(ctx context.Context, db *database.DB, retentionDays int, log *logging.Logger) {
	history := device.NewSQLiteStateHistoryRepository(db.DB)
	retention := time.Duration(retentionDays) * 24 * time.Hour

	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := history.PruneHistory(ctx, retention)
			if err != nil {
				log.Error("state history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("state history pruned", "deleted", deleted, "retention_days", retentionDays)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
