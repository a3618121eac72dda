// Hearth Core - Smart Home Control Backend
//
// This is the main entry point for the Hearth Core application. Hearth
// bridges a session-authenticated HTTP API to household devices over
// MQTT, with device state persisted in DynamoDB and credentials in a
// local SQLite store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/hearthwire/hearth-core/migrations"

	"github.com/hearthwire/hearth-core/internal/api"
	"github.com/hearthwire/hearth-core/internal/audit"
	"github.com/hearthwire/hearth-core/internal/auth"
	"github.com/hearthwire/hearth-core/internal/device"
	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/database"
	"github.com/hearthwire/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
	"github.com/hearthwire/hearth-core/internal/infrastructure/mqtt"
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
func run(ctx context.Context) error {
	// Deployment secrets commonly live in a .env file next to the binary.
	// A missing file is fine; the variables may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
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

	// Open the credential store
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

	// Build the session gate
	gate := auth.NewGate(
		auth.NewUserRepository(db.DB),
		cfg.Security.Session.Secret,
		cfg.Security.Session.TTLMinutes,
	)
	defer gate.Close()

	// Connect to the MQTT broker. The bridge is the whole point of the
	// process, so a failed connection is startup-fatal.
	bridge, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bridge.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"tls", cfg.MQTT.TLS.Enabled,
	)

	bridge.SetLogger(log)
	bridge.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	bridge.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Device state store (optional: degrade without AWS credentials)
	var store device.Store
	dynamoStore, err := device.NewDynamoStore(ctx, cfg.DynamoDB)
	switch {
	case err == nil:
		store = dynamoStore
		log.Info("DynamoDB store connected",
			"region", cfg.DynamoDB.Region,
			"table", cfg.DynamoDB.Table,
		)
	case errors.Is(err, device.ErrStoreUnavailable):
		log.Warn("DynamoDB store unavailable, running degraded", "error", err)
	default:
		return fmt.Errorf("connecting to DynamoDB: %w", err)
	}

	// Telemetry history sink (optional)
	var history device.HistorySink
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		history = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Command/telemetry service
	svc := device.NewService(bridge, store, history, log, byte(cfg.MQTT.QoS))

	// Subscribe to device telemetry. Subscriptions survive reconnects;
	// the bridge restores them automatically.
	telemetryTopic := mqtt.Topics{}.AllDevices()
	if err := bridge.Subscribe(telemetryTopic, byte(cfg.MQTT.QoS), svc.HandleTelemetry); err != nil {
		return fmt.Errorf("subscribing to telemetry: %w", err)
	}
	log.Info("telemetry subscription active", "topic", telemetryTopic)

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		Gate:     gate,
		Devices:  svc,
		Activity: audit.NewSQLiteRepository(db.DB),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, bridge, store); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Session gate
	// 5. Database

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The store may be nil when running degraded.
func healthCheck(ctx context.Context, db *database.DB, bridge *mqtt.Client, store device.Store) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := bridge.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if store != nil {
		if err := store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("dynamodb: %w", err)
		}
	}

	return nil
}
