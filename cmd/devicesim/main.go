// Hearth device simulator.
//
// Simulates a household device for end-to-end testing without firmware:
// it connects to the broker with the same TLS materials as Hearth Core,
// listens on its own command topic, and reports telemetry back the way
// real devices do.
//
// Usage:
//
//	devicesim -device light_1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
	"github.com/hearthwire/hearth-core/internal/infrastructure/logging"
	"github.com/hearthwire/hearth-core/internal/infrastructure/mqtt"
)

// reportDelay simulates device reaction time between receiving a
// command and confirming the new state.
const reportDelay = 250 * time.Millisecond

func main() {
	deviceID := flag.String("device", "light_1", "device identifier to simulate")
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *deviceID, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, deviceID, configPath string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, "devicesim")

	// A simulator instance needs its own client ID or the broker will
	// disconnect the other session.
	cfg.MQTT.Broker.ClientID = "devicesim-" + deviceID

	bridge, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer bridge.Close() //nolint:errcheck // best effort on shutdown

	log.Info("device simulator connected",
		"device_id", deviceID,
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
	)

	topic := mqtt.Topics{}.DeviceCommand(deviceID)
	qos := byte(cfg.MQTT.QoS)

	err = bridge.Subscribe(topic, qos, func(_ string, payload []byte) error {
		command := string(payload)

		// Ignore our own telemetry echoes (JSON) - commands arrive as
		// bare status strings.
		if json.Valid(payload) {
			return nil
		}

		log.Info("command received", "device_id", deviceID, "command", command)

		// React, then confirm the new state as telemetry.
		time.Sleep(reportDelay)

		report, err := json.Marshal(map[string]string{
			"device_id": deviceID,
			"command":   command,
		})
		if err != nil {
			return fmt.Errorf("marshalling telemetry: %w", err)
		}

		if err := bridge.Publish(topic, report, qos, false); err != nil {
			return fmt.Errorf("publishing telemetry: %w", err)
		}
		log.Info("telemetry reported", "device_id", deviceID, "status", command)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	log.Info("listening for commands", "topic", topic)
	<-ctx.Done()

	log.Info("device simulator stopping", "device_id", deviceID)
	return nil
}
