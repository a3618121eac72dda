package device

import (
	"context"
	"encoding/json"
	"time"
)

// telemetryTimeout bounds the store write for one telemetry message.
const telemetryTimeout = 5 * time.Second

// telemetryEnvelope is the JSON shape devices publish on their topic.
// Older firmware omits device_id, so the topic segment is the fallback.
type telemetryEnvelope struct {
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Status   string `json:"status"`
}

// HandleTelemetry is the bridge subscription callback for the device
// wildcard topic.
//
// It parses the report, upserts the device record and emits a history
// point. The upsert is a single-key atomic put, so concurrent reports
// for the same device resolve last-writer-wins; replaying the same
// report is idempotent apart from the last_seen timestamp.
func (s *Service) HandleTelemetry(topic string, payload []byte) error {
	var env telemetryEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		// Non-JSON payloads are treated as a bare status string, which
		// is what the command path publishes. Devices echoing commands
		// back on the same topic therefore still update state.
		env.Status = string(payload)
	}

	deviceID := env.DeviceID
	if deviceID == "" {
		deviceID = s.topics.DeviceIDFromTopic(topic)
	}
	if !IsValidDeviceID(deviceID) {
		if s.logger != nil {
			s.logger.Warn("telemetry with unusable device id", "topic", topic)
		}
		return ErrInvalidDeviceID
	}

	status := env.Status
	if status == "" {
		status = env.Command
	}
	if status == "" {
		if s.logger != nil {
			s.logger.Warn("telemetry without status", "device_id", deviceID)
		}
		return ErrMissingStatus
	}

	if s.logger != nil {
		s.logger.Debug("telemetry received", "device_id", deviceID, "status", status)
	}

	if s.history != nil {
		s.history.WriteDeviceEvent(deviceID, status, "telemetry")
	}

	if s.store == nil {
		// No persistence configured; the event was still recorded in
		// history if a sink is attached.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
	defer cancel()

	return s.store.PutDevice(ctx, Record{
		DeviceID: deviceID,
		Status:   status,
		LastSeen: time.Now().UTC(),
	})
}
