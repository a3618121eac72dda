package device

import (
	"context"
	"fmt"

	"github.com/hearthwire/hearth-core/internal/infrastructure/mqtt"
)

// Publisher is the slice of the MQTT bridge the service needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HistorySink receives device state events for time-series recording.
// Satisfied by the influxdb client; nil disables history.
type HistorySink interface {
	WriteDeviceEvent(deviceID, status, source string)
}

// Logger is the slice of the logging package the service needs.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Service coordinates device commands, telemetry and preferences.
//
// The bridge is required: without it no command can reach a device. The
// store and history sink are optional; a nil store degrades the
// operations that need it to ErrStoreUnavailable.
type Service struct {
	bridge  Publisher
	store   Store
	history HistorySink
	logger  Logger
	topics  mqtt.Topics
	qos     byte
}

// NewService creates the command/telemetry service.
// store, history and logger may be nil.
func NewService(bridge Publisher, store Store, history HistorySink, logger Logger, qos byte) *Service {
	return &Service{
		bridge:  bridge,
		store:   store,
		history: history,
		logger:  logger,
		qos:     qos,
	}
}

// ListDevices returns every known device record.
func (s *Service) ListDevices(ctx context.Context) ([]Record, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	return s.store.ListDevices(ctx)
}

// ControlDevice publishes a command to a device's topic.
//
// The command path is fire-and-forget: success means the broker accepted
// the publish, not that the device acted. The store is never touched
// here; the device's own telemetry confirms the new state.
//
// An empty status fails with ErrMissingStatus before anything is
// published. A disconnected bridge fails with ErrBridgeUnavailable.
func (s *Service) ControlDevice(_ context.Context, deviceID, status string) (*Ack, error) {
	if !IsValidDeviceID(deviceID) {
		return nil, ErrInvalidDeviceID
	}
	if status == "" {
		return nil, ErrMissingStatus
	}

	if !s.bridge.IsConnected() {
		return nil, ErrBridgeUnavailable
	}

	topic := s.topics.DeviceCommand(deviceID)
	if err := s.bridge.Publish(topic, []byte(status), s.qos, false); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBridgeUnavailable, err)
	}

	if s.history != nil {
		s.history.WriteDeviceEvent(deviceID, status, "command")
	}

	return &Ack{
		Message: fmt.Sprintf("Device %s turned %s", deviceID, status),
		Topic:   topic,
	}, nil
}

// SavePreferences upserts a user's preference document wholesale.
func (s *Service) SavePreferences(ctx context.Context, userID string, prefs map[string]any) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if len(prefs) == 0 {
		return ErrMissingPreferences
	}
	if s.store == nil {
		return ErrStoreUnavailable
	}

	return s.store.SavePreferences(ctx, PreferenceDocument{
		UserID:      userID,
		Preferences: prefs,
	})
}

// GetPreferences returns a user's stored preference document.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*PreferenceDocument, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	return s.store.GetPreferences(ctx, userID)
}
