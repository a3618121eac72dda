package device

import (
	"regexp"
	"time"
)

// deviceIDPattern defines the valid format for device identifiers:
// alphanumeric, dots, hyphens, underscores, 1-64 characters. The same
// characters are legal in an MQTT topic segment.
var deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidDeviceID checks if a device identifier meets format requirements.
func IsValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// Record is the persisted state of one device.
type Record struct {
	DeviceID   string            `json:"device_id" dynamodbav:"device_id"`
	Status     string            `json:"status" dynamodbav:"status"`
	LastSeen   time.Time         `json:"last_seen" dynamodbav:"last_seen"`
	Attributes map[string]string `json:"attributes,omitempty" dynamodbav:"attributes,omitempty"`
}

// PreferenceDocument is a user's stored preference set. Saves overwrite
// the whole document (last writer wins).
type PreferenceDocument struct {
	UserID      string         `json:"user_id" dynamodbav:"user_id"`
	Preferences map[string]any `json:"preferences" dynamodbav:"preferences"`
}

// Ack is the response to an accepted device command.
//
// The command itself is fire-and-forget: an Ack means the command was
// published to the device's topic, not that the device acted on it.
type Ack struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
}
