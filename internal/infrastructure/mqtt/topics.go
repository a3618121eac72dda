package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout for the Hearth MQTT fabric.
//
// The device topic is a contract with device firmware and must remain
// stable: commands are published to home/device/{device_id} and devices
// report telemetry on the same hierarchy.
const (
	// TopicPrefix is the base for all Hearth topics.
	TopicPrefix = "home"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "home/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.DeviceCommand("light_1")
//	// Returns: "home/device/light_1"
type Topics struct{}

// DeviceCommand returns the command/telemetry topic for a single device.
//
// Example: home/device/light_1
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/device/%s", TopicPrefix, deviceID)
}

// AllDevices returns a pattern matching every device topic.
//
// Pattern: home/device/+
func (Topics) AllDevices() string {
	return fmt.Sprintf("%s/device/+", TopicPrefix)
}

// SystemStatus returns the backend status topic (online/offline, LWT).
//
// Example: home/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// DeviceIDFromTopic extracts the device ID from a device topic.
// Returns "" if the topic is not under home/device/.
func (Topics) DeviceIDFromTopic(topic string) string {
	const prefix = TopicPrefix + "/device/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
