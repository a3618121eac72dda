package device

import "errors"

// Sentinel errors for device operations.
var (
	// ErrMissingStatus indicates a control request without a status value.
	ErrMissingStatus = errors.New("device: status is required")

	// ErrInvalidDeviceID indicates a malformed device identifier.
	ErrInvalidDeviceID = errors.New("device: invalid device id")

	// ErrBridgeUnavailable indicates the MQTT bridge is not connected,
	// so commands cannot reach devices.
	ErrBridgeUnavailable = errors.New("device: bridge unavailable")

	// ErrStoreUnavailable indicates the device state store is absent or
	// unreachable. The process runs degraded rather than crashing.
	ErrStoreUnavailable = errors.New("device: state store unavailable")

	// ErrDeviceNotFound indicates no record exists for the device.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrMissingUserID indicates a preference save without a user id.
	ErrMissingUserID = errors.New("device: user id is required")

	// ErrMissingPreferences indicates a preference save without a payload.
	ErrMissingPreferences = errors.New("device: preferences are required")
)
