package device

import "context"

// Store is the device state and preference persistence interface.
//
// The production implementation is DynamoStore. Tests substitute an
// in-memory implementation; a nil Store means the process is running
// without persistence and operations that need it return
// ErrStoreUnavailable.
type Store interface {
	// ListDevices returns every device record. Fleet sizes are small
	// (one household), so a full scan is acceptable.
	ListDevices(ctx context.Context) ([]Record, error)

	// GetDevice returns one device record, or ErrDeviceNotFound.
	GetDevice(ctx context.Context, deviceID string) (*Record, error)

	// PutDevice upserts a device record wholesale.
	PutDevice(ctx context.Context, rec Record) error

	// SavePreferences upserts a user's preference document wholesale.
	SavePreferences(ctx context.Context, doc PreferenceDocument) error

	// GetPreferences returns a user's preference document, or
	// ErrDeviceNotFound if none has been saved.
	GetPreferences(ctx context.Context, userID string) (*PreferenceDocument, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}
