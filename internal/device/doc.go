// Package device implements Hearth's command and telemetry path.
//
// Commands flow API -> Service.ControlDevice -> MQTT publish on
// home/device/{id}. Telemetry flows the other way: the bridge's wildcard
// subscription delivers device reports to Service.HandleTelemetry, which
// upserts the device's Record in the state store.
//
// The store is DynamoDB behind the Store interface. It is deliberately
// optional: a household without AWS credentials still gets full command
// routing, and only listing and preferences degrade to
// ErrStoreUnavailable.
package device
