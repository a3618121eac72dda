// Package influxdb provides the optional telemetry history sink.
//
// Device state transitions observed by Hearth are written to InfluxDB v2
// as time-series points, giving operators a queryable record of what each
// device did and when. The sink is strictly best-effort: it is optional at
// startup, writes are batched and non-blocking, and write failures are
// surfaced through an error callback rather than propagated to command
// handling.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	client.SetOnError(func(err error) { log.Warn("history write failed", "error", err) })
//	client.WriteDeviceEvent("light_1", "on", "command")
//
// Close() flushes pending points before shutting down.
package influxdb
