package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceEvent records a device state transition.
//
// Called for telemetry reports arriving over MQTT and for commands
// acknowledged through the API. The write is non-blocking; data is
// batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the device (e.g., "light_1")
//   - status: The reported or commanded state (e.g., "on", "off")
//   - source: Where the event originated ("telemetry" or "command")
func (c *Client) WriteDeviceEvent(deviceID, status, source string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_events",
		map[string]string{
			"device_id": deviceID,
			"source":    source,
		},
		map[string]interface{}{
			"status": status,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteDeviceEvent, such as
// bridge connectivity events.
//
// Example:
//
//	client.WritePoint("bridge_status",
//	    map[string]string{"client_id": "hearth-core"},
//	    map[string]interface{}{"connected": true})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
