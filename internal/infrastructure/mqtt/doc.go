// Package mqtt provides the messaging bridge between Hearth Core and
// physical devices.
//
// This package manages:
//   - A persistent, mutually-authenticated TLS connection to the broker
//   - An explicit connection state machine with auto-reconnect and
//     bounded exponential backoff
//   - Message publishing with QoS control
//   - Topic subscriptions that survive reconnects
//   - A dispatch queue decoupling handler execution from the transport
//     read loop
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// Commands flow out to devices and telemetry flows back in over the same
// topic hierarchy:
//
//	Hearth Core -> broker -> device    (command on home/device/{id})
//	device -> broker -> Hearth Core    (telemetry on home/device/{id})
//
// The topic layout is a contract with device firmware; see topics.go.
//
// # Security
//
//   - The broker is verified against a configured root CA
//   - The client authenticates with a certificate/key pair
//   - Connections are pinned to TLS 1.2 or newer
//
// # Usage
//
//	bridge, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Close()
//
//	err = bridge.Subscribe(mqtt.Topics{}.AllDevices(), 1,
//	    func(topic string, payload []byte) error {
//	        return svc.HandleTelemetry(topic, payload)
//	    })
//
//	topic := mqtt.Topics{}.DeviceCommand("light_1")
//	bridge.Publish(topic, []byte("on"), 1, false)
package mqtt
