package mqtt

import (
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Dispatch queue sizing.
const (
	// dispatchQueueSize bounds the number of inbound messages waiting for
	// a worker. Telemetry beyond this is dropped rather than blocking the
	// transport read loop.
	dispatchQueueSize = 256

	// dispatchWorkers is the number of goroutines executing handlers.
	dispatchWorkers = 4
)

// inboundMessage is a received message queued for handler execution.
type inboundMessage struct {
	topic   string
	payload []byte
	handler MessageHandler
}

// startWorkers launches the dispatch worker pool.
func (c *Client) startWorkers() {
	for i := 0; i < dispatchWorkers; i++ {
		c.workerWG.Add(1)
		go c.worker()
	}
}

// stopWorkers signals the workers to exit and waits for them.
// Safe to call once; Close() is the only caller.
func (c *Client) stopWorkers() {
	select {
	case <-c.done:
		return // already stopped
	default:
	}
	close(c.done)
	c.workerWG.Wait()
}

// worker executes queued handlers with panic recovery until stopped.
func (c *Client) worker() {
	defer c.workerWG.Done()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.dispatch:
			c.runHandler(msg)
		}
	}
}

// runHandler invokes a single handler, recovering panics and logging errors.
func (c *Client) runHandler(msg inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", msg.topic,
					"panic", r,
				)
			}
		}
	}()

	if err := msg.handler(msg.topic, msg.payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT handler returned error",
				"topic", msg.topic,
				"error", err,
			)
		}
	}
}

// wrapHandler adapts a MessageHandler to the paho callback signature.
// The paho callback only enqueues; handler execution happens on the
// worker pool so the transport read loop is never blocked.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		// Copy the payload: paho may reuse the buffer after the callback returns.
		payload := make([]byte, len(msg.Payload()))
		copy(payload, msg.Payload())

		select {
		case c.dispatch <- inboundMessage{topic: msg.Topic(), payload: payload, handler: handler}:
		default:
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT dispatch queue full, dropping message",
					"topic", msg.Topic(),
				)
			}
		}
	}
}
