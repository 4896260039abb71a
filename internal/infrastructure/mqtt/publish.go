package mqtt

import "fmt"

// maxPayloadSize caps outgoing payloads at 1MB, in line with common
// broker limits. Blueprint event payloads run a few hundred bytes, so
// hitting this indicates a caller bug rather than a large message.
const maxPayloadSize = 1 << 20

// Publish sends one message and waits for the broker acknowledgement
// the QoS level calls for: 0 is fire-and-forget, 1 at-least-once, 2
// exactly-once. Retained messages are stored by the broker and handed
// to new subscribers; use them for state topics, never for events or
// commands.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}
