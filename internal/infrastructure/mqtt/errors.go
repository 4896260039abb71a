package mqtt

import "errors"

// Sentinel errors for broker operations. Errors carrying extra context
// wrap one of these, so callers match with errors.Is.
var (
	// ErrConnectionFailed reports that the initial broker connection
	// could not be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected reports an operation attempted without a live
	// broker connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed reports a rejected, oversized, or timed-out
	// publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed reports a rejected or timed-out subscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed reports a rejected or timed-out unsubscribe.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0 to 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topic strings.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
