package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
)

// Client is the service's broker connection. It layers three things on
// paho.mqtt.golang: subscription replay after reconnects, a retained
// online/offline status topic backed by a last-will message, and
// panic isolation around message handlers.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// mu guards connection state, event callbacks, and the logger.
	mu        sync.RWMutex
	connected bool
	onUp      func()
	onDown    func(err error)
	logger    Logger

	// subsMu guards the replay table. Kept separate from mu so handler
	// registration never contends with connection-state reads.
	subsMu sync.RWMutex
	subs   map[string]subscription
}

// Logger is the subset of the service logger the client needs.
// Satisfied by logging.Logger and *slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription is one replayable topic registration.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one message per invocation, on a paho
// goroutine. The returned error is logged and does not affect message
// acknowledgement. Handlers must not block; slow work belongs on the
// caller's own goroutines.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and announces the service online on the
// retained status topic. The link auto-reconnects with capped backoff
// until Close is called.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]subscription),
	}

	opts := clientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs on a paho goroutine and may not have
	// fired yet. Mark the state here so IsConnected is already true
	// when Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// handleConnect runs on the initial connect and on every reconnect.
func (c *Client) handleConnect() {
	c.mu.Lock()
	c.connected = true
	callback := c.onUp
	c.mu.Unlock()

	c.replaySubscriptions()

	c.client.Publish(Topics{}.ServiceStatus(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, "online", ""))

	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	callback := c.onDown
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// replaySubscriptions re-registers every tracked topic with the broker.
// Errors are not checked: a link that fails mid-replay is about to go
// through another reconnect cycle, which replays again.
func (c *Client) replaySubscriptions() {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	for _, sub := range c.subs {
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Close announces a graceful shutdown on the status topic, so peers can
// distinguish it from the crash-triggered last will, then disconnects.
// Close on a client that never connected is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.ServiceStatus(), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(ackTimeout)
	}

	c.client.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker link is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// Order matters: the flag check keeps a zero-value Client from
	// dereferencing a nil paho client.
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers a callback invoked on connect and on every
// reconnect, after subscriptions have been replayed.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onUp = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the link drops.
// The error describes why.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDown = callback
	c.mu.Unlock()
}

// SetLogger wires handler diagnostics into the service logger. Without
// one, handler errors and recovered panics are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho's callback shape. A panic
// in one handler must not take down the paho client goroutine that
// dispatches every other subscription.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logHandlerPanic(msg.Topic(), r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logHandlerError(msg.Topic(), err)
		}
	}
}

func (c *Client) logHandlerPanic(topic string, r any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error("recovered panic in MQTT handler", "topic", topic, "panic", r)
	}
}

func (c *Client) logHandlerError(topic string, err error) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT handler failed", "topic", topic, "error", err)
	}
}
