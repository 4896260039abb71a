package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
)

// Broker interaction limits.
const (
	// connectTimeout bounds the initial CONNECT handshake.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds waits for publish, subscribe, and unsubscribe
	// acknowledgements.
	ackTimeout = 5 * time.Second

	// disconnectQuiesceMs gives in-flight messages time to drain when
	// the client shuts down.
	disconnectQuiesceMs = 1000

	// keepAlive is the PINGREQ interval used to detect dead links.
	keepAlive = 60 * time.Second

	// maxQoS is the highest QoS level MQTT defines.
	maxQoS = 2
)

// clientOptions maps the service MQTT config onto paho options: broker
// URL (tcp or ssl per the TLS flag), client identity, optional
// credentials, clean sessions, and auto-reconnect with capped backoff.
//
// Clean sessions mean the broker forgets our subscriptions on every
// reconnect. The Client keeps its own replay table to compensate; see
// replaySubscriptions.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	// Last will: if the connection drops without a DISCONNECT, the
	// broker publishes this on the retained status topic, so peers can
	// tell a crash from a graceful shutdown.
	opts.SetWill(Topics{}.ServiceStatus(),
		statusPayload(cfg.Broker.ClientID, "offline", "unexpected_disconnect"), 1, true)

	return opts
}

// statusPayload renders one retained service status message. reason is
// empty for online announcements and names the cause otherwise.
func statusPayload(clientID, status, reason string) string {
	msg := struct {
		Status    string `json:"status"`
		ClientID  string `json:"client_id"`
		Reason    string `json:"reason,omitempty"`
		Timestamp string `json:"timestamp"`
	}{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	data, _ := json.Marshal(msg) //nolint:errcheck // fixed shape cannot fail
	return string(data)
}
