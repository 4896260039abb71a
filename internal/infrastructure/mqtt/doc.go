// Package mqtt wraps the Eclipse Paho client for the blueprint service.
//
// The client connects to the broker with auto-reconnect, replays its
// subscriptions after a reconnect (sessions are clean, so the broker
// forgets them), announces itself on a retained status topic with a
// Last Will for unexpected disconnects, and isolates handler panics so
// one bad subscriber cannot take down the connection.
//
// # Architecture
//
// The Gray Logic stack uses MQTT as its internal message bus. The
// blueprint service publishes lifecycle events (add, remove, import,
// cache reset) so the core and other consumers can react to blueprint
// tree changes, and it listens for reload commands to drop its caches
// remotely.
//
//	blueprint service → graylogic/blueprints/<domain>/event → consumers
//	operators         → graylogic/blueprints/cmd/reload     → service
//
// TLS and broker credentials come from configuration; anonymous
// plaintext connections are for local development only.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Listen for remote reload commands.
//	err = client.Subscribe(mqtt.Topics{}.CmdReload(), 1,
//	    func(topic string, payload []byte) error {
//	        registries.ResetAll()
//	        return nil
//	    })
//
//	// Publish a lifecycle event.
//	topic := mqtt.Topics{}.DomainEvent("automation")
//	client.Publish(topic, []byte(`{"event":"blueprint_added"}`), 1, false)
package mqtt
