package api

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/mqtt"
)

// Blueprint lifecycle events. WebSocket clients subscribe to these as
// channel names; MQTT consumers see them in the event field of the
// domain event topic payload.
const (
	eventBlueprintAdded    = "blueprint_added"
	eventBlueprintRemoved  = "blueprint_removed"
	eventBlueprintImported = "blueprint_imported"
	eventCacheReset        = "cache_reset"
)

// publishEvent announces a blueprint lifecycle event to WebSocket
// subscribers and, when MQTT is connected, to the domain's event topic.
// Both paths are best-effort: a failed announcement never fails the
// mutation that triggered it.
func (s *Server) publishEvent(domain, event string, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["domain"] = domain

	if s.hub != nil {
		s.hub.Broadcast(event, body)
	}

	if s.mqtt == nil || !s.mqtt.IsConnected() {
		return
	}

	body["event"] = event
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("failed to marshal MQTT event payload", "event", event, "error", err)
		return
	}

	topic := mqtt.Topics{}.DomainEvent(domain)
	if err := s.mqtt.Publish(topic, data, 1, false); err != nil {
		s.logger.Warn("MQTT event publish failed", "topic", topic, "event", event, "error", err)
	}
}

// AnnounceCacheReset broadcasts a cache_reset event for every domain.
// Mutation paths outside HTTP (the MQTT reload command) use this to
// keep WebSocket subscribers and event topics in sync.
func (s *Server) AnnounceCacheReset() {
	for _, domain := range s.registries.Domains() {
		s.publishEvent(domain, eventCacheReset, nil)
	}
}

// recordUsage writes a usage point to the time-series store when the
// writer is configured. Non-blocking; errors surface via the client's
// error callback.
func (s *Server) recordUsage(domain, path, event string) {
	if s.usage == nil || !s.usage.IsConnected() {
		return
	}
	s.usage.WriteBlueprintUsage(domain, path, event)
}

// recordCacheReset writes a cache churn point so operators can see how
// often resets dump warm blueprints, and how many.
func (s *Server) recordCacheReset(domain string, dropped int) {
	if s.usage == nil || !s.usage.IsConnected() {
		return
	}
	s.usage.WritePoint("registry_cache",
		map[string]string{"domain": domain, "event": eventCacheReset},
		map[string]any{"dropped": dropped},
	)
}
