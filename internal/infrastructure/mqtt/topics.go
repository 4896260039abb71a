package mqtt

import "fmt"

// Topic prefixes for the blueprint service.
//
// The service occupies the graylogic/blueprints subtree: lifecycle events
// are published per domain, commands arrive under cmd/, and the retained
// status topic carries online/offline state (including the LWT).
const (
	// TopicPrefix is the base for all blueprint service topics.
	TopicPrefix = "graylogic/blueprints"
)

// Topics provides builders for blueprint service MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.DomainEvent("automation")
//	// Returns: "graylogic/blueprints/automation/event"
type Topics struct{}

// ServiceStatus returns the retained status topic for the service.
// The broker publishes the LWT here on unexpected disconnect.
//
// Example: graylogic/blueprints/status
func (Topics) ServiceStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefix)
}

// DomainEvent returns the lifecycle event topic for a blueprint domain.
// Add, remove, import, and cache reset events are published here.
//
// Example: graylogic/blueprints/automation/event
func (Topics) DomainEvent(domain string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefix, domain)
}

// CmdReload returns the command topic that triggers a cache reset.
// Publishing any payload here makes the service drop all cached
// blueprints and rescan on next access.
//
// Example: graylogic/blueprints/cmd/reload
func (Topics) CmdReload() string {
	return fmt.Sprintf("%s/cmd/reload", TopicPrefix)
}

// AllDomainEvents returns a pattern matching lifecycle events in any domain.
//
// Pattern: graylogic/blueprints/+/event
func (Topics) AllDomainEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefix)
}

// AllTopics returns a pattern matching all blueprint service topics.
// Use with caution - this receives ALL traffic under the prefix.
//
// Pattern: graylogic/blueprints/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
