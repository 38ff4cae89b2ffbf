package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "ir-emitter"

// Topics builds topic names of the form {prefix}/{host}/...
//
//	topics := mqtt.Topics{Prefix: "ir-emitter", Host: "laptop"}
//	topics.Event("configure")
//	// Returns: "ir-emitter/laptop/event/configure"
type Topics struct {
	Prefix string
	Host   string
}

// Event returns the topic for a lifecycle event.
//
// Example: ir-emitter/laptop/event/boot-enable
func (t Topics) Event(action string) string {
	return t.join("event", SanitiseTopicSegment(action))
}

// Status returns the retained online/offline status topic.
//
// Example: ir-emitter/laptop/status
func (t Topics) Status() string {
	return t.join("status")
}

// AllEvents returns a wildcard subscription for every event of this host.
//
// Example: ir-emitter/laptop/event/+
func (t Topics) AllEvents() string {
	return t.join("event", "+")
}

func (t Topics) join(parts ...string) string {
	prefix := strings.Trim(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	host := SanitiseTopicSegment(t.Host)
	if host == "" {
		host = "unknown"
	}
	return strings.Join(append([]string{prefix, host}, parts...), "/")
}

// SanitiseTopicSegment removes characters that have special meaning in
// MQTT topic names ('/', '+', '#') and trims whitespace.
func SanitiseTopicSegment(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, s)
}
