package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// EventMeasurement is the measurement lifecycle events are written to.
const EventMeasurement = "emitter_events"

// EventPoint describes one lifecycle event as a time-series point.
type EventPoint struct {
	Host     string
	Action   string
	Device   string
	ExitCode int
	Duration time.Duration
	Time     time.Time
}

// WriteEvent writes a lifecycle event point.
//
// Tags are host, action and device (all low cardinality); fields are the
// exit code, a success flag and the duration in milliseconds.
//
// Example:
//
//	client.WriteEvent(influxdb.EventPoint{Host: "laptop", Action: "run", Device: "/dev/video2"})
func (c *Client) WriteEvent(ev EventPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newEventPoint(ev))
}

func newEventPoint(ev EventPoint) *write.Point {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{
		"host":   ev.Host,
		"action": ev.Action,
	}
	if ev.Device != "" {
		tags["device"] = ev.Device
	}

	return write.NewPoint(
		EventMeasurement,
		tags,
		map[string]interface{}{
			"exit_code":   int64(ev.ExitCode),
			"success":     ev.ExitCode == 0,
			"duration_ms": ev.Duration.Milliseconds(),
		},
		ts,
	)
}
