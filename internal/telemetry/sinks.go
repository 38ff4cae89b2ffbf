package telemetry

import (
	"context"
	"io"
	"time"

	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/influxdb"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/mqtt"
)

// HistorySink stores events in the history repository.
type HistorySink struct {
	repo   history.Repository
	closer io.Closer
}

// NewHistorySink wraps repo. If repo is also an io.Closer, closing the sink
// closes it.
func NewHistorySink(repo history.Repository) *HistorySink {
	s := &HistorySink{repo: repo}
	if c, ok := repo.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Record implements Sink.
func (s *HistorySink) Record(ctx context.Context, ev Event) error {
	return s.repo.Create(ctx, &history.Event{
		Action:    ev.Action,
		Device:    ev.Device,
		ExitCode:  ev.ExitCode,
		Error:     ev.ErrorText(),
		Details:   ev.Details,
		CreatedAt: ev.Started.UTC(),
	})
}

// Close implements io.Closer.
func (s *HistorySink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Publisher is the part of mqtt.Client the MQTT sink needs.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	Topics() mqtt.Topics
	Close() error
}

// MQTTSink publishes each event as JSON on {prefix}/{host}/event/{action}.
type MQTTSink struct {
	pub  Publisher
	host string
}

// NewMQTTSink wraps pub.
func NewMQTTSink(pub Publisher, host string) *MQTTSink {
	return &MQTTSink{pub: pub, host: host}
}

// eventPayload is the JSON published for each event.
type eventPayload struct {
	Host       string         `json:"host"`
	Action     string         `json:"action"`
	Device     string         `json:"device,omitempty"`
	ExitCode   int            `json:"exit_code"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Record implements Sink.
func (s *MQTTSink) Record(_ context.Context, ev Event) error {
	return s.pub.PublishJSON(s.pub.Topics().Event(ev.Action), eventPayload{
		Host:       s.host,
		Action:     ev.Action,
		Device:     ev.Device,
		ExitCode:   ev.ExitCode,
		Error:      ev.ErrorText(),
		DurationMS: ev.Duration.Milliseconds(),
		Details:    ev.Details,
		Timestamp:  ev.Started.UTC().Format(time.RFC3339),
	}, false)
}

// Close implements io.Closer.
func (s *MQTTSink) Close() error {
	return s.pub.Close()
}

// PointWriter is the part of influxdb.Client the InfluxDB sink needs.
type PointWriter interface {
	WriteEvent(ev influxdb.EventPoint)
	Close() error
}

// InfluxSink writes each event as an emitter_events point.
type InfluxSink struct {
	w    PointWriter
	host string
}

// NewInfluxSink wraps w.
func NewInfluxSink(w PointWriter, host string) *InfluxSink {
	return &InfluxSink{w: w, host: host}
}

// Record implements Sink. Writes are asynchronous; delivery errors surface
// through the client's error callback.
func (s *InfluxSink) Record(_ context.Context, ev Event) error {
	s.w.WriteEvent(influxdb.EventPoint{
		Host:     s.host,
		Action:   ev.Action,
		Device:   ev.Device,
		ExitCode: ev.ExitCode,
		Duration: ev.Duration,
		Time:     ev.Started,
	})
	return nil
}

// Close implements io.Closer and flushes pending points.
func (s *InfluxSink) Close() error {
	return s.w.Close()
}
