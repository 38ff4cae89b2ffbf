package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/database"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/influxdb"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/mqtt"
)

type fakePublisher struct {
	mu        sync.Mutex
	topics    []string
	payloads  []any
	closed    bool
	err       error
	unhealthy error
}

func (p *fakePublisher) PublishJSON(topic string, v any, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, v)
	return p.err
}

func (p *fakePublisher) Topics() mqtt.Topics {
	return mqtt.Topics{Prefix: "ir-emitter", Host: "laptop"}
}

func (p *fakePublisher) HealthCheck(context.Context) error {
	return p.unhealthy
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type fakeWriter struct {
	points []influxdb.EventPoint
	closed bool
}

func (w *fakeWriter) WriteEvent(ev influxdb.EventPoint) { w.points = append(w.points, ev) }
func (w *fakeWriter) Close() error                      { w.closed = true; return nil }

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }
func (l *recordingLogger) Debug(string, ...any)      {}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	pub := &fakePublisher{}
	w := &fakeWriter{}
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	f := NewFanout()
	f.Add("mqtt", NewMQTTSink(pub, "laptop"))
	f.Add("influxdb", NewInfluxSink(w, "laptop"))
	require.Equal(t, 2, f.Len())

	f.Record(context.Background(), Event{
		Action:   history.ActionRun,
		Device:   "/dev/video2",
		ExitCode: 1,
		Err:      errors.New("boom"),
		Started:  start,
		Duration: 250 * time.Millisecond,
	})

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "ir-emitter/laptop/event/run", pub.topics[0])
	payload := pub.payloads[0].(eventPayload)
	assert.Equal(t, "boom", payload.Error)
	assert.Equal(t, int64(250), payload.DurationMS)
	assert.Equal(t, "2026-10-01T09:00:00Z", payload.Timestamp)

	require.Len(t, w.points, 1)
	assert.Equal(t, influxdb.EventPoint{
		Host: "laptop", Action: "run", Device: "/dev/video2",
		ExitCode: 1, Duration: 250 * time.Millisecond, Time: start,
	}, w.points[0])

	require.NoError(t, f.Close())
	assert.True(t, pub.closed)
	assert.True(t, w.closed)
}

func TestFanout_SinkFailureIsLogged(t *testing.T) {
	logger := &recordingLogger{}
	var delivered int

	f := NewFanout()
	f.SetLogger(logger)
	f.Add("broken", SinkFunc(func(context.Context, Event) error { return errors.New("down") }))
	f.Add("ok", SinkFunc(func(context.Context, Event) error { delivered++; return nil }))

	f.Record(context.Background(), Event{Action: history.ActionDelete})

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{"recording event failed"}, logger.warnings)
}

func TestFanout_Nil(t *testing.T) {
	var f *Fanout
	f.Record(context.Background(), Event{Action: "run"})
	assert.NoError(t, f.Close())
	assert.Zero(t, f.Len())
}

func TestHistorySink(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "h.db"), BusyTimeout: 5})
	require.NoError(t, err)

	sink := NewHistorySink(store)
	require.NoError(t, sink.Record(ctx, Event{
		Action:  history.ActionConfigure,
		Device:  "/dev/video2",
		Details: map[string]any{"emitters": 2},
		Started: time.Now(),
	}))

	events, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "/dev/video2", events[0].Device)
	assert.Empty(t, events[0].Error)

	require.NoError(t, sink.Close())
}

func TestOpener_Open(t *testing.T) {
	cfg := config.Default()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.MQTT.Enabled = true
	cfg.InfluxDB.Enabled = true
	cfg.InfluxDB.URL = "http://127.0.0.1:8086"

	pub := &fakePublisher{}
	logger := &recordingLogger{}
	opener := DefaultOpener()
	opener.ConnectMQTT = func(config.MQTTConfig, string) (Publisher, error) { return pub, nil }
	opener.ConnectInflux = func(context.Context, config.InfluxDBConfig) (PointWriter, error) {
		return nil, errors.New("unreachable")
	}

	f := opener.Open(context.Background(), cfg, "laptop", logger)
	defer f.Close()

	assert.Equal(t, 2, f.Len(), "history and mqtt")
	assert.Equal(t, []string{"influxdb disabled for this run"}, logger.warnings)
}

func TestOpener_UnhealthySinkSkipped(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enabled = false
	cfg.MQTT.Enabled = true

	pub := &fakePublisher{unhealthy: mqtt.ErrNotConnected}
	logger := &recordingLogger{}
	opener := DefaultOpener()
	opener.ConnectMQTT = func(config.MQTTConfig, string) (Publisher, error) { return pub, nil }

	f := opener.Open(context.Background(), cfg, "laptop", logger)
	defer f.Close()

	assert.Zero(t, f.Len())
	assert.True(t, pub.closed, "an unhealthy client is released")
	assert.Equal(t, []string{"mqtt disabled for this run"}, logger.warnings)
}

func TestOpener_AllDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enabled = false

	f := DefaultOpener().Open(context.Background(), cfg, "laptop", nil)
	assert.Zero(t, f.Len())
}
