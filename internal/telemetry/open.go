package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/database"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/influxdb"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/mqtt"
)

// Opener connects the sinks enabled in the configuration. The connect
// functions are fields so tests can substitute them.
type Opener struct {
	OpenHistory   func(ctx context.Context, cfg database.Config) (history.Repository, error)
	ConnectMQTT   func(cfg config.MQTTConfig, host string) (Publisher, error)
	ConnectInflux func(ctx context.Context, cfg config.InfluxDBConfig) (PointWriter, error)
}

// DefaultOpener uses the real database, broker and InfluxDB clients.
func DefaultOpener() Opener {
	return Opener{
		OpenHistory: func(ctx context.Context, cfg database.Config) (history.Repository, error) {
			return history.Open(ctx, cfg)
		},
		ConnectMQTT: func(cfg config.MQTTConfig, host string) (Publisher, error) {
			return mqtt.Connect(cfg, host)
		},
		ConnectInflux: func(ctx context.Context, cfg config.InfluxDBConfig) (PointWriter, error) {
			return influxdb.Connect(ctx, cfg)
		},
	}
}

// Hostname returns the machine name used in topics and tags.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// Open builds a Fanout from cfg. A sink that cannot be opened is skipped
// with a warning; Open itself never fails.
func (o Opener) Open(ctx context.Context, cfg *config.Config, host string, logger Logger) *Fanout {
	f := NewFanout()
	f.SetLogger(logger)
	if logger == nil {
		logger = noopLogger{}
	}

	if cfg.History.Enabled && o.OpenHistory != nil {
		repo, err := o.OpenHistory(ctx, database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if err == nil {
			err = checkHealth(ctx, repo)
		}
		if err != nil {
			logger.Warn("history disabled for this run", "path", cfg.History.Path, "error", err)
		} else {
			f.Add("history", NewHistorySink(repo))
		}
	}

	if cfg.MQTT.Enabled && o.ConnectMQTT != nil {
		pub, err := o.ConnectMQTT(cfg.MQTT, host)
		if err == nil {
			err = checkHealth(ctx, pub)
		}
		if err != nil {
			logger.Warn("mqtt disabled for this run", "broker", cfg.MQTT.Broker.Host, "error", err)
		} else {
			if c, ok := pub.(*mqtt.Client); ok {
				if l, ok := logger.(mqtt.Logger); ok {
					c.SetLogger(l)
				}
			}
			f.Add("mqtt", NewMQTTSink(pub, host))
		}
	}

	if cfg.InfluxDB.Enabled && o.ConnectInflux != nil {
		w, err := o.ConnectInflux(ctx, cfg.InfluxDB)
		if err == nil {
			err = checkHealth(ctx, w)
		}
		if err != nil {
			logger.Warn("influxdb disabled for this run", "url", cfg.InfluxDB.URL, "error", err)
		} else {
			if c, ok := w.(*influxdb.Client); ok {
				c.SetOnError(func(err error) {
					logger.Warn("influxdb write failed", "error", err)
				})
			}
			f.Add("influxdb", NewInfluxSink(w, host))
		}
	}

	return f
}

// healthChecker is implemented by the history store and the MQTT and
// InfluxDB clients.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// checkHealth runs the sink's health check when it has one. A sink that
// fails it is closed.
func checkHealth(ctx context.Context, sink any) error {
	hc, ok := sink.(healthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		if c, ok := sink.(io.Closer); ok {
			c.Close() //nolint:errcheck // already failing
		}
		return err
	}
	return nil
}

// Since builds an Event for an operation that began at start.
func Since(action, device string, start time.Time, exitCode int, err error) Event {
	return Event{
		Action:   action,
		Device:   device,
		ExitCode: exitCode,
		Err:      err,
		Started:  start,
		Duration: time.Since(start),
	}
}
