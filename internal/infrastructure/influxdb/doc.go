// Package influxdb writes lifecycle events to InfluxDB v2.
//
// Each configure, run, delete and boot operation becomes one point in the
// emitter_events measurement so fleets of machines can be charted from a
// single bucket. The integration is optional; Connect returns ErrDisabled
// when influxdb.enabled is false.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEvent(influxdb.EventPoint{Host: host, Action: "run", Device: dev})
package influxdb
