// Package mqtt publishes linux-enable-ir-emitter lifecycle events to an
// MQTT broker.
//
// Publishing is optional and best-effort. When mqtt.enabled is set the CLI
// connects once per invocation; if the broker is unreachable the command
// still runs and only a warning is logged.
//
// # Topics
//
//	{prefix}/{host}/status          retained online/offline status
//	{prefix}/{host}/event/{action}  one JSON message per lifecycle event
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, hostname)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Event("run"), ev, false)
package mqtt
