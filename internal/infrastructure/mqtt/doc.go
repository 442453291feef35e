// Package mqtt provides the MQTT publisher for Todo Core task events.
//
// When mqtt.enabled is set, the API publishes a small JSON event to
// todocore/events/{user_id}/tasks after each task is created, updated or
// deleted. Subscribers (notification workers, dashboards) learn about
// changes without polling the HTTP API.
//
// The client also keeps a retained status message on
// todocore/system/status, with a Last Will so the broker marks the service
// offline if it disappears without a clean shutdown.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.TaskEvents(42), event)
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) whenever the broker is not on localhost
//   - Event payloads carry task ids only, never task text or emails
package mqtt
