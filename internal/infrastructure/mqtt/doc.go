// Package mqtt connects officesync to the gateway MQTT broker.
//
// Gateways publish sensor telemetry on gateway/telemetry/{mcu_id}; the
// telemetry package subscribes through this client. officesync itself
// publishes its presence on officesync/{client_id}/status (retained, with a
// Last Will for crashes) and each automation transition on
// officesync/automation/{actuator_id}.
//
// This package manages:
//   - Connection with auto-reconnect and subscription restore
//   - Publishing with QoS and payload size checks
//   - Handler panic recovery
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllTelemetry(), 1,
//	    func(topic string, payload []byte) error {
//	        return ingester.Handle(topic, payload)
//	    })
package mqtt
