package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefixGateway is the base of everything gateways publish.
	TopicPrefixGateway = "gateway"

	// TopicPrefixOfficeSync is the base of everything officesync publishes.
	TopicPrefixOfficeSync = "officesync"
)

// Topics builds and parses the topics officesync uses.
//
//	topics := mqtt.Topics{}
//	topics.Telemetry(5) // "gateway/telemetry/5"
type Topics struct{}

// Telemetry returns the topic a gateway publishes an MCU's readings on.
func (Topics) Telemetry(mcuID int) string {
	return fmt.Sprintf("%s/telemetry/%d", TopicPrefixGateway, mcuID)
}

// AllTelemetry matches the telemetry of every MCU.
func (Topics) AllTelemetry() string {
	return TopicPrefixGateway + "/telemetry/+"
}

// Status returns the retained presence topic of an officesync instance.
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixOfficeSync, clientID)
}

// AutomationTransition returns the topic automation transitions of an
// actuator are published on.
func (Topics) AutomationTransition(actuatorID int) string {
	return fmt.Sprintf("%s/automation/%d", TopicPrefixOfficeSync, actuatorID)
}

// ParseTelemetry extracts the MCU id from a telemetry topic. The last
// segment must be a positive integer.
func (Topics) ParseTelemetry(topic string) (int, bool) {
	i := strings.LastIndexByte(topic, '/')
	if i < 0 || i == len(topic)-1 {
		return 0, false
	}
	id, err := strconv.Atoi(topic[i+1:])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
