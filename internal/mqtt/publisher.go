package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ninjasstudio/amr-discover/internal/classify"
)

// DiscoveryDevice groups a bridge's sensors under one Home Assistant
// device entry.
type DiscoveryDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// DiscoveryPayload is the Home Assistant MQTT discovery config for one
// meter sensor.
type DiscoveryPayload struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	UnitOfMeasurement string          `json:"unit_of_measurement,omitempty"`
	DeviceClass       string          `json:"device_class"`
	StateClass        string          `json:"state_class"`
	Device            DiscoveryDevice `json:"device"`
}

// Publisher writes readings and discovery configs to the broker. A nil
// Publisher is a no-op so the daemon can run tracker-only.
type Publisher struct {
	client          paho.Client
	baseTopic       string
	discoveryPrefix string
	log             *slog.Logger
}

// NewPublisher wraps a connected client with the bridge's topic layout.
func NewPublisher(client paho.Client, baseTopic, discoveryPrefix string) *Publisher {
	return &Publisher{
		client:          client,
		baseTopic:       baseTopic,
		discoveryPrefix: discoveryPrefix,
		log:             slog.Default().With("component", "mqtt"),
	}
}

// StateTopic returns the retained reading topic for a meter.
func (p *Publisher) StateTopic(meterID string) string {
	return fmt.Sprintf("%s/%s/state", p.baseTopic, meterID)
}

// PublishReading publishes a consumption reading for a meter, retained
// so Home Assistant sees the last value after a restart.
func (p *Publisher) PublishReading(meterID string, consumption int) error {
	if p == nil {
		return nil
	}
	payload := fmt.Sprintf("%d", consumption)
	token := p.client.Publish(p.StateTopic(meterID), 0, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish reading for %s: %w", meterID, token.Error())
	}
	return nil
}

// discoveryFor builds the discovery topic and payload for a meter.
func (p *Publisher) discoveryFor(def classify.MeterDefinition) (string, DiscoveryPayload) {
	payload := DiscoveryPayload{
		Name:              def.Name,
		UniqueID:          fmt.Sprintf("amr_%d", def.ID),
		StateTopic:        p.StateTopic(fmt.Sprintf("%d", def.ID)),
		UnitOfMeasurement: def.Unit,
		DeviceClass:       string(def.DeviceClass),
		StateClass:        def.StateClass,
		Device: DiscoveryDevice{
			Name:         "AMR bridge",
			Identifiers:  []string{"amr-discover"},
			Model:        "rtlamr",
			Manufacturer: "amr-discover",
		},
	}
	topic := fmt.Sprintf("%s/sensor/%s/config", p.discoveryPrefix, def.Name)
	return topic, payload
}

// PublishDiscovery announces a newly discovered meter to Home Assistant.
// Sent retained on <prefix>/sensor/<name>/config.
func (p *Publisher) PublishDiscovery(def classify.MeterDefinition) error {
	if p == nil {
		return nil
	}
	topic, payload := p.discoveryFor(def)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discovery payload: %w", err)
	}

	token := p.client.Publish(topic, 0, true, body)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish discovery for %s: %w", def.Name, token.Error())
	}
	p.log.Info("announced meter to Home Assistant", "name", def.Name, "topic", topic)
	return nil
}
