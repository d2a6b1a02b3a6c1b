package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninjasstudio/amr-discover/internal/classify"
)

func TestStateTopic(t *testing.T) {
	p := NewPublisher(nil, "rtlamr", "homeassistant")
	assert.Equal(t, "rtlamr/12345/state", p.StateTopic("12345"))
}

func TestDiscoveryPayload(t *testing.T) {
	p := NewPublisher(nil, "rtlamr", "homeassistant")

	def, err := classify.Defaults("10", "scm", classify.ClassGas)
	require.NoError(t, err)

	topic, payload := p.discoveryFor(def)
	assert.Equal(t, "homeassistant/sensor/meter_10/config", topic)
	assert.Equal(t, "meter_10", payload.Name)
	assert.Equal(t, "amr_10", payload.UniqueID)
	assert.Equal(t, "rtlamr/10/state", payload.StateTopic)
	assert.Equal(t, "ft³", payload.UnitOfMeasurement)
	assert.Equal(t, "gas", payload.DeviceClass)
	assert.Equal(t, "total_increasing", payload.StateClass)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishReading("10", 5000))

	def, err := classify.Defaults("10", "scm", classify.ClassGas)
	require.NoError(t, err)
	assert.NoError(t, p.PublishDiscovery(def))
}
