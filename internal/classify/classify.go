// Package classify infers a meter's commodity class from its radio
// protocol and consumption reading, and builds configuration defaults
// for each class.
package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DeviceClass is the inferred commodity type of a meter.
type DeviceClass string

const (
	ClassGas    DeviceClass = "gas"
	ClassWater  DeviceClass = "water"
	ClassEnergy DeviceClass = "energy"
)

// Consumption thresholds separating water from gas on protocol families
// that serve both. Chosen from observed real-world reading ranges;
// tunable defaults, not calibrated limits.
const (
	// WaterThresholdSCM: SCM/SCM+ readings above this are assumed to be
	// water meters counting gallons; below, gas counting cubic feet.
	WaterThresholdSCM = 100000
	// WaterThresholdR900 is the same split for the R900 family.
	WaterThresholdR900 = 50000
)

// StateClass marks every meter reading as a monotonically increasing total.
const StateClass = "total_increasing"

// ErrInvalidMeterID reports a meter id that is not integer-coercible.
var ErrInvalidMeterID = errors.New("meter id is not an integer")

// Classify guesses the commodity class for a protocol token and an
// optional consumption reading. The protocol is lower-cased before
// matching; unknown or empty protocols default to energy.
func Classify(protocol string, consumption *int) DeviceClass {
	switch strings.ToLower(protocol) {
	case "idm", "netidm":
		// IDM and NetIDM are electric meters.
		return ClassEnergy
	case "scm", "scm+":
		// SCM serves both water and gas; high counts indicate gallons.
		if consumption != nil && *consumption > WaterThresholdSCM {
			return ClassWater
		}
		return ClassGas
	case "r900", "r900bcd":
		if consumption != nil && *consumption > WaterThresholdR900 {
			return ClassWater
		}
		return ClassGas
	}
	return ClassEnergy
}

// MeterDefinition is a configuration-ready meter entry.
type MeterDefinition struct {
	ID          int64       `yaml:"id" json:"id"`
	Protocol    string      `yaml:"protocol" json:"protocol"`
	Name        string      `yaml:"name" json:"name"`
	DeviceClass DeviceClass `yaml:"device_class" json:"device_class"`
	StateClass  string      `yaml:"state_class" json:"state_class"`
	Format      string      `yaml:"format,omitempty" json:"format,omitempty"`
	Unit        string      `yaml:"unit_of_measurement,omitempty" json:"unit_of_measurement,omitempty"`
}

// Defaults builds the configuration entry for a discovered meter.
// The meter id must be integer-coercible; the synthesized name keeps the
// raw id string so zero-padded ids stay recognizable.
func Defaults(meterID, protocol string, class DeviceClass) (MeterDefinition, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(meterID), 10, 64)
	if err != nil {
		return MeterDefinition{}, fmt.Errorf("%w: %q", ErrInvalidMeterID, meterID)
	}

	def := MeterDefinition{
		ID:          id,
		Protocol:    strings.ToLower(protocol),
		Name:        "meter_" + meterID,
		DeviceClass: class,
		StateClass:  StateClass,
	}

	switch class {
	case ClassWater:
		def.Format = "######.##"
		def.Unit = "gal"
	case ClassGas:
		def.Format = "######.##"
		def.Unit = "ft³"
	case ClassEnergy:
		def.Format = "######.###"
		def.Unit = "kWh"
	}

	return def, nil
}

// Map renders the definition as a generic mapping for insertion into a
// configuration document, omitting unset format/unit fields.
func (d MeterDefinition) Map() map[string]any {
	m := map[string]any{
		"id":           d.ID,
		"protocol":     d.Protocol,
		"name":         d.Name,
		"device_class": string(d.DeviceClass),
		"state_class":  d.StateClass,
	}
	if d.Format != "" {
		m["format"] = d.Format
	}
	if d.Unit != "" {
		m["unit_of_measurement"] = d.Unit
	}
	return m
}
