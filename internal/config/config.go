// Package config handles the bridge's primary configuration file.
//
// The file is owned by the user: merge passes must preserve every field
// and entry they do not add, so the document is modeled as a generic
// mapping rather than a closed struct. The typed Bridge view extracts
// only the settings the daemon itself needs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxMeters bounds how many meters a discovery pass may track or add.
const DefaultMaxMeters = 25

// DefaultMergeInterval is how often the daemon saves and merges the catalog.
const DefaultMergeInterval = 15 * time.Minute

// Bridge holds the daemon's own settings read from the primary config.
type Bridge struct {
	MQTT    MQTTSettings    `yaml:"mqtt"`
	Monitor MonitorSettings `yaml:"monitor"`
}

// MQTTSettings configures the broker connection and topic layout.
type MQTTSettings struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	ClientID        string `yaml:"client_id"`
	BaseTopic       string `yaml:"base_topic"`
	DiscoveryPrefix string `yaml:"ha_autodiscovery_topic"`
}

// MonitorSettings configures the discovery tracker.
type MonitorSettings struct {
	MaxMeters     int           `yaml:"max_meters"`
	MergeInterval time.Duration `yaml:"merge_interval"`
}

// LoadBridge reads the typed daemon settings from path, applying defaults
// for anything missing. A missing file yields pure defaults with no error.
func LoadBridge(path string) (*Bridge, error) {
	b := &Bridge{}
	data, err := os.ReadFile(path)
	if err == nil {
		if uerr := yaml.Unmarshal(data, b); uerr != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, uerr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if b.MQTT.Host == "" {
		b.MQTT.Host = "localhost"
	}
	if b.MQTT.Port == 0 {
		b.MQTT.Port = 1883
	}
	if b.MQTT.ClientID == "" {
		b.MQTT.ClientID = "amr-discover"
	}
	if b.MQTT.BaseTopic == "" {
		b.MQTT.BaseTopic = "rtlamr"
	}
	if b.MQTT.DiscoveryPrefix == "" {
		b.MQTT.DiscoveryPrefix = "homeassistant"
	}
	if b.Monitor.MaxMeters <= 0 {
		b.Monitor.MaxMeters = DefaultMaxMeters
	}
	if b.Monitor.MergeInterval <= 0 {
		b.Monitor.MergeInterval = DefaultMergeInterval
	}
	return b, nil
}
