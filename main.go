// amr-discover — meter discovery agent for an AMR-to-MQTT bridge.
//
// Reads decoded utility-meter readings (rtlamr JSON lines on stdin),
// publishes them to MQTT, and accumulates newly seen meters in a
// persisted catalog that is periodically merged into the bridge's
// primary configuration.
//
// Usage:
//
//	rtlamr -format=json | amr-discover daemon     # discovery loop
//	amr-discover merge                            # one-shot catalog merge
//	amr-discover version
package main

import "github.com/ninjasstudio/amr-discover/cmd"

var version = "dev"

func main() {
	cmd.Execute(version)
}
