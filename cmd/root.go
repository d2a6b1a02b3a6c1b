package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Flags
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "amr-discover",
	Short: "Meter discovery agent for an AMR-to-MQTT bridge",
	Long: `amr-discover watches decoded utility-meter readings, infers each
meter's commodity type (gas, water, or energy), and accumulates newly
seen meters in a persisted catalog. Discovered meters are merged into
the bridge's primary configuration so they become first-class,
continuously monitored entries.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Primary configuration file path (env: AMR_CONFIG, default: /data/rtlamr2mqtt.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute(version string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("amr-discover %s\n", version))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from flag or environment.
func resolveConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if v := os.Getenv("AMR_CONFIG"); v != "" {
		return v
	}
	return "/data/rtlamr2mqtt.yaml"
}
