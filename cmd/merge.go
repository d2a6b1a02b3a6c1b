package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ninjasstudio/amr-discover/internal/catalog"
	"github.com/ninjasstudio/amr-discover/internal/config"
	"github.com/ninjasstudio/amr-discover/internal/logging"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge the discovered-meter catalog into the primary configuration",
	Long: `Load the persisted discovery catalog and add every meter not already
present (by id) to the primary configuration's meters list. Safe to run
repeatedly: meters already configured are skipped and the file is only
rewritten when something was added.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().IntVar(&flagMaxMeters, "max-meters", 0, "Maximum meters to add in this pass (0 = config or default 25)")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	logging.Setup(flagLogLevel)

	configPath := resolveConfigPath()
	bridge, err := config.LoadBridge(configPath)
	if err != nil {
		return err
	}

	maxMeters := bridge.Monitor.MaxMeters
	if flagMaxMeters > 0 {
		maxMeters = flagMaxMeters
	}

	tracker := catalog.New(configPath, maxMeters)
	if err := tracker.Load(); err != nil {
		return err
	}

	added, err := tracker.MergeIntoConfig()
	if err != nil {
		return err
	}

	fmt.Printf("catalog: %d meter(s), added %d to %s\n", tracker.Len(), added, configPath)
	return nil
}
