package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninjasstudio/amr-discover/internal/catalog"
	"github.com/ninjasstudio/amr-discover/internal/classify"
	"github.com/ninjasstudio/amr-discover/internal/config"
	"github.com/ninjasstudio/amr-discover/internal/listener"
	"github.com/ninjasstudio/amr-discover/internal/logging"
	"github.com/ninjasstudio/amr-discover/internal/metric"
	"github.com/ninjasstudio/amr-discover/internal/mqtt"
)

var (
	flagMaxMeters     int
	flagMergeInterval time.Duration
	flagNoMQTT        bool
	flagMetricsAddr   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the discovery loop against the decoder's output stream",
	Long: `Run amr-discover as a daemon that reads decoded meter readings from
stdin (one JSON document per line, as emitted by the rtlamr decoder),
publishes readings to MQTT, and tracks newly seen meters.

The daemon runs two concurrent loops:
  1. Observation loop: parse readings, publish, record discoveries
  2. Merge loop: periodically persist the catalog and merge it into
     the primary configuration

On shutdown a final save and merge pass runs, so meters discovered
during the session survive a restart.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().IntVar(&flagMaxMeters, "max-meters", 0, "Maximum meters to track (0 = config or default 25)")
	daemonCmd.Flags().DurationVar(&flagMergeInterval, "merge-interval", 0, "Save/merge interval (0 = config or default 15m)")
	daemonCmd.Flags().BoolVar(&flagNoMQTT, "no-mqtt", false, "Track and merge only, never touch the broker")
	daemonCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address (e.g. :9100)")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logging.Setup(flagLogLevel)
	log := slog.Default().With("component", "daemon")

	configPath := resolveConfigPath()
	bridge, err := config.LoadBridge(configPath)
	if err != nil {
		return err
	}

	maxMeters := bridge.Monitor.MaxMeters
	if flagMaxMeters > 0 {
		maxMeters = flagMaxMeters
	}
	mergeInterval := bridge.Monitor.MergeInterval
	if flagMergeInterval > 0 {
		mergeInterval = flagMergeInterval
	}

	tracker := catalog.New(configPath, maxMeters)
	if err := tracker.Load(); err != nil {
		log.Warn("starting with empty catalog", "error", err)
	}
	metric.CatalogSize.Set(float64(tracker.Len()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Broker is optional: without it the daemon still discovers and merges.
	var publisher *mqtt.Publisher
	if !flagNoMQTT {
		client, err := mqtt.Connect(ctx, bridge.MQTT)
		if err != nil {
			log.Warn("running without MQTT", "error", err)
		} else {
			publisher = mqtt.NewPublisher(client, bridge.MQTT.BaseTopic, bridge.MQTT.DiscoveryPrefix)
		}
	}

	if flagMetricsAddr != "" {
		metric.Serve(flagMetricsAddr)
	}

	log.Info("amr-discover starting",
		"config", configPath,
		"catalog", tracker.CatalogPath(),
		"max_meters", maxMeters,
		"merge_interval", mergeInterval)

	// The tracker is single-writer: the merge ticker and the observation
	// loop serialize on mu.
	var mu sync.Mutex

	// Merge loop. Failures are logged and retried naturally next tick.
	go func() {
		ticker := time.NewTicker(mergeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				saveAndMerge(tracker, log)
				mu.Unlock()
			}
		}
	}()

	// Observation loop on stdin.
	l := listener.New(cmd.InOrStdin())
	err = l.Run(ctx, func(obs listener.Observation) {
		mu.Lock()
		handleObservation(tracker, publisher, obs, log)
		mu.Unlock()
	})

	// Final pass so the session's discoveries survive shutdown. The
	// ticker goroutine is stopped first so it cannot overlap.
	stop()
	mu.Lock()
	saveAndMerge(tracker, log)
	mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("amr-discover stopped")
	return nil
}

func handleObservation(tracker *catalog.Tracker, publisher *mqtt.Publisher, obs listener.Observation, log *slog.Logger) {
	metric.Observations.WithLabelValues(obs.Protocol).Inc()

	if obs.Consumption != nil {
		if err := publisher.PublishReading(obs.MeterID, *obs.Consumption); err != nil {
			metric.PublishErrors.Inc()
			log.Warn("reading publish failed", "meter", obs.MeterID, "error", err)
		}
	}

	if !tracker.Record(obs.MeterID, obs.Protocol, obs.Consumption) {
		return
	}
	metric.MetersDiscovered.Inc()
	metric.CatalogSize.Set(float64(tracker.Len()))

	entry, _ := tracker.Get(obs.MeterID)
	def, err := classify.Defaults(obs.MeterID, entry.Protocol, entry.DeviceClass)
	if err != nil {
		// A non-numeric id can't become a config entry; merge reports
		// the same problem, this just surfaces it at discovery time.
		log.Warn("discovered meter has non-numeric id", "meter", obs.MeterID, "error", err)
		return
	}
	if err := publisher.PublishDiscovery(def); err != nil {
		metric.PublishErrors.Inc()
		log.Warn("discovery publish failed", "meter", obs.MeterID, "error", err)
	}
}

func saveAndMerge(tracker *catalog.Tracker, log *slog.Logger) {
	if err := tracker.Save(); err != nil {
		log.Warn("catalog save failed", "error", err)
	}
	added, err := tracker.MergeIntoConfig()
	if err != nil {
		log.Error("config merge failed", "error", err)
		return
	}
	if added > 0 {
		metric.MergeAdditions.Add(float64(added))
	}
}
