// Package catalog tracks meters discovered on the radio but not yet
// present in the bridge's primary configuration.
//
// The catalog is bounded, persisted next to the primary configuration,
// and only ever grows: a meter's first classification is final, and
// entries are never removed by this package. Merging into the primary
// configuration is additive and idempotent: membership is recomputed
// against the configuration on every pass.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ninjasstudio/amr-discover/internal/classify"
	"github.com/ninjasstudio/amr-discover/internal/config"
)

// Entry is one discovered meter as persisted in the catalog file.
type Entry struct {
	Protocol             string               `yaml:"protocol"`
	DeviceClass          classify.DeviceClass `yaml:"device_class"`
	FirstSeenConsumption *int                 `yaml:"first_seen_consumption"`
}

// Tracker accumulates discovered meters and reconciles them into the
// primary configuration. Not safe for concurrent use; the observation
// loop is the single caller.
type Tracker struct {
	configPath  string
	catalogPath string
	maxMeters   int

	order   []string
	entries map[string]Entry

	log *slog.Logger
}

// New creates a tracker for the primary configuration at configPath.
// No I/O happens here; call Load to pick up a persisted catalog.
func New(configPath string, maxMeters int) *Tracker {
	if maxMeters <= 0 {
		maxMeters = config.DefaultMaxMeters
	}
	return &Tracker{
		configPath:  configPath,
		catalogPath: DerivePath(configPath),
		maxMeters:   maxMeters,
		entries:     map[string]Entry{},
		log:         slog.Default().With("component", "catalog"),
	}
}

// CatalogPath returns the derived catalog file path.
func (t *Tracker) CatalogPath() string { return t.catalogPath }

// Len returns the number of discovered meters.
func (t *Tracker) Len() int { return len(t.entries) }

// Meter pairs a catalog entry with its meter id.
type Meter struct {
	MeterID string
	Entry
}

// Entries returns the catalog in insertion order.
func (t *Tracker) Entries() []Meter {
	out := make([]Meter, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, Meter{id, t.entries[id]})
	}
	return out
}

// Get looks up a catalog entry by meter id.
func (t *Tracker) Get(meterID string) (Entry, bool) {
	e, ok := t.entries[meterID]
	return e, ok
}

// Load reads the persisted catalog. A missing file is a clean start, not
// an error. On a read or parse error the tracker keeps an empty catalog
// and the error is returned for the caller to log; discovery must never
// stop the bridge.
func (t *Tracker) Load() error {
	data, err := os.ReadFile(t.catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read catalog %s: %w", t.catalogPath, err)
	}

	doc, err := decodeCatalog(data)
	if err != nil {
		return fmt.Errorf("parse catalog %s: %w", t.catalogPath, err)
	}

	t.order = doc.order
	t.entries = doc.entries
	if len(t.entries) > 0 {
		t.log.Info("loaded previously discovered meters", "count", len(t.entries))
	}
	return nil
}

// Record adds a newly observed meter to the catalog. It reports whether
// an entry was added: a meter already present keeps its first
// classification, and a full catalog silently drops new discoveries.
func (t *Tracker) Record(meterID, protocol string, consumption *int) bool {
	if _, seen := t.entries[meterID]; seen {
		return false
	}
	if len(t.entries) >= t.maxMeters {
		return false
	}

	class := classify.Classify(protocol, consumption)
	t.entries[meterID] = Entry{
		Protocol:             strings.ToLower(protocol),
		DeviceClass:          class,
		FirstSeenConsumption: consumption,
	}
	t.order = append(t.order, meterID)
	t.log.Info("discovered new meter", "id", meterID, "protocol", protocol, "device_class", class)
	return true
}

// Save writes the catalog to its file in insertion order.
func (t *Tracker) Save() error {
	data, err := encodeCatalog(t.order, t.entries)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(t.catalogPath, data, 0644); err != nil {
		return fmt.Errorf("write catalog %s: %w", t.catalogPath, err)
	}
	t.log.Info("saved discovered meters", "count", len(t.entries), "path", t.catalogPath)
	return nil
}

// MergeIntoConfig adds catalog entries missing from the primary
// configuration, up to maxMeters additions per pass, and reports how many
// were added. The configuration is rewritten only when something was
// added, so manual edits are never clobbered by a no-op pass. An
// unreadable configuration is treated as empty. A meter id that cannot
// be parsed surfaces as classify.ErrInvalidMeterID, a data problem
// worth failing loudly on, unlike transient I/O.
func (t *Tracker) MergeIntoConfig() (int, error) {
	if len(t.entries) == 0 {
		return 0, nil
	}

	doc, err := config.LoadDocument(t.configPath)
	if err != nil {
		t.log.Warn("primary config unreadable, merging into empty document", "error", err)
		doc = config.Empty()
	}

	existing := doc.MeterIDs()
	added := 0
	for _, meterID := range t.order {
		if existing[meterID] || added >= t.maxMeters {
			continue
		}
		entry := t.entries[meterID]
		def, err := classify.Defaults(meterID, entry.Protocol, entry.DeviceClass)
		if err != nil {
			return added, fmt.Errorf("merge meter %q: %w", meterID, err)
		}
		doc.AppendMeter(def.Map())
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := doc.Save(t.configPath); err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	t.log.Info("added discovered meters to config", "count", added, "path", t.configPath)
	return added, nil
}
