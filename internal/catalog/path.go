package catalog

import (
	"path/filepath"
	"strings"
)

// discoverySuffix marks the catalog file that sits next to the primary
// configuration.
const discoverySuffix = "_discovered"

// DerivePath maps the primary configuration path to its catalog path.
// The YAML extension family normalizes to "_discovered.yaml" so .yml and
// .yaml configs share one catalog name; any other extension keeps its own
// with the suffix inserted before it.
func DerivePath(configPath string) string {
	ext := filepath.Ext(configPath)
	base := strings.TrimSuffix(configPath, ext)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return base + discoverySuffix + ".yaml"
	case "":
		return configPath + discoverySuffix + ".yaml"
	default:
		return base + discoverySuffix + ext
	}
}
