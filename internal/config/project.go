package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ProjectName returns the name used as the service worker cache id: the configured
// name, else the "name" field of <root>/package.json, else DefaultCacheID.
func (c *Config) ProjectName(root string) string {
	if c.Name != "" {
		return c.Name
	}
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return DefaultCacheID
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || strings.TrimSpace(pkg.Name) == "" {
		return DefaultCacheID
	}
	return strings.TrimSpace(pkg.Name)
}
