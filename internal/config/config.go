// Package config loads and validates the assetflow project configuration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the project configuration. Every path is relative to the project root.
type Config struct {
	// Name is the project name used as the service worker cache id. When empty the
	// name from package.json is used.
	Name          string              `yaml:"name,omitempty" toml:"name,omitempty"`
	Paths         PathsConfig         `yaml:"paths" toml:"paths"`
	Styles        StylesConfig        `yaml:"styles" toml:"styles"`
	Scripts       ScriptsConfig       `yaml:"scripts" toml:"scripts"`
	HTML          HTMLConfig          `yaml:"html" toml:"html"`
	Images        ImagesConfig        `yaml:"images" toml:"images"`
	Copy          CopyConfig          `yaml:"copy" toml:"copy"`
	ServiceWorker ServiceWorkerConfig `yaml:"service_worker" toml:"service_worker"`
	Serve         ServeConfig         `yaml:"serve" toml:"serve"`
	History       HistoryConfig       `yaml:"history" toml:"history"`
	Notify        NotifyConfig        `yaml:"notify" toml:"notify"`
	Logging       LoggingConfig       `yaml:"logging" toml:"logging"`

	// File is the path the configuration was loaded from, empty when defaults are used.
	File string `yaml:"-" toml:"-"`
}

// PathsConfig locates the three trees of a project.
type PathsConfig struct {
	Source   string   `yaml:"source" toml:"source"`
	Temp     string   `yaml:"temp" toml:"temp"`
	Output   string   `yaml:"output" toml:"output"`
	Reserved []string `yaml:"reserved" toml:"reserved"` // Output entries the cleaner never deletes
}

// StylesConfig configures the stylesheet pipeline.
type StylesConfig struct {
	Engines   []string `yaml:"engines" toml:"engines"` // Browser targets for vendor prefixing, e.g. chrome58
	SourceMap bool     `yaml:"source_map" toml:"source_map"`
}

// ScriptsConfig configures the script pipeline.
type ScriptsConfig struct {
	Entry     string       `yaml:"entry" toml:"entry"` // Relative to <source>/scripts
	Target    ScriptTarget `yaml:"target" toml:"target"`
	SourceMap bool         `yaml:"source_map" toml:"source_map"`
}

// HTMLConfig configures markup assembly.
type HTMLConfig struct {
	Minify bool `yaml:"minify" toml:"minify"`
}

// ImagesConfig configures image optimization and its content-keyed cache.
type ImagesConfig struct {
	CacheDir        string   `yaml:"cache_dir" toml:"cache_dir"`
	CacheTTL        Duration `yaml:"cache_ttl" toml:"cache_ttl"`
	CacheGCInterval Duration `yaml:"cache_gc_interval" toml:"cache_gc_interval"`
}

// CopyConfig lists files outside the source tree copied into the output root.
type CopyConfig struct {
	Extra []string `yaml:"extra" toml:"extra"`
}

// ServiceWorkerConfig configures the offline cache generator.
type ServiceWorkerConfig struct {
	Toolbox     string   `yaml:"toolbox" toml:"toolbox"`
	Rules       string   `yaml:"rules" toml:"rules"`
	StaticGlobs []string `yaml:"static_globs" toml:"static_globs"`
	MaxFileSize int64    `yaml:"max_file_size" toml:"max_file_size"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Host     string   `yaml:"host" toml:"host"`
	Port     int      `yaml:"port" toml:"port"`
	DistPort int      `yaml:"dist_port" toml:"dist_port"`
	Debounce Duration `yaml:"debounce" toml:"debounce"`
	Metrics  bool     `yaml:"metrics" toml:"metrics"` // Expose /__metrics
}

// HistoryConfig configures the build history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// NotifyConfig configures optional build notifications over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty" toml:"nats_url,omitempty"`
	Subject string `yaml:"subject" toml:"subject"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level" toml:"level"`
	Format LogFormat `yaml:"format" toml:"format"`
}

// Duration is a time.Duration written as a Go duration string ("100ms", "1h").
// A "d" suffix is accepted for whole days ("30d").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string {
	td := time.Duration(d)
	if td >= 24*time.Hour && td%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", td/(24*time.Hour))
	}
	return td.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration parses a Go duration string, additionally accepting "<n>d".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}
