package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

// ValidateConfig validates a normalized and defaulted configuration.
func ValidateConfig(cfg *Config) error {
	if err := validatePaths(cfg); err != nil {
		return err
	}
	if err := validateServe(cfg); err != nil {
		return err
	}
	for _, g := range cfg.ServiceWorker.StaticGlobs {
		if !doublestar.ValidatePattern(g) {
			return invalid("service_worker.static_globs", g, "invalid glob pattern")
		}
	}
	if cfg.Notify.NATSURL != "" && !strings.Contains(cfg.Notify.NATSURL, "://") {
		return invalid("notify.nats_url", cfg.Notify.NATSURL, "expected a URL such as nats://localhost:4222")
	}
	return nil
}

func validatePaths(cfg *Config) error {
	trees := map[string]string{
		"paths.source": cfg.Paths.Source,
		"paths.temp":   cfg.Paths.Temp,
		"paths.output": cfg.Paths.Output,
	}
	for field, p := range trees {
		if p == "." || p == "/" || strings.HasPrefix(p, "../") || p == ".." {
			return invalid(field, p, "must be a directory inside the project root")
		}
	}
	if cfg.Paths.Source == cfg.Paths.Output || cfg.Paths.Source == cfg.Paths.Temp {
		return invalid("paths.source", cfg.Paths.Source, "must differ from the temp and output trees")
	}
	if cfg.Paths.Temp == cfg.Paths.Output {
		return invalid("paths.temp", cfg.Paths.Temp, "must differ from paths.output")
	}
	if isWithin(cfg.Paths.Source, cfg.Paths.Output) || isWithin(cfg.Paths.Source, cfg.Paths.Temp) {
		return invalid("paths.source", cfg.Paths.Source, "must not be inside a cleaned tree")
	}
	for _, r := range cfg.Paths.Reserved {
		if r == "" || strings.Contains(r, "/") {
			return invalid("paths.reserved", r, "must name a single output entry")
		}
	}
	return nil
}

func validateServe(cfg *Config) error {
	for field, port := range map[string]int{"serve.port": cfg.Serve.Port, "serve.dist_port": cfg.Serve.DistPort} {
		if port < 0 || port > 65535 {
			return invalid(field, fmt.Sprint(port), "port out of range")
		}
	}
	return nil
}

func isWithin(child, parent string) bool {
	return strings.HasPrefix(path.Clean(child)+"/", path.Clean(parent)+"/")
}

func invalid(field, value, reason string) error {
	return foundationerrors.ValidationError(fmt.Sprintf("invalid %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
