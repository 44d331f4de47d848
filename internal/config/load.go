package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "assetflow.yaml"

// Load loads configuration from the specified file. The format follows the file extension
// (.yaml, .yml or .toml). A missing file yields the defaults. Environment variables from
// .env and .env.local next to the file are loaded first without overriding the process
// environment, and ${VAR} references in the file are expanded.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	cfg := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("Configuration file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	default:
		if err := decode(configPath, []byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, err
		}
		cfg.File = configPath
	}

	res, err := NormalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		slog.Warn("Configuration normalized", "detail", w)
	}
	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data onto cfg, so that omitted keys keep their defaults.
func decode(configPath string, data []byte, cfg *Config) error {
	var err error
	switch format(configPath) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil // empty document
		}
	default:
		return foundationerrors.ConfigError("unsupported config file extension").
			WithContext("path", configPath).
			Build()
	}
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to decode config").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return nil
}

func format(configPath string) string {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// loadEnvFiles loads .env then .env.local from dir. Variables already present in the
// process environment are not overridden.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load environment file", "path", p, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", p)
	}
}

// Init creates a new configuration file with the default settings.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Default()
	example.Name = "my-site"

	var (
		data []byte
		err  error
	)
	switch format(configPath) {
	case "toml":
		data, err = toml.Marshal(example)
	case "yaml":
		data, err = yaml.Marshal(example)
	default:
		return foundationerrors.ConfigError("unsupported config file extension").
			WithContext("path", configPath).
			Build()
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
