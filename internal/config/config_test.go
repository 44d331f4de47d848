package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.Paths.Source)
	assert.Equal(t, ".tmp", cfg.Paths.Temp)
	assert.Equal(t, "dist", cfg.Paths.Output)
	assert.Equal(t, []string{".git"}, cfg.Paths.Reserved)
	assert.Equal(t, 3000, cfg.Serve.Port)
	assert.Equal(t, 3001, cfg.Serve.DistPort)
	assert.Equal(t, 100*time.Millisecond, cfg.Serve.Debounce.D())
	assert.Equal(t, ScriptTargetES2015, cfg.Scripts.Target)
	assert.Equal(t, int64(2*1024*1024), cfg.ServiceWorker.MaxFileSize)
	assert.Empty(t, cfg.File)
}

func TestLoad_YAMLOverridesAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetflow.yaml")
	writeFile(t, path, `
name: demo
paths:
  output: public
serve:
  port: 8080
  debounce: 250ms
images:
  cache_ttl: 7d
scripts:
  target: ES6
logging:
  level: WARNING
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, "public", cfg.Paths.Output)
	assert.Equal(t, "app", cfg.Paths.Source)
	assert.Equal(t, 8080, cfg.Serve.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Serve.Debounce.D())
	assert.Equal(t, 7*24*time.Hour, cfg.Images.CacheTTL.D())
	assert.Equal(t, ScriptTargetES2015, cfg.Scripts.Target)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetflow.toml")
	writeFile(t, path, `
name = "toml-site"

[serve]
port = 4000

[history]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "toml-site", cfg.Name)
	assert.Equal(t, 4000, cfg.Serve.Port)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, ".cache/history.db", cfg.History.Path)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetflow.yaml")
	writeFile(t, filepath.Join(dir, ".env"), "ASSETFLOW_TEST_NATS=nats://from-dotenv:4222\n")
	writeFile(t, path, "notify:\n  nats_url: ${ASSETFLOW_TEST_NATS}\n")
	t.Cleanup(func() { _ = os.Unsetenv("ASSETFLOW_TEST_NATS") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://from-dotenv:4222", cfg.Notify.NATSURL)
}

func TestLoad_ProcessEnvironmentWinsOverDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetflow.yaml")
	writeFile(t, filepath.Join(dir, ".env"), "ASSETFLOW_TEST_NAME=from-dotenv\n")
	writeFile(t, path, "name: ${ASSETFLOW_TEST_NAME}\n")
	t.Setenv("ASSETFLOW_TEST_NAME", "from-process")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-process", cfg.Name)
}

func TestLoad_UnknownFieldIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetflow.yaml")
	writeFile(t, path, "servr:\n  port: 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetflow.ini")
	writeFile(t, path, "name=x\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"output is project root", func(c *Config) { c.Paths.Output = "." }, "paths.output"},
		{"source escapes root", func(c *Config) { c.Paths.Source = "../app" }, "paths.source"},
		{"source equals output", func(c *Config) { c.Paths.Output = "app" }, "paths.source"},
		{"temp equals output", func(c *Config) { c.Paths.Temp = "dist" }, "paths.temp"},
		{"source inside output", func(c *Config) { c.Paths.Source = "dist/app" }, "paths.source"},
		{"reserved path with slash", func(c *Config) { c.Paths.Reserved = []string{"a/b"} }, "paths.reserved"},
		{"port out of range", func(c *Config) { c.Serve.Port = 70000 }, "serve.port"},
		{"bad glob", func(c *Config) { c.ServiceWorker.StaticGlobs = []string{"images/[a"} }, "service_worker.static_globs"},
		{"bad nats url", func(c *Config) { c.Notify.NATSURL = "localhost" }, "notify.nats_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)

			classified, ok := foundationerrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, foundationerrors.CategoryValidation, classified.Category())
			field, _ := classified.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}

	require.NoError(t, ValidateConfig(Default()))
}

func TestNormalizeConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "JSON"
	cfg.Logging.Level = "verbose"
	cfg.Paths.Output = "./dist/"
	cfg.Styles.Engines = []string{" Chrome58", "chrome58", "", "safari11"}

	res, err := NormalizeConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, "dist", cfg.Paths.Output)
	assert.Equal(t, []string{"chrome58", "safari11"}, cfg.Styles.Engines)
	assert.Len(t, res.Warnings, 2)
}

func TestInit(t *testing.T) {
	for _, name := range []string{"assetflow.yaml", "assetflow.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Init(path, false))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "my-site", cfg.Name)
			assert.Equal(t, 30*24*time.Hour, cfg.Images.CacheTTL.D())

			err = Init(path, false)
			require.Error(t, err)
			require.NoError(t, Init(path, true))
		})
	}
}

func TestProjectName(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	assert.Equal(t, DefaultCacheID, cfg.ProjectName(root))

	writeFile(t, filepath.Join(root, "package.json"), `{"name": "web-starter-kit", "version": "1.0.0"}`)
	assert.Equal(t, "web-starter-kit", cfg.ProjectName(root))

	cfg.Name = "configured"
	assert.Equal(t, "configured", cfg.ProjectName(root))
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("30d")
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)

	d, err = ParseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = ParseDuration("xd")
	require.Error(t, err)

	assert.Equal(t, "30d", Duration(30*24*time.Hour).String())
	assert.Equal(t, "100ms", Duration(100*time.Millisecond).String())
}
