package config

import "time"

// DefaultCacheID is the service worker cache id used when neither the config nor
// package.json names the project.
const DefaultCacheID = "static-boiler"

// Default returns a fully defaulted configuration for the standard project layout.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:   "app",
			Temp:     ".tmp",
			Output:   "dist",
			Reserved: []string{".git"},
		},
		Styles: StylesConfig{
			Engines: []string{
				"chrome58", "edge16", "firefox57", "safari11", "ios11",
			},
			SourceMap: true,
		},
		Scripts: ScriptsConfig{
			Entry:     "main.js",
			Target:    ScriptTargetES2015,
			SourceMap: true,
		},
		HTML: HTMLConfig{Minify: true},
		Images: ImagesConfig{
			CacheDir:        ".cache/images",
			CacheTTL:        Duration(30 * 24 * time.Hour),
			CacheGCInterval: Duration(time.Hour),
		},
		Copy: CopyConfig{
			Extra: []string{"node_modules/apache-server-configs/dist/.htaccess"},
		},
		ServiceWorker: ServiceWorkerConfig{
			Toolbox: "node_modules/sw-toolbox/sw-toolbox.js",
			Rules:   "app/scripts/sw/runtime-caching.js",
			StaticGlobs: []string{
				"images/**/*",
				"scripts/**/*.js",
				"styles/**/*.css",
				"*.{html,json}",
			},
			MaxFileSize: 2 * 1024 * 1024,
		},
		Serve: ServeConfig{
			Host:     "localhost",
			Port:     3000,
			DistPort: 3001,
			Debounce: Duration(100 * time.Millisecond),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".cache/history.db",
		},
		Notify: NotifyConfig{
			Subject: "assetflow.builds",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// applyDefaults fills zero values left behind by a config file that blanked a field.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Paths.Source == "" {
		cfg.Paths.Source = def.Paths.Source
	}
	if cfg.Paths.Temp == "" {
		cfg.Paths.Temp = def.Paths.Temp
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = def.Paths.Output
	}
	if cfg.Scripts.Entry == "" {
		cfg.Scripts.Entry = def.Scripts.Entry
	}
	if cfg.Images.CacheDir == "" {
		cfg.Images.CacheDir = def.Images.CacheDir
	}
	if cfg.Images.CacheTTL <= 0 {
		cfg.Images.CacheTTL = def.Images.CacheTTL
	}
	if cfg.Images.CacheGCInterval <= 0 {
		cfg.Images.CacheGCInterval = def.Images.CacheGCInterval
	}
	if cfg.ServiceWorker.Toolbox == "" {
		cfg.ServiceWorker.Toolbox = def.ServiceWorker.Toolbox
	}
	if cfg.ServiceWorker.Rules == "" {
		cfg.ServiceWorker.Rules = cfg.Paths.Source + "/scripts/sw/runtime-caching.js"
	}
	if len(cfg.ServiceWorker.StaticGlobs) == 0 {
		cfg.ServiceWorker.StaticGlobs = def.ServiceWorker.StaticGlobs
	}
	if cfg.ServiceWorker.MaxFileSize <= 0 {
		cfg.ServiceWorker.MaxFileSize = def.ServiceWorker.MaxFileSize
	}
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = def.Serve.Host
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = def.Serve.Port
	}
	if cfg.Serve.DistPort == 0 {
		cfg.Serve.DistPort = def.Serve.DistPort
	}
	if cfg.Serve.Debounce <= 0 {
		cfg.Serve.Debounce = def.Serve.Debounce
	}
	if cfg.History.Path == "" {
		cfg.History.Path = def.History.Path
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = def.Notify.Subject
	}
}
