package config

import "github.com/bobmcallan/events-portal/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		API: APIConfig{
			URL:     "http://localhost:8000/api",
			Timeout: "10s",
		},
		Session: SessionConfig{
			Backend: "file",
			Key:     "auth-storage",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data/events",
				RetainDays: 30,
			},
			File: FileConfig{
				Path: "./data/session.json",
			},
		},
		Cache: CacheConfig{
			TTL:        "30s",
			MaxEntries: 256,
		},
		DevAPI: DevAPIConfig{
			Port:       4242,
			JWTSecret:  "dev-secret-change-me",
			AccessTTL:  "15m",
			RefreshTTL: "168h",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "logs/events-portal.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
