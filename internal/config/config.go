package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	API         APIConfig            `toml:"api"`
	Session     SessionConfig        `toml:"session"`
	Storage     StorageConfig        `toml:"storage"`
	Cache       CacheConfig          `toml:"cache"`
	Auth        AuthConfig           `toml:"auth"`
	DevAPI      DevAPIConfig         `toml:"dev_api"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// APIConfig describes the remote events REST API.
type APIConfig struct {
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"` // sent as X-API-TOKEN on credential-issuing endpoints
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// SessionConfig selects where the session record is persisted.
type SessionConfig struct {
	Backend string `toml:"backend"` // "file", "badger" or "memory"
	Key     string `toml:"key"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	File   FileConfig   `toml:"file"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path       string `toml:"path"`
	RetainDays int    `toml:"retain_days"` // records untouched for longer are pruned on open, 0 keeps everything
}

// Retention returns RetainDays as a duration.
func (c *BadgerConfig) Retention() time.Duration {
	if c.RetainDays <= 0 {
		return 0
	}
	return time.Duration(c.RetainDays) * 24 * time.Hour
}

// FileConfig contains settings for the JSON file store.
type FileConfig struct {
	Path string `toml:"path"`
}

// CacheConfig controls the gateway's GET response cache.
type CacheConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses the cache TTL. Zero disables caching.
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AuthConfig contains portal cookie settings.
type AuthConfig struct {
	CookieSecret string `toml:"cookie_secret"`
}

// DevAPIConfig configures the in-process development API started in dev mode.
type DevAPIConfig struct {
	Port       int    `toml:"port"`
	JWTSecret  string `toml:"jwt_secret"`
	AccessTTL  string `toml:"access_ttl"`
	RefreshTTL string `toml:"refresh_ttl"`
}

// GetAccessTTL parses the access token lifetime, defaulting to 15 minutes.
func (c *DevAPIConfig) GetAccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// GetRefreshTTL parses the refresh token lifetime, defaulting to 7 days.
func (c *DevAPIConfig) GetRefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// IsDevMode returns true when the portal runs against the in-process dev API.
func (c *Config) IsDevMode() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "dev"
}

// DevAPIURL is where a dev mode portal serves its in-memory API. eventctl
// and events-mcp use it to reach a running portal.
func (c *Config) DevAPIURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.DevAPI.Port)
}

// BaseURL returns the portal's own address.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	config.Environment = normalizeEnvironment(config.Environment)

	return config, nil
}

// applyEnvOverrides applies EVENTS_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EVENTS_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("EVENTS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EVENTS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("EVENTS_API_URL"); url != "" {
		config.API.URL = url
	}
	if key := os.Getenv("EVENTS_API_KEY"); key != "" {
		config.API.APIKey = key
	}
	if backend := os.Getenv("EVENTS_SESSION_BACKEND"); backend != "" {
		config.Session.Backend = backend
	}
	if badgerPath := os.Getenv("EVENTS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if filePath := os.Getenv("EVENTS_SESSION_FILE"); filePath != "" {
		config.Storage.File.Path = filePath
	}
	if secret := os.Getenv("EVENTS_COOKIE_SECRET"); secret != "" {
		config.Auth.CookieSecret = secret
	}
	if level := os.Getenv("EVENTS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("EVENTS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// normalizeEnvironment maps "development" to "dev" and "production" to "prod".
func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development":
		return "dev"
	case "production":
		return "prod"
	default:
		return env
	}
}

// Validate returns one message per missing or invalid mandatory setting.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if !c.IsDevMode() && strings.TrimSpace(c.API.URL) == "" {
		issues = append(issues, "api.url is required outside dev mode (EVENTS_API_URL)")
	}
	switch strings.ToLower(strings.TrimSpace(c.Session.Backend)) {
	case "", "file", "badger", "memory":
	default:
		issues = append(issues, fmt.Sprintf("session.backend %q must be file, badger or memory", c.Session.Backend))
	}
	if c.IsDevMode() && c.DevAPI.JWTSecret == "" {
		issues = append(issues, "dev_api.jwt_secret is required in dev mode")
	}
	if c.Auth.CookieSecret != "" && len(c.Auth.CookieSecret) < 32 {
		issues = append(issues, "auth.cookie_secret must be at least 32 bytes")
	}
	return issues
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
