// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values.
const (
	EnvProxyKey      = "SCRAPERAPI_KEY"
	EnvProxyEndpoint = "SCRAPERAPI_ENDPOINT"
	EnvOutputDir     = "KLRESULTS_OUTPUT_DIR"
)

const (
	DefaultBaseURL        = "https://www.kllotteryresult.com"
	DefaultLinkSlug       = "kerala-lottery-result"
	DefaultTimezone       = "Asia/Kolkata"
	DefaultProxyEndpoint  = "http://api.scraperapi.com"
	DefaultTextProxy      = "https://r.jina.ai/http://"
	DefaultOutputDir      = "note"
	DefaultLatestName     = "latest.json"
	DefaultNATSSubject    = "klresults.draw.written"
	DefaultServerListen   = ":9090"
	DefaultMetricsNS      = "klresults"
	istOffsetSeconds      = 5*3600 + 30*60
	defaultCacheTTL       = 7 * 24 * time.Hour
	defaultBrowserTimeout = 45 * time.Second
)

// Load reads the configuration at filename. An empty filename yields the
// defaults, still subject to environment overrides.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default()
	}
	return LoadFromFile(filename)
}

// Default returns the built-in configuration
func Default() (*Config, error) {
	var config Config
	applyEnvOverrides(&config)
	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToWriter writes configuration as YAML
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return encoder.Close()
}

// SaveToFile writes configuration to a YAML file
func SaveToFile(config *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	defer f.Close()

	return SaveToWriter(config, f)
}

// GenerateTemplate returns a starting configuration. Secrets are left as
// environment references.
func GenerateTemplate() Config {
	var config Config
	applyDefaults(&config)
	config.Fetch.Proxy.APIKey = "${" + EnvProxyKey + "}"
	config.Output.Database = DatabaseConfig{Driver: "sqlite3", DSN: "note/draws.db", Table: "draws"}
	return config
}

// Location returns the site timezone. Asia/Kolkata falls back to a fixed
// +05:30 zone when the tz database is unavailable.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		if c.Site.Timezone == DefaultTimezone {
			return time.FixedZone("IST", istOffsetSeconds), nil
		}
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Site.Timezone, err)
	}
	return loc, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvProxyKey); v != "" {
		config.Fetch.Proxy.APIKey = v
	}
	if v := os.Getenv(EnvProxyEndpoint); v != "" {
		config.Fetch.Proxy.Endpoint = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		config.Output.Dir = v
	}
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Site.BaseURL == "" {
		config.Site.BaseURL = DefaultBaseURL
	}
	if config.Site.ListingURL == "" {
		config.Site.ListingURL = config.Site.BaseURL + "/"
	}
	if config.Site.LinkSlug == "" {
		config.Site.LinkSlug = DefaultLinkSlug
	}
	if config.Site.Timezone == "" {
		config.Site.Timezone = DefaultTimezone
	}

	if config.Discovery.MaxResults == 0 {
		config.Discovery.MaxResults = 10
	}
	if config.Discovery.LookbackDays == 0 {
		config.Discovery.LookbackDays = 30
	}

	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 25 * time.Second
	}
	if config.Fetch.FallbackTimeout == 0 {
		config.Fetch.FallbackTimeout = 30 * time.Second
	}
	if config.Fetch.MaxRetries == 0 {
		config.Fetch.MaxRetries = 3
	}
	if config.Fetch.BackoffStep == 0 {
		config.Fetch.BackoffStep = 2 * time.Second
	}
	if config.Fetch.BackoffCap == 0 {
		config.Fetch.BackoffCap = 6 * time.Second
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 1
	}
	if config.Fetch.RateBurst == 0 {
		config.Fetch.RateBurst = 5
	}
	if config.Fetch.Proxy.Endpoint == "" {
		config.Fetch.Proxy.Endpoint = DefaultProxyEndpoint
	}
	if config.Fetch.TextProxy.Prefix == "" {
		config.Fetch.TextProxy.Prefix = DefaultTextProxy
	}
	if config.Fetch.Browser.Timeout == 0 {
		config.Fetch.Browser.Timeout = defaultBrowserTimeout
	}

	if config.Output.Dir == "" {
		config.Output.Dir = DefaultOutputDir
	}
	if config.Output.LatestName == "" {
		config.Output.LatestName = DefaultLatestName
	}
	if config.Output.Database.Driver != "" && config.Output.Database.Table == "" {
		config.Output.Database.Table = "draws"
	}
	if config.Output.MongoDB.URI != "" && config.Output.MongoDB.Collection == "" {
		config.Output.MongoDB.Collection = "draws"
	}

	if config.Cache.TTL == 0 {
		config.Cache.TTL = defaultCacheTTL
	}
	if config.Notify.Subject == "" {
		config.Notify.Subject = DefaultNATSSubject
	}
	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = DefaultMetricsNS
	}
	if config.Server.Listen == "" {
		config.Server.Listen = DefaultServerListen
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}
