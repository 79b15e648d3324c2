// internal/config/types.go
package config

import "time"

// Config is the complete klresults configuration
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Output    OutputConfig    `yaml:"output"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Schedule  ScheduleConfig  `yaml:"schedule,omitempty"`
	Log       LogConfig       `yaml:"log"`
}

// SiteConfig identifies the results site
type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	ListingURL string `yaml:"listing_url"`
	LinkSlug   string `yaml:"link_slug"`
	Timezone   string `yaml:"timezone"`
}

// DiscoveryConfig bounds link discovery
type DiscoveryConfig struct {
	MaxResults   int `yaml:"max_results"`
	LookbackDays int `yaml:"lookback_days"`
}

// FetchConfig configures the fetch cascade
type FetchConfig struct {
	Timeout         time.Duration     `yaml:"timeout"`
	FallbackTimeout time.Duration     `yaml:"fallback_timeout"`
	MaxRetries      int               `yaml:"max_retries"`
	BackoffStep     time.Duration     `yaml:"backoff_step"`
	BackoffCap      time.Duration     `yaml:"backoff_cap"`
	RateLimit       float64           `yaml:"rate_limit"`
	RateBurst       int               `yaml:"rate_burst"`
	UserAgent       string            `yaml:"user_agent,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Proxy           ProxyConfig       `yaml:"proxy"`
	TextProxy       TextProxyConfig   `yaml:"text_proxy"`
	Browser         BrowserConfig     `yaml:"browser"`
}

// ProxyConfig is the scraping proxy. The proxy strategy is used only when
// APIKey is set.
type ProxyConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// TextProxyConfig is the text-extraction fallback
type TextProxyConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Prefix  string `yaml:"prefix"`
}

// BrowserConfig is the headless browser fallback
type BrowserConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Headless *bool         `yaml:"headless,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OutputConfig configures record persistence
type OutputConfig struct {
	Dir        string         `yaml:"dir"`
	LatestName string         `yaml:"latest_name"`
	Database   DatabaseConfig `yaml:"database,omitempty"`
	MongoDB    MongoDBConfig  `yaml:"mongodb,omitempty"`
}

// DatabaseConfig is the optional SQL sink
type DatabaseConfig struct {
	Driver string `yaml:"driver,omitempty"` // sqlite3, postgres or mysql
	DSN    string `yaml:"dsn,omitempty"`
	Table  string `yaml:"table,omitempty"`
}

// MongoDBConfig is the optional MongoDB sink
type MongoDBConfig struct {
	URI        string `yaml:"uri,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// CacheConfig configures the discovery date cache
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// NotifyConfig configures draw events
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	Textfile  string            `yaml:"textfile,omitempty"`
	Namespace string            `yaml:"namespace,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// ServerConfig configures the serve-mode status server
type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// ScheduleConfig lists serve-mode cron specs, evaluated in the site timezone
type ScheduleConfig struct {
	Specs []string `yaml:"specs,omitempty"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TextProxyEnabled reports whether the text proxy fallback is on. It
// defaults to true.
func (f FetchConfig) TextProxyEnabled() bool {
	return f.TextProxy.Enabled == nil || *f.TextProxy.Enabled
}

// BrowserHeadless reports whether the browser runs headless. It defaults
// to true.
func (f FetchConfig) BrowserHeadless() bool {
	return f.Browser.Headless == nil || *f.Browser.Headless
}

// Lookback returns the discovery lookback window.
func (d DiscoveryConfig) Lookback() time.Duration {
	return time.Duration(d.LookbackDays) * 24 * time.Hour
}
