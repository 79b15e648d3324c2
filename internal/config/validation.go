// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) addError(field, value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	result := c.Check()
	if !result.Valid {
		return formatValidationError(result)
	}
	return nil
}

// Check validates the configuration and returns errors and warnings
func (c *Config) Check() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateSite(result)
	c.validateDiscovery(result)
	c.validateFetch(result)
	c.validateOutput(result)
	c.validateServe(result)
	c.validateLog(result)

	return result
}

func (c *Config) validateSite(result *ValidationResult) {
	validateHTTPURL(result, "site.base_url", c.Site.BaseURL)
	validateHTTPURL(result, "site.listing_url", c.Site.ListingURL)

	if strings.TrimSpace(c.Site.LinkSlug) == "" {
		result.addError("site.link_slug", "", "Result link slug is required")
	}
	if _, err := c.Location(); err != nil {
		result.addError("site.timezone", c.Site.Timezone, err.Error())
	}
}

func (c *Config) validateDiscovery(result *ValidationResult) {
	if c.Discovery.MaxResults < 1 {
		result.addError("discovery.max_results", fmt.Sprint(c.Discovery.MaxResults), "Must be at least 1")
	}
	if c.Discovery.LookbackDays < 0 {
		result.addError("discovery.lookback_days", fmt.Sprint(c.Discovery.LookbackDays), "Cannot be negative")
	}
}

func (c *Config) validateFetch(result *ValidationResult) {
	f := c.Fetch

	if f.Timeout <= 0 {
		result.addError("fetch.timeout", f.Timeout.String(), "Timeout must be positive")
	}
	if f.FallbackTimeout <= 0 {
		result.addError("fetch.fallback_timeout", f.FallbackTimeout.String(), "Timeout must be positive")
	}
	if f.MaxRetries < 1 || f.MaxRetries > 10 {
		result.addError("fetch.max_retries", fmt.Sprint(f.MaxRetries), "Must be between 1 and 10")
	}
	if f.BackoffStep < 0 || f.BackoffCap < f.BackoffStep {
		result.addError("fetch.backoff_cap", f.BackoffCap.String(), "Backoff cap must not be below the backoff step")
	}
	if f.RateLimit < 0 {
		result.addError("fetch.rate_limit", fmt.Sprint(f.RateLimit), "Cannot be negative")
	}
	if f.RateBurst < 1 {
		result.addError("fetch.rate_burst", fmt.Sprint(f.RateBurst), "Must be at least 1")
	}

	validateHTTPURL(result, "fetch.proxy.endpoint", f.Proxy.Endpoint)
	if f.Proxy.APIKey == "" {
		result.addWarning("%s is not set; the proxy strategy is disabled", EnvProxyKey)
	}
	if f.TextProxyEnabled() {
		validateHTTPURL(result, "fetch.text_proxy.prefix", f.TextProxy.Prefix)
	}
	if f.Browser.Enabled && f.Browser.Timeout <= 0 {
		result.addError("fetch.browser.timeout", f.Browser.Timeout.String(), "Timeout must be positive")
	}
}

var supportedDrivers = map[string]bool{"sqlite3": true, "postgres": true, "mysql": true}

func (c *Config) validateOutput(result *ValidationResult) {
	if strings.TrimSpace(c.Output.Dir) == "" {
		result.addError("output.dir", "", "Output directory is required")
	}
	if strings.ContainsAny(c.Output.LatestName, `/\`) {
		result.addError("output.latest_name", c.Output.LatestName, "Must be a file name, not a path")
	}

	db := c.Output.Database
	if db.Driver != "" {
		if !supportedDrivers[db.Driver] {
			result.addError("output.database.driver", db.Driver, "Supported drivers: sqlite3, postgres, mysql")
		}
		if db.DSN == "" {
			result.addError("output.database.dsn", "", "DSN is required when a database driver is set")
		}
	}

	mongo := c.Output.MongoDB
	if mongo.URI != "" && mongo.Database == "" {
		result.addError("output.mongodb.database", "", "Database name is required when a MongoDB URI is set")
	}
	if c.Cache.TTL < 0 {
		result.addError("cache.ttl", c.Cache.TTL.String(), "Cannot be negative")
	}
}

func (c *Config) validateServe(result *ValidationResult) {
	for i, spec := range c.Schedule.Specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			result.addError(fmt.Sprintf("schedule.specs[%d]", i), spec, "Invalid cron spec: "+err.Error())
		}
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.addError("log.level", c.Log.Level, "Supported levels: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		result.addError("log.format", c.Log.Format, "Supported formats: console, json")
	}
}

func validateHTTPURL(result *ValidationResult, field, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.addError(field, raw, "Must be an absolute http(s) URL")
	}
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("configuration validation failed:\n")
	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		errorMsg.WriteString("\n")
	}

	return fmt.Errorf("%s", strings.TrimRight(errorMsg.String(), "\n"))
}
