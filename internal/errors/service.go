// internal/errors/service.go - CLI error classification
package errors

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"

	"github.com/valpere/klresults/internal/output"
	"github.com/valpere/klresults/internal/scraper"
)

// Exit codes
const (
	ExitOK      = 0
	ExitGeneral = 1
	ExitConfig  = 2
	ExitNetwork = 3
	ExitOutput  = 5
)

// ConfigError marks a failure to load or validate configuration
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a configuration error
func NewConfigError(path string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Path: path, Err: err}
}

// Service turns errors into exit codes and user-facing messages
type Service struct {
	showTechnical bool
}

// NewService creates a new error service
func NewService() *Service {
	return &Service{}
}

// WithVerbose enables technical details in CLI output
func (s *Service) WithVerbose(verbose bool) *Service {
	s.showTechnical = verbose
	return s
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	var (
		cfgErr   *ConfigError
		fetchErr *scraper.FetchError
		writeErr *output.WriteError
	)

	switch {
	case stderrors.As(err, &cfgErr):
		if strings.Contains(strings.ToLower(err.Error()), "yaml") {
			return "Configuration Error",
				"The configuration file has invalid YAML syntax.",
				[]string{
					"Check YAML indentation (use spaces, not tabs)",
					"Ensure proper quoting of string values",
					"Run 'klresults template' to see a valid configuration",
				}
		}
		return "Configuration Error",
			"The configuration could not be loaded.",
			[]string{
				"Run 'klresults validate <config>' for a detailed report",
				"Check environment variables referenced with ${VAR}",
			}

	case stderrors.As(err, &writeErr):
		return "Output Error",
			fmt.Sprintf("Could not write %s.", writeErr.Path),
			[]string{
				"Check that the output directory exists and is writable",
				"Set KLRESULTS_OUTPUT_DIR to a writable location",
			}

	case stderrors.As(err, &fetchErr):
		return "Site Unreachable",
			fmt.Sprintf("Every fetch strategy failed for %s.", fetchErr.URL),
			[]string{
				"The site may be blocking automated requests; set SCRAPERAPI_KEY to enable the proxy",
				"Enable the browser fallback in the configuration",
				"Try again later, results are published in the afternoon IST",
			}
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return "Connection Timeout",
			"The request timed out while trying to connect to the website.",
			[]string{
				"Check your internet connection",
				"Increase fetch.timeout in the configuration",
			}
	case strings.Contains(errStr, "no such host"):
		return "Domain Not Found",
			"Could not find the website domain.",
			[]string{
				"Check site.base_url in the configuration",
				"Check your DNS settings",
			}
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit"):
		return "Rate Limit Exceeded",
			"The site is throttling requests.",
			[]string{
				"Lower fetch.rate_limit",
				"Use the proxy strategy",
			}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again",
			"Run with --verbose for technical details",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr   *ConfigError
		fetchErr *scraper.FetchError
		writeErr *output.WriteError
		netErr   net.Error
	)
	switch {
	case stderrors.As(err, &cfgErr):
		return ExitConfig
	case stderrors.As(err, &writeErr):
		return ExitOutput
	case stderrors.As(err, &fetchErr), stderrors.As(err, &netErr):
		return ExitNetwork
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return ExitConfig
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "no such host"):
		return ExitNetwork
	default:
		return ExitGeneral
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	var b strings.Builder
	fmt.Fprintf(&b, "❌ %s\n%s\n", title, message)

	if s.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		b.WriteString("\n💡 Suggestions:\n")
		for _, suggestion := range suggestions {
			fmt.Fprintf(&b, "  • %s\n", suggestion)
		}
	}

	return b.String()
}
