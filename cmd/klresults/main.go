// cmd/klresults/main.go - CLI entry point
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/valpere/klresults/internal/config"
	"github.com/valpere/klresults/internal/errors"
	"github.com/valpere/klresults/internal/monitoring"
	"github.com/valpere/klresults/internal/pipeline"
	"github.com/valpere/klresults/internal/schedule"
	"github.com/valpere/klresults/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Global error service instance
var errorService = errors.NewService()

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

// positionalArgs returns the arguments after the command without flags
func positionalArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		if arg == "-v" || arg == "--verbose" {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// fail prints err in CLI form and exits with its code
func fail(err error) {
	fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
	os.Exit(errorService.GetExitCode(err))
}

// loadEnvFile loads .env when it exists
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// setup loads configuration and builds the logger
func setup(configFile string) (*config.Config, *utils.ZapLogger, error) {
	if err := loadEnvFile(); err != nil {
		return nil, nil, errors.NewConfigError(".env", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, errors.NewConfigError(configFile, err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, errors.NewConfigError(configFile, err)
	}
	return cfg, logger, nil
}

// runOnce performs a single scrape run
func runOnce(configFile string) error {
	cfg, logger, err := setup(configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return errors.NewConfigError(configFile, err)
	}
	defer app.Close()

	report, err := app.RunOnce(ctx)
	printSummary(report)
	return runOutcome(report, err, logger)
}

// serve runs on the configured schedule until interrupted
func serve(configFile string) error {
	cfg, logger, err := setup(configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return errors.NewConfigError(configFile, err)
	}
	defer app.Close()

	sched, err := schedule.New(cfg.Schedule.Specs, app.loc, func(ctx context.Context) error {
		report, err := app.RunOnce(ctx)
		if err != nil {
			return err
		}
		return runFailure(report)
	}, logger)
	if err != nil {
		return errors.NewConfigError(configFile, err)
	}

	if configFile != "" {
		watcher, err := config.NewConfigWatcher(configFile, logger)
		if err != nil {
			logger.Warnf("config hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			watcher.OnChange(app.Reload)
		}
	}

	server := monitoring.NewServer(
		monitoring.ServerConfig{Listen: cfg.Server.Listen, Token: cfg.Server.Token},
		app.metrics, app.health,
		&serveControl{
			trigger: sched.TriggerRun,
			state:   func() any { return sched.State() },
			runner:  app.runner,
			stored:  app.StoredDraws,
		},
		logger,
	)

	sched.Start(ctx)
	err = server.Start(ctx)
	stop()
	sched.Stop()
	if err != nil {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// validateConfig loads configFile and prints its warnings
func validateConfig(configFile string) error {
	if err := loadEnvFile(); err != nil {
		return errors.NewConfigError(".env", err)
	}

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return errors.NewConfigError(configFile, err)
	}

	for _, warning := range cfg.Check().Warnings {
		fmt.Printf("⚠ %s\n", warning)
	}
	if hasFlag("-v") || hasFlag("--verbose") {
		fmt.Printf("Configuration details:\n")
		fmt.Printf("  Listing URL: %s\n", cfg.Site.ListingURL)
		fmt.Printf("  Timezone: %s\n", cfg.Site.Timezone)
		fmt.Printf("  Max results: %d\n", cfg.Discovery.MaxResults)
		fmt.Printf("  Output dir: %s\n", cfg.Output.Dir)
	}
	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
	return nil
}

// printSummary prints the outcome of a run
func printSummary(report *pipeline.Report) {
	if report == nil {
		return
	}
	if report.Status() == pipeline.RunEmpty {
		fmt.Println("No recent result pages found; nothing new yet.")
		return
	}

	for _, page := range report.Pages {
		switch {
		case page.Err != nil:
			fmt.Printf("✗ %s: %s\n", page.URL, page.Error)
		case page.HasResults:
			fmt.Printf("✓ %s -> %s\n", page.URL, page.Path)
		default:
			fmt.Printf("○ %s -> %s (results not published yet)\n", page.URL, page.Path)
		}
		for sink, msg := range page.SinkErrors {
			fmt.Printf("    ⚠ %s: %s\n", sink, msg)
		}
	}
	fmt.Printf("Run %s: %d written (%d with results), %d failed in %s\n",
		report.Status(), report.Written(), report.WithResults(), report.Failed(), report.Duration().Round(time.Millisecond))
}

// main function handles CLI arguments and routes to appropriate functions
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	verbose := hasFlag("-v") || hasFlag("--verbose")
	errorService = errorService.WithVerbose(verbose)

	command := os.Args[1]
	args := positionalArgs(os.Args[2:])

	switch command {
	case "run":
		if err := runOnce(optionalArg(args)); err != nil {
			fail(err)
		}

	case "serve":
		if err := serve(optionalArg(args)); err != nil {
			fail(err)
		}

	case "validate":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: klresults validate <config.yaml>\n")
			os.Exit(1)
		}
		if err := validateConfig(args[0]); err != nil {
			fail(err)
		}

	case "template":
		template := config.GenerateTemplate()
		if err := config.SaveToWriter(&template, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// printUsage displays help information
func printUsage() {
	fmt.Println("klresults - Kerala lottery result scraper")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  klresults run [config.yaml]        Scrape recent draws once and write note/*.json")
	fmt.Println("  klresults serve [config.yaml]      Scrape on the draw-day schedule with a status server")
	fmt.Println("  klresults validate <config.yaml>   Validate configuration file")
	fmt.Println("  klresults template                 Print a configuration template")
	fmt.Println("  klresults version                  Show version information")
	fmt.Println("  klresults help                     Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose                      Show technical error details")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SCRAPERAPI_KEY                     Enables the proxy fetch strategy")
	fmt.Println("  SCRAPERAPI_ENDPOINT                Overrides the proxy endpoint")
	fmt.Println("  KLRESULTS_OUTPUT_DIR               Overrides output.dir")
}

// printVersion displays version information
func printVersion() {
	fmt.Printf("klresults %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
