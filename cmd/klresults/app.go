// cmd/klresults/app.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/valpere/klresults/internal/cache"
	"github.com/valpere/klresults/internal/config"
	"github.com/valpere/klresults/internal/extract"
	"github.com/valpere/klresults/internal/monitoring"
	"github.com/valpere/klresults/internal/notify"
	"github.com/valpere/klresults/internal/output"
	"github.com/valpere/klresults/internal/pipeline"
	"github.com/valpere/klresults/internal/scraper"
	"github.com/valpere/klresults/internal/utils"
)

// App holds the wired components of one process.
type App struct {
	cfg     *config.Config
	logger  *utils.ZapLogger
	loc     *time.Location
	metrics *monitoring.MetricsManager
	health  *monitoring.HealthManager
	fetcher *scraper.Fetcher
	manager *output.Manager
	db      *output.DatabaseSink
	runner  *pipeline.Runner
	closers []func() error
}

// NewApp builds the fetch cascade, discovery, parser, writers and runner
// from cfg. Optional sinks that cannot be reached are logged and skipped.
func NewApp(ctx context.Context, cfg *config.Config, logger *utils.ZapLogger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	installPropagator()

	app := &App{
		cfg:    cfg,
		logger: logger,
		loc:    loc,
		metrics: monitoring.NewMetricsManager(monitoring.MetricsConfig{
			Namespace:       cfg.Metrics.Namespace,
			Labels:          cfg.Metrics.Labels,
			EnableGoMetrics: true,
		}),
		health: monitoring.NewHealthManager(5 * time.Second),
	}

	app.fetcher = app.buildFetcher()
	dates := app.buildDateCache(ctx)

	discoverer := scraper.NewDiscoverer(app.fetcher, dates, scraper.DiscoveryConfig{
		BaseURL:    cfg.Site.BaseURL,
		ListingURL: cfg.Site.ListingURL,
		LinkSlug:   cfg.Site.LinkSlug,
		Lookback:   cfg.Discovery.Lookback(),
		Location:   loc,
	}, logger)

	parser := extract.NewParser(extract.WithLocation(loc))

	app.manager = output.NewManager(output.NewJSONWriter(cfg.Output.Dir, cfg.Output.LatestName), logger)
	app.manager.SetObserver(app.metrics)
	app.addSinks(ctx)
	app.closers = append(app.closers, app.manager.Close)
	app.health.RegisterCheck("output_dir", true, monitoring.DirectoryCheck(cfg.Output.Dir))

	app.runner = pipeline.NewRunner(discoverer, app.fetcher, parser, app.manager,
		cfg.Discovery.MaxResults, logger, pipeline.WithObserver(app.metrics))

	return app, nil
}

// installPropagator makes outgoing requests and draw events carry W3C trace
// context and baggage.
func installPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

func (a *App) buildFetcher() *scraper.Fetcher {
	f := a.cfg.Fetch
	limiter := scraper.NewRateLimiter(f.RateLimit, f.RateBurst)

	var agents []string
	if f.UserAgent != "" {
		agents = []string{f.UserAgent}
	}
	direct := scraper.NewHTTPClient(scraper.ClientConfig{
		Timeout: f.Timeout, UserAgents: agents, Headers: f.Headers, Limiter: limiter,
	})
	fallback := scraper.NewHTTPClient(scraper.ClientConfig{
		Timeout: f.FallbackTimeout, UserAgents: agents, Headers: f.Headers, Limiter: limiter,
	})

	retried := []scraper.Strategy{&scraper.DirectStrategy{Client: direct}}
	if f.Proxy.APIKey != "" {
		retried = append(retried, &scraper.ProxyStrategy{Client: direct, Endpoint: f.Proxy.Endpoint, APIKey: f.Proxy.APIKey})
	}

	var fallbacks []scraper.Strategy
	if f.TextProxyEnabled() {
		fallbacks = append(fallbacks, &scraper.TextProxyStrategy{Client: fallback, Prefix: f.TextProxy.Prefix})
	}
	if f.Browser.Enabled {
		fallbacks = append(fallbacks, scraper.NewBrowserStrategy(scraper.BrowserConfig{
			Headless:  f.BrowserHeadless(),
			Timeout:   f.Browser.Timeout,
			UserAgent: f.UserAgent,
			WaitDelay: 2 * time.Second,
		}))
	}

	fetcher := scraper.NewFetcher(
		scraper.WithRetried(retried...),
		scraper.WithFallbacks(fallbacks...),
		scraper.WithMaxRetries(f.MaxRetries),
		scraper.WithBackoff(scraper.LinearBackoff(f.BackoffStep, f.BackoffCap)),
		scraper.WithObserver(a.metrics),
		scraper.WithLogger(a.logger),
	)
	a.logger.Debugf("fetch strategies: %v", fetcher.Strategies())
	return fetcher
}

func (a *App) buildDateCache(ctx context.Context) scraper.DateCache {
	if a.cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisDateCache(ctx, a.cfg.Cache.RedisURL, a.cfg.Cache.TTL, a.logger)
		if err == nil {
			a.closers = append(a.closers, rc.Close)
			a.health.RegisterCheck("redis", false, rc.Ping)
			return rc
		}
		a.logger.Warnf("redis date cache unavailable, using memory: %v", err)
	}
	return cache.NewMemoryDateCache(a.cfg.Cache.TTL)
}

func (a *App) addSinks(ctx context.Context) {
	out := a.cfg.Output

	if out.Database.Driver != "" {
		sink, err := output.NewDatabaseSink(ctx, output.DatabaseOptions{
			Driver: out.Database.Driver, DSN: out.Database.DSN, Table: out.Database.Table,
		})
		if err != nil {
			a.logger.Warnf("database sink disabled: %v", err)
		} else {
			a.db = sink
			a.manager.AddSink(sink)
		}
	}

	if out.MongoDB.URI != "" {
		sink, err := output.NewMongoDBSink(ctx, output.MongoDBOptions{
			ConnectionString: out.MongoDB.URI, Database: out.MongoDB.Database, Collection: out.MongoDB.Collection,
		})
		if err != nil {
			a.logger.Warnf("mongodb sink disabled: %v", err)
		} else {
			a.manager.AddSink(sink)
		}
	}

	if a.cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(a.cfg.Notify.NATSURL, a.cfg.Notify.Subject)
		if err != nil {
			a.logger.Warnf("draw events disabled: %v", err)
		} else {
			a.manager.AddSink(pub)
		}
	}

	if sinks := a.manager.Sinks(); len(sinks) > 0 {
		a.logger.Infof("secondary sinks: %v", sinks)
	}
}

// RunOnce performs one scrape run and exports metrics when a textfile is
// configured.
func (a *App) RunOnce(ctx context.Context) (*pipeline.Report, error) {
	report, err := a.runner.Run(ctx)
	if path := a.cfg.Metrics.Textfile; path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			a.logger.Warnf("failed to write metrics textfile: %v", werr)
		}
	}
	return report, err
}

// Reload applies the settings that can change without a restart.
func (a *App) Reload(cfg *config.Config) {
	if err := a.logger.SetLevel(cfg.Log.Level); err != nil {
		a.logger.Warnf("ignoring log level: %v", err)
	}
	a.runner.SetMaxResults(cfg.Discovery.MaxResults)
	a.logger.Infof("applied configuration: log level %s, max results %d", cfg.Log.Level, cfg.Discovery.MaxResults)
}

// Close releases every resource in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// StoredDraws counts the draws in the database sink. It reports false when
// no database is configured.
func (a *App) StoredDraws(ctx context.Context) (int, bool, error) {
	if a.db == nil {
		return 0, false, nil
	}
	n, err := a.db.Count(ctx)
	return n, true, err
}

// runFailure turns a report in which every page failed into an error. serve
// records it as the scheduler's last error.
func runFailure(report *pipeline.Report) error {
	if report == nil || report.Status() != pipeline.RunFailed {
		return nil
	}
	return fmt.Errorf("all %d result pages failed: %w", len(report.Pages), report.Pages[0].Err)
}

// runOutcome decides the result of the run command. Only an interrupted run
// is an error; failed pages are reported in the summary and existing records
// stay available to downstream generators.
func runOutcome(report *pipeline.Report, runErr error, logger utils.Logger) error {
	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if err := runFailure(report); err != nil {
		logger.Warnf("%v; existing records are unchanged", err)
	}
	return nil
}

// serveControl exposes the scheduler and last report to the status server.
type serveControl struct {
	trigger func() bool
	state   func() any
	runner  *pipeline.Runner
	// stored, when set, adds the database draw count to the status.
	stored func(ctx context.Context) (int, bool, error)
}

func (c *serveControl) TriggerRun() bool { return c.trigger() }

func (c *serveControl) Status() any {
	status := map[string]any{
		"scheduler":   c.state(),
		"last_report": c.runner.LastReport(),
	}
	if c.stored != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, ok, err := c.stored(ctx); err != nil {
			status["stored_draws_error"] = err.Error()
		} else if ok {
			status["stored_draws"] = n
		}
	}
	return status
}
