// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/klresults/internal/extract"
	"github.com/valpere/klresults/internal/output"
	"github.com/valpere/klresults/internal/utils"
	"github.com/valpere/klresults/pkg/types"
)

// Discoverer returns the result page URLs to process, newest first.
type Discoverer interface {
	DiscoverRecent(ctx context.Context, maxCount int) []string
}

// PageFetcher returns the body of a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// PageParser turns a page body into a record.
type PageParser interface {
	ParsePage(body, sourceURL string) (*types.DrawRecord, extract.PrizeSource, error)
}

// RecordWriter persists a record.
type RecordWriter interface {
	Write(ctx context.Context, rec *types.DrawRecord) (output.Result, error)
}

// Observer is told about run progress.
type Observer interface {
	RecordDiscovery(n int)
	RecordPage(status string, hasResults bool)
	RunStarted()
	RunFinished(status string, elapsed time.Duration, finished time.Time)
}

// Runner executes one scrape run: discover, then fetch, parse and write
// every page in order. A failing page is recorded and skipped.
type Runner struct {
	discoverer Discoverer
	fetcher    PageFetcher
	parser     PageParser
	writer     RecordWriter
	logger     utils.Logger
	observer   Observer
	now        func() time.Time
	newID      func() string

	maxResults atomic.Int64

	mu   sync.RWMutex
	last *Report
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithObserver reports progress to o.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(newID func() string) RunnerOption {
	return func(r *Runner) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRunner creates a runner processing at most maxResults pages per run.
func NewRunner(d Discoverer, f PageFetcher, p PageParser, w RecordWriter, maxResults int, logger utils.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	r := &Runner{
		discoverer: d,
		fetcher:    f,
		parser:     p,
		writer:     w,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	r.SetMaxResults(maxResults)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetMaxResults changes the page limit for subsequent runs.
func (r *Runner) SetMaxResults(n int) {
	if n <= 0 {
		n = 10
	}
	r.maxResults.Store(int64(n))
}

// MaxResults returns the current page limit.
func (r *Runner) MaxResults() int {
	return int(r.maxResults.Load())
}

// LastReport returns the report of the most recent run, or nil.
func (r *Runner) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run performs one run. The returned error is non-nil only when ctx was
// cancelled; page failures are reported in the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: r.newID(), StartedAt: r.now()}
	logger := r.logger.WithField("run_id", report.RunID)
	if r.observer != nil {
		r.observer.RunStarted()
	}

	defer func() {
		report.FinishedAt = r.now()
		if r.observer != nil {
			r.observer.RunFinished(report.Status(), report.Duration(), report.FinishedAt)
		}
		r.mu.Lock()
		r.last = report
		r.mu.Unlock()
	}()

	logger.Infof("run started (max %d results)", r.MaxResults())

	report.Discovered = r.discoverer.DiscoverRecent(ctx, r.MaxResults())
	if r.observer != nil {
		r.observer.RecordDiscovery(len(report.Discovered))
	}
	if len(report.Discovered) == 0 {
		logger.Warn("no result pages discovered; nothing to update")
		return report, ctx.Err()
	}
	logger.Infof("discovered %d result pages", len(report.Discovered))

	for _, u := range report.Discovered {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			logger.Warnf("run cancelled: %v", err)
			return report, err
		}
		page := r.processPage(ctx, logger.WithField("url", u), u)
		report.Pages = append(report.Pages, page)
		if r.observer != nil {
			r.observer.RecordPage(string(page.Status), page.HasResults)
		}
	}

	logger.WithFields(map[string]interface{}{
		"written":      report.Written(),
		"failed":       report.Failed(),
		"with_results": report.WithResults(),
	}).Infof("run finished: %s", report.Status())

	return report, nil
}

func (r *Runner) processPage(ctx context.Context, logger utils.Logger, u string) (page PageResult) {
	start := time.Now()
	page = PageResult{URL: u, Status: types.PageFailed}
	defer func() { page.Duration = time.Since(start) }()

	body, err := r.fetcher.Fetch(ctx, u)
	if err != nil {
		page.Err = err
		page.Error = err.Error()
		logger.Errorf("failed to fetch result page: %v", err)
		return page
	}

	rec, source, err := r.parser.ParsePage(body, u)
	if err != nil {
		page.Err = err
		page.Error = err.Error()
		logger.Errorf("failed to parse result page: %v", err)
		return page
	}
	page.Source = string(source)
	page.HasResults = rec.HasActualResults()
	logger.Debugf("parsed %s prizes: %v", source, rec.Prizes.Keys())

	res, err := r.writer.Write(ctx, rec)
	if err != nil {
		page.Err = err
		page.Error = err.Error()
		logger.Errorf("failed to write record: %v", err)
		return page
	}

	page.Status = types.PageWritten
	page.FileName = res.FileName
	page.Path = res.Path
	for name, sinkErr := range res.SinkErrors {
		if page.SinkErrors == nil {
			page.SinkErrors = make(map[string]string)
		}
		page.SinkErrors[name] = sinkErr.Error()
	}

	if page.HasResults {
		logger.Infof("saved %s", res.FileName)
	} else {
		logger.Infof("saved %s (results not published yet)", res.FileName)
	}
	return page
}
