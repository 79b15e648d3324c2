// internal/scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/klresults/internal/utils"
)

// Strategy is one way of obtaining a page body.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target string) (string, error)
}

// FetchObserver receives one call per strategy attempt.
type FetchObserver interface {
	ObserveFetch(strategy, outcome string, elapsed time.Duration)
}

// Outcomes reported to a FetchObserver.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeFailed    = "failed"
)

// FetchError is returned when every strategy failed for a URL.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher runs the fetch cascade. Retried strategies (direct, then the
// proxy when configured) share one retry loop with linear backoff; when
// that loop gives up, fallback strategies are tried once each in order.
type Fetcher struct {
	retried    []Strategy
	fallbacks  []Strategy
	maxRetries int
	backoff    func(attempt int) time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	observer   FetchObserver
	logger     utils.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRetried appends strategies to the retried tier.
func WithRetried(s ...Strategy) FetcherOption {
	return func(f *Fetcher) { f.retried = append(f.retried, s...) }
}

// WithFallbacks appends strategies to the fallback tier.
func WithFallbacks(s ...Strategy) FetcherOption {
	return func(f *Fetcher) { f.fallbacks = append(f.fallbacks, s...) }
}

// WithMaxRetries sets the number of attempts of the retried tier.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoff sets the delay after a failed attempt (1-based).
func WithBackoff(fn func(attempt int) time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if fn != nil {
			f.backoff = fn
		}
	}
}

// WithSleep replaces the context-aware sleep (tests).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) {
		if fn != nil {
			f.sleep = fn
		}
	}
}

// WithObserver reports every attempt to o.
func WithObserver(o FetchObserver) FetcherOption {
	return func(f *Fetcher) { f.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l utils.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a fetcher. Without options it has no strategies and
// every fetch fails.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		maxRetries: 3,
		backoff:    LinearBackoff(2*time.Second, 6*time.Second),
		sleep:      sleepContext,
		logger:     utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LinearBackoff returns min(step*attempt, max).
func LinearBackoff(step, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := step * time.Duration(attempt)
		if d > max {
			return max
		}
		return d
	}
}

// Fetch returns the body of target, or a *FetchError once every strategy failed.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	log := f.logger.WithField("url", target)
	attempts := 0
	var lastErr error

	if len(f.retried) > 0 {
	retry:
		for attempt := 1; attempt <= f.maxRetries; attempt++ {
			for _, s := range f.retried {
				attempts++
				body, err := f.try(ctx, s, target)
				if err == nil {
					return body, nil
				}
				lastErr = err
				if ctx.Err() != nil {
					return "", &FetchError{URL: target, Attempts: attempts, Err: ctx.Err()}
				}
				if !IsRetryable(err) {
					log.Debugf("%s: %v, not retrying", s.Name(), err)
					break retry
				}
				log.Debugf("%s attempt %d/%d: %v", s.Name(), attempt, f.maxRetries, err)
			}
			if attempt < f.maxRetries {
				if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
					return "", &FetchError{URL: target, Attempts: attempts, Err: err}
				}
			}
		}
	}

	for _, s := range f.fallbacks {
		attempts++
		log.Infof("falling back to %s", s.Name())
		body, err := f.try(ctx, s, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Warnf("%s failed: %v", s.Name(), err)
	}

	if lastErr == nil {
		lastErr = errors.New("no fetch strategy configured")
	}
	return "", &FetchError{URL: target, Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) try(ctx context.Context, s Strategy, target string) (string, error) {
	start := time.Now()
	body, err := s.Fetch(ctx, target)
	if f.observer != nil {
		outcome := OutcomeSuccess
		switch {
		case err != nil && IsRetryable(err):
			outcome = OutcomeRetryable
		case err != nil:
			outcome = OutcomeFailed
		}
		f.observer.ObserveFetch(s.Name(), outcome, time.Since(start))
	}
	return body, err
}

// Strategies returns the strategy names in cascade order.
func (f *Fetcher) Strategies() []string {
	names := make([]string, 0, len(f.retried)+len(f.fallbacks))
	for _, s := range f.retried {
		names = append(names, s.Name())
	}
	for _, s := range f.fallbacks {
		names = append(names, s.Name())
	}
	return names
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// stripScheme removes a leading http:// or https://.
func stripScheme(target string) string {
	target = strings.TrimPrefix(target, "https://")
	return strings.TrimPrefix(target, "http://")
}
