// internal/scraper/browser.go
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserConfig configures the headless browser strategy.
type BrowserConfig struct {
	Headless    bool
	Timeout     time.Duration
	UserAgent   string
	UserDataDir string
	// WaitDelay gives challenge pages time to redirect to the real content.
	WaitDelay time.Duration
}

// BrowserStrategy renders the page in headless Chrome and returns the
// resulting HTML. It is the last resort for pages behind a script challenge.
type BrowserStrategy struct {
	config BrowserConfig
}

// NewBrowserStrategy creates a browser strategy.
func NewBrowserStrategy(config BrowserConfig) *BrowserStrategy {
	if config.Timeout == 0 {
		config.Timeout = 45 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &BrowserStrategy{config: config}
}

func (s *BrowserStrategy) Name() string { return "browser" }

// Fetch starts a browser, navigates to target and returns the page HTML.
func (s *BrowserStrategy) Fetch(ctx context.Context, target string) (string, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.UserAgent(s.config.UserAgent),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
	if s.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if s.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.config.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, s.config.Timeout)
	defer cancel()

	tasks := []chromedp.Action{
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
	}
	if s.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(s.config.WaitDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))
	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return "", fmt.Errorf("browser fetch failed: %w", err)
	}
	return html, nil
}
