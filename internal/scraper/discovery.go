// internal/scraper/discovery.go
package scraper

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/klresults/internal/extract"
	"github.com/valpere/klresults/internal/utils"
	"github.com/valpere/klresults/pkg/types"
)

// PageFetcher returns the body of a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// DateCache remembers the draw date resolved for a candidate URL so that
// known candidates are not fetched again.
type DateCache interface {
	GetDate(ctx context.Context, url string) (time.Time, bool)
	SetDate(ctx context.Context, url string, date time.Time)
}

// DiscoveryConfig configures a Discoverer.
type DiscoveryConfig struct {
	BaseURL    string // site origin, e.g. https://www.kllotteryresult.com
	ListingURL string
	LinkSlug   string
	Lookback   time.Duration
	Location   *time.Location
}

// Discoverer finds the most recent result pages linked from the listing page.
type Discoverer struct {
	fetcher PageFetcher
	cache   DateCache
	config  DiscoveryConfig
	now     func() time.Time
	logger  utils.Logger

	absLinkRe *regexp.Regexp
	relLinkRe *regexp.Regexp
}

// NewDiscoverer creates a discoverer. cache may be nil.
func NewDiscoverer(fetcher PageFetcher, cache DateCache, config DiscoveryConfig, logger utils.Logger) *Discoverer {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.kllotteryresult.com"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ListingURL == "" {
		config.ListingURL = config.BaseURL + "/"
	}
	if config.LinkSlug == "" {
		config.LinkSlug = "kerala-lottery-result"
	}
	if config.Lookback == 0 {
		config.Lookback = 30 * 24 * time.Hour
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	slug := regexp.QuoteMeta(strings.ToLower(config.LinkSlug))
	origin := regexp.QuoteMeta(config.BaseURL)
	if u, err := url.Parse(config.BaseURL); err == nil && u.Host != "" {
		origin = `https?://` + regexp.QuoteMeta(u.Host)
	}
	return &Discoverer{
		fetcher:   fetcher,
		cache:     cache,
		config:    config,
		now:       time.Now,
		logger:    logger,
		absLinkRe: regexp.MustCompile(`(?i)` + origin + `/[a-z0-9-]*` + slug + `[a-z0-9-]*/?`),
		relLinkRe: regexp.MustCompile(`(?i)/[a-z0-9-]*` + slug + `[a-z0-9-]*/?`),
	}
}

// SetClock replaces time.Now.
func (d *Discoverer) SetClock(now func() time.Time) {
	d.now = now
}

// DiscoverRecent returns up to maxCount result page URLs, newest draw first.
func (d *Discoverer) DiscoverRecent(ctx context.Context, maxCount int) []string {
	links := d.Discover(ctx, maxCount)
	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	return urls
}

// Discover returns up to maxCount dated candidates, newest first. Candidates
// dated after today are dropped; those older than the lookback window are
// kept. A listing fetch failure yields an empty result.
func (d *Discoverer) Discover(ctx context.Context, maxCount int) []types.CandidateLink {
	listing, err := d.fetcher.Fetch(ctx, d.config.ListingURL)
	if err != nil {
		d.logger.Errorf("failed to fetch listing %s: %v", d.config.ListingURL, err)
		return nil
	}

	candidates := d.Candidates(listing)
	d.logger.Infof("listing links: candidates=%d", len(candidates))
	for i, c := range candidates {
		if i == 5 {
			break
		}
		d.logger.Debugf("candidate: %s", c)
	}

	today := extract.CivilDate(d.now(), d.config.Location)
	horizon := today.Add(-d.config.Lookback)

	var dated []types.CandidateLink
	for _, u := range candidates {
		if ctx.Err() != nil {
			break
		}
		date, ok := d.resolveDate(ctx, u)
		if !ok {
			continue
		}
		log := d.logger.WithField("url", u)
		switch {
		case date.After(today):
			log.Infof("skip: future date %s", extract.FormatDate(date))
			continue
		case date.Before(horizon):
			log.Debugf("older than lookback window: %s", extract.FormatDate(date))
		}
		dated = append(dated, types.CandidateLink{URL: u, Date: date})
	}

	sort.SliceStable(dated, func(i, j int) bool { return dated[i].Date.After(dated[j].Date) })
	if maxCount >= 0 && len(dated) > maxCount {
		dated = dated[:maxCount]
	}
	return dated
}

// Candidates extracts the deduplicated, lexicographically sorted result
// URLs from a listing page. Anchors are preferred; the raw text is scanned
// only when no anchor matches.
func (d *Discoverer) Candidates(listing string) []string {
	set := make(map[string]struct{})
	slug := strings.ToLower(d.config.LinkSlug)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(listing)); err == nil {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			if strings.Contains(strings.ToLower(href), slug) {
				set[d.absolute(href)] = struct{}{}
			}
		})
	}

	if len(set) == 0 {
		for _, m := range d.absLinkRe.FindAllString(listing, -1) {
			set[m] = struct{}{}
		}
		for _, m := range d.relLinkRe.FindAllString(listing, -1) {
			set[d.config.BaseURL+m] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (d *Discoverer) resolveDate(ctx context.Context, u string) (time.Time, bool) {
	if d.cache != nil {
		if date, ok := d.cache.GetDate(ctx, u); ok {
			return date, true
		}
	}

	body, err := d.fetcher.Fetch(ctx, u)
	if err != nil {
		d.logger.WithField("url", u).Warnf("skip: fetch error: %v", err)
		return time.Time{}, false
	}
	date, ok := extract.ExtractDate(body)
	if !ok {
		d.logger.WithField("url", u).Infof("skip: no date found")
		return time.Time{}, false
	}

	if d.cache != nil {
		d.cache.SetDate(ctx, u, date)
	}
	return date, true
}

func (d *Discoverer) absolute(href string) string {
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return d.config.BaseURL + href
	}
	base, err := url.Parse(d.config.BaseURL + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
