// internal/scraper/strategies.go
package scraper

import (
	"context"
	"net/url"
	"strings"
)

// Getter is the subset of HTTPClient used by the HTTP strategies.
type Getter interface {
	Get(ctx context.Context, targetURL string) (string, error)
}

// DirectStrategy requests the page itself.
type DirectStrategy struct {
	Client Getter
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Fetch(ctx context.Context, target string) (string, error) {
	return s.Client.Get(ctx, target)
}

// DefaultProxyEndpoint is the ScraperAPI-compatible endpoint used when none is configured.
const DefaultProxyEndpoint = "http://api.scraperapi.com"

// ProxyStrategy routes the request through a scraping proxy of the form
// {endpoint}?api_key={key}&url={target}.
type ProxyStrategy struct {
	Client   Getter
	Endpoint string
	APIKey   string
}

func (s *ProxyStrategy) Name() string { return "proxy" }

func (s *ProxyStrategy) Fetch(ctx context.Context, target string) (string, error) {
	return s.Client.Get(ctx, s.URL(target))
}

// URL builds the proxied URL for target.
func (s *ProxyStrategy) URL(target string) string {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultProxyEndpoint
	}
	q := url.Values{}
	q.Set("api_key", s.APIKey)
	q.Set("url", target)
	return endpoint + "?" + q.Encode()
}

// DefaultTextProxyPrefix is prepended to the scheme-less target URL.
const DefaultTextProxyPrefix = "https://r.jina.ai/http://"

// TextProxyStrategy fetches a rendered text version of the page through a
// reader proxy. The result is plain text, not HTML.
type TextProxyStrategy struct {
	Client Getter
	Prefix string
}

func (s *TextProxyStrategy) Name() string { return "text_proxy" }

func (s *TextProxyStrategy) Fetch(ctx context.Context, target string) (string, error) {
	return s.Client.Get(ctx, s.URL(target))
}

// URL builds the proxied URL for target.
func (s *TextProxyStrategy) URL(target string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultTextProxyPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + stripScheme(target)
}
