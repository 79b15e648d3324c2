// internal/scraper/client_test.go
package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient() *HTTPClient {
	return NewHTTPClient(ClientConfig{
		Timeout:   5 * time.Second,
		Headers:   map[string]string{"Referer": "https://www.kllotteryresult.com/"},
		RateLimit: 1000,
		RateBurst: 100,
	})
}

func TestHTTPClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Referer") != "https://www.kllotteryresult.com/" {
			t.Errorf("unexpected Referer %q", r.Header.Get("Referer"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	body, err := newTestClient().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if body != "<html><body>ok</body></html>" {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPClient_Get_DecodesCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("caf\xe9"))
	}))
	defer server.Close()

	body, err := newTestClient().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if body != "café" {
		t.Errorf("body = %q, want café", body)
	}
}

func TestHTTPClient_Get_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", se.StatusCode)
	}
	if !IsRetryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestHTTPClient_Get_InvalidURL(t *testing.T) {
	if _, err := newTestClient().Get(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"forbidden", &StatusError{StatusCode: 403}, true},
		{"too many requests", &StatusError{StatusCode: 429}, true},
		{"server error", &StatusError{StatusCode: 500}, true},
		{"cloudflare", &StatusError{StatusCode: 522}, true},
		{"not found", &StatusError{StatusCode: 404}, false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("parse failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := newTestClient().Get(context.Background(), addr)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsRetryable(err) {
		t.Errorf("connection errors should be retryable: %v", err)
	}
}

func TestProxyAndTextProxyURLs(t *testing.T) {
	p := &ProxyStrategy{APIKey: "KEY"}
	got := p.URL("https://www.kllotteryresult.com/kerala-lottery-result-SS-485/")
	want := "http://api.scraperapi.com?api_key=KEY&url=https%3A%2F%2Fwww.kllotteryresult.com%2Fkerala-lottery-result-SS-485%2F"
	if got != want {
		t.Errorf("proxy URL = %q, want %q", got, want)
	}

	tp := &TextProxyStrategy{}
	got = tp.URL("https://www.kllotteryresult.com/")
	if got != "https://r.jina.ai/http://www.kllotteryresult.com/" {
		t.Errorf("text proxy URL = %q", got)
	}
}
