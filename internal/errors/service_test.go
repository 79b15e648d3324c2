// internal/errors/service_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/valpere/klresults/internal/output"
	"github.com/valpere/klresults/internal/scraper"
)

func TestGetExitCode(t *testing.T) {
	fetchErr := &scraper.FetchError{URL: "https://www.kllotteryresult.com/", Attempts: 4, Err: stderrors.New("HTTP 403")}
	writeErr := &output.WriteError{Path: "note/latest.json", Err: stderrors.New("permission denied")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("klresults.yaml", stderrors.New("bad")), ExitConfig},
		{"wrapped fetch", fmt.Errorf("listing: %w", fetchErr), ExitNetwork},
		{"write", fmt.Errorf("page: %w", writeErr), ExitOutput},
		{"yaml text", stderrors.New("failed to parse YAML configuration"), ExitConfig},
		{"timeout text", stderrors.New("i/o timeout"), ExitNetwork},
		{"other", stderrors.New("boom"), ExitGeneral},
	}

	s := NewService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewConfigErrorNil(t *testing.T) {
	if NewConfigError("x", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestGetUserFriendlyError(t *testing.T) {
	s := NewService()

	title, message, suggestions := s.GetUserFriendlyError(&scraper.FetchError{URL: "https://x/", Err: stderrors.New("403")})
	if title != "Site Unreachable" || !strings.Contains(message, "https://x/") || len(suggestions) == 0 {
		t.Errorf("unexpected fetch message %q %q %v", title, message, suggestions)
	}

	title, _, _ = s.GetUserFriendlyError(NewConfigError("", stderrors.New("failed to parse YAML configuration")))
	if title != "Configuration Error" {
		t.Errorf("title = %q", title)
	}

	if title, _, _ := s.GetUserFriendlyError(nil); title != "" {
		t.Errorf("nil error title = %q", title)
	}
}

func TestFormatErrorForCLI(t *testing.T) {
	err := &output.WriteError{Path: "note/x.json", Err: stderrors.New("read-only file system")}

	quiet := NewService().FormatErrorForCLI(err)
	if !strings.Contains(quiet, "Output Error") || strings.Contains(quiet, "Technical details") {
		t.Errorf("unexpected output:\n%s", quiet)
	}

	verbose := NewService().WithVerbose(true).FormatErrorForCLI(err)
	if !strings.Contains(verbose, "read-only file system") {
		t.Errorf("verbose output lacks details:\n%s", verbose)
	}
}
