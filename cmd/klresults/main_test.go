// cmd/klresults/main_test.go
package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/valpere/klresults/internal/config"
	"github.com/valpere/klresults/internal/errors"
	"github.com/valpere/klresults/internal/pipeline"
	"github.com/valpere/klresults/internal/scraper"
	"github.com/valpere/klresults/internal/utils"
	"github.com/valpere/klresults/pkg/types"
)

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2025-09-16"
	gitCommit = "abc123"

	output := captureOutput(func() {
		printVersion()
	})

	for _, want := range []string{"test-version", "2025-09-16", "abc123"} {
		if !strings.Contains(output, want) {
			t.Errorf("version output should contain %q, got: %s", want, output)
		}
	}
}

func TestCLIHelp(t *testing.T) {
	output := captureOutput(func() {
		printUsage()
	})

	commands := []string{"run", "serve", "validate", "template", "version", "help", "SCRAPERAPI_KEY"}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain %q, got: %s", cmd, output)
		}
	}
}

func TestPositionalArgs(t *testing.T) {
	got := positionalArgs([]string{"-v", "klresults.yaml", "--verbose"})
	if len(got) != 1 || got[0] != "klresults.yaml" {
		t.Errorf("positionalArgs() = %v", got)
	}
	if optionalArg(nil) != "" {
		t.Error("optionalArg(nil) should be empty")
	}
}

func TestRunFailure(t *testing.T) {
	fetchErr := &scraper.FetchError{URL: "https://x/kerala-lottery-result-KR-721/", Attempts: 4, Err: stderrors.New("HTTP 403")}

	tests := []struct {
		name     string
		report   *pipeline.Report
		wantErr  bool
		wantCode int
	}{
		{"nil", nil, false, errors.ExitOK},
		{"empty", &pipeline.Report{}, false, errors.ExitOK},
		{"partial", &pipeline.Report{Pages: []pipeline.PageResult{
			{URL: "a", Status: types.PageWritten},
			{URL: "b", Status: types.PageFailed, Error: fetchErr.Error(), Err: fetchErr},
		}}, false, errors.ExitOK},
		{"all failed", &pipeline.Report{Pages: []pipeline.PageResult{
			{URL: "b", Status: types.PageFailed, Error: fetchErr.Error(), Err: fetchErr},
		}}, true, errors.ExitNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runFailure(tt.report)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runFailure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if code := errors.NewService().GetExitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestRunOutcome(t *testing.T) {
	fetchErr := &scraper.FetchError{URL: "https://x/kerala-lottery-result-KR-721/", Attempts: 4, Err: stderrors.New("HTTP 503")}
	allFailed := &pipeline.Report{Pages: []pipeline.PageResult{
		{URL: fetchErr.URL, Status: types.PageFailed, Error: fetchErr.Error(), Err: fetchErr},
	}}

	tests := []struct {
		name     string
		report   *pipeline.Report
		runErr   error
		wantCode int
	}{
		{"all pages failed", allFailed, nil, errors.ExitOK},
		{"nothing discovered", &pipeline.Report{}, nil, errors.ExitOK},
		{"interrupted", allFailed, context.Canceled, errors.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runOutcome(tt.report, tt.runErr, utils.NewNopLogger())
			if code := errors.NewService().GetExitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (err %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestNewAppInstallsTracePropagator(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Output.Dir = t.TempDir()
	cfg.Cache.RedisURL = ""
	cfg.Output.Database.Driver = ""
	cfg.Output.MongoDB.URI = ""
	cfg.Notify.NATSURL = ""

	logger := utils.NewNopLogger().(*utils.ZapLogger)
	app, err := NewApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	fields := strings.Join(otel.GetTextMapPropagator().Fields(), ",")
	if !strings.Contains(fields, "traceparent") {
		t.Errorf("propagator fields = %q, want traceparent", fields)
	}

	if _, ok, err := app.StoredDraws(context.Background()); ok || err != nil {
		t.Errorf("StoredDraws without database = %v, %v", ok, err)
	}
}

func TestServeControlStatus(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, nil, nil, 1, nil)
	control := &serveControl{
		trigger: func() bool { return true },
		state:   func() any { return "idle" },
		runner:  runner,
		stored: func(context.Context) (int, bool, error) {
			return 42, true, nil
		},
	}

	status, ok := control.Status().(map[string]any)
	if !ok {
		t.Fatalf("unexpected status type %T", control.Status())
	}
	if status["stored_draws"] != 42 || status["scheduler"] != "idle" {
		t.Errorf("unexpected status %v", status)
	}
}

func TestPrintSummaryEmptyRun(t *testing.T) {
	output := captureOutput(func() {
		printSummary(&pipeline.Report{})
	})
	if !strings.Contains(output, "nothing new yet") {
		t.Errorf("unexpected summary: %s", output)
	}
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	out := <-outC

	return out
}
