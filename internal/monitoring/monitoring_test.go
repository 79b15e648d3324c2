// internal/monitoring/monitoring_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsManager(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.ObserveFetch("direct", "retryable", 200*time.Millisecond)
	mm.ObserveFetch("direct", "retryable", 300*time.Millisecond)
	mm.ObserveFetch("proxy", "success", time.Second)
	mm.ObserveWrite("file", "success", time.Millisecond)
	mm.RecordPage("written", false)
	mm.RecordPage("written", true)
	mm.RecordPage("failed", false)
	mm.RecordDiscovery(4)

	if got := testutil.ToFloat64(mm.fetchAttempts.WithLabelValues("direct", "retryable")); got != 2 {
		t.Errorf("direct retryable = %v", got)
	}
	if got := testutil.ToFloat64(mm.fetchAttempts.WithLabelValues("proxy", "success")); got != 1 {
		t.Errorf("proxy success = %v", got)
	}
	if got := testutil.ToFloat64(mm.placeholderRecords); got != 1 {
		t.Errorf("placeholder records = %v", got)
	}
	if got := testutil.ToFloat64(mm.pagesProcessed.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed pages = %v", got)
	}
	if got := testutil.ToFloat64(mm.candidatesFound); got != 4 {
		t.Errorf("candidates = %v", got)
	}

	mm.RunStarted()
	finished := time.Unix(1758355200, 0)
	mm.RunFinished("success", 5*time.Second, finished)
	if got := testutil.ToFloat64(mm.lastRunTime); got != 1758355200 {
		t.Errorf("last run = %v", got)
	}
	if got := testutil.ToFloat64(mm.runsInFlight); got != 0 {
		t.Errorf("in flight = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Labels: map[string]string{"site": "kl"}})
	mm.ObserveWrite("file", "success", time.Millisecond)

	path := filepath.Join(t.TempDir(), "klresults.prom")
	if err := mm.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `klresults_writes_total{outcome="success",sink="file",site="kl"} 1`) {
		t.Errorf("unexpected textfile:\n%s", data)
	}
}

func TestHealthManager(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		err      error
		want     HealthStatus
	}{
		{"all healthy", true, nil, HealthStatusHealthy},
		{"non-critical failure", false, errors.New("down"), HealthStatusDegraded},
		{"critical failure", true, errors.New("down"), HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager(time.Second)
			hm.RegisterCheck("output", false, DirectoryCheck(t.TempDir()))
			hm.RegisterCheck("sink", tt.critical, func(context.Context) error { return tt.err })

			health := hm.Check(context.Background())
			if health.Status != tt.want {
				t.Errorf("status = %s, want %s", health.Status, tt.want)
			}
			if len(health.Checks) != 2 || health.Checks[0].Name != "output" {
				t.Errorf("checks = %+v", health.Checks)
			}
		})
	}
}

type fakeController struct {
	busy     bool
	triggers int
}

func (c *fakeController) TriggerRun() bool {
	if c.busy {
		return false
	}
	c.triggers++
	return true
}

func (c *fakeController) Status() any {
	return map[string]int{"triggers": c.triggers}
}

func TestServerRoutes(t *testing.T) {
	control := &fakeController{}
	mm := NewMetricsManager(MetricsConfig{})
	mm.RecordDiscovery(2)
	s := NewServer(ServerConfig{Token: "secret"}, mm, nil, control, nil)
	server := httptest.NewServer(s.Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body := new(strings.Builder)
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(body.String(), "klresults_candidates_discovered 2") {
		t.Errorf("metrics output missing gauge:\n%s", body)
	}

	post := func(token string) int {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/run", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(""); code != http.StatusUnauthorized {
		t.Errorf("unauthenticated run = %d", code)
	}
	if code := post("secret"); code != http.StatusAccepted {
		t.Errorf("run = %d", code)
	}
	control.busy = true
	if code := post("secret"); code != http.StatusConflict {
		t.Errorf("busy run = %d", code)
	}

	resp, err = http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["triggers"] != 1 {
		t.Errorf("status = %v", status)
	}
}
