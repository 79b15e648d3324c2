// internal/monitoring/health.go
package monitoring

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// CheckFunc reports the health of one component
type CheckFunc func(ctx context.Context) error

// HealthCheck is the last result of a registered check
type HealthCheck struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// SystemHealth is the aggregated health response
type SystemHealth struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

type registeredCheck struct {
	name     string
	critical bool
	fn       CheckFunc
}

// HealthManager runs registered checks on demand
type HealthManager struct {
	mu      sync.RWMutex
	checks  []registeredCheck
	timeout time.Duration
	started time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthManager{timeout: timeout, started: time.Now()}
}

// RegisterCheck registers a named check. A failing critical check makes the
// whole system unhealthy; any other failure degrades it.
func (hm *HealthManager) RegisterCheck(name string, critical bool, fn CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks = append(hm.checks, registeredCheck{name: name, critical: critical, fn: fn})
}

// Check runs every check and aggregates the results
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := append([]registeredCheck(nil), hm.checks...)
	hm.mu.RUnlock()

	health := SystemHealth{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
	}

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
		start := time.Now()
		err := c.fn(checkCtx)
		cancel()

		result := HealthCheck{
			Name:     c.name,
			Status:   HealthStatusHealthy,
			Critical: c.critical,
			Duration: time.Since(start),
		}
		if err != nil {
			result.Status = HealthStatusUnhealthy
			result.Error = err.Error()
			if c.critical {
				health.Status = HealthStatusUnhealthy
			} else if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		}
		health.Checks = append(health.Checks, result)
	}

	sort.Slice(health.Checks, func(i, j int) bool { return health.Checks[i].Name < health.Checks[j].Name })
	return health
}

// DirectoryCheck verifies that dir exists and accepts new files
func DirectoryCheck(dir string) CheckFunc {
	return func(context.Context) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".healthcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
