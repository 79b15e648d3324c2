// internal/schedule/scheduler.go
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/valpere/klresults/internal/utils"
)

// DefaultSpecs fire around the daily draw publication time.
var DefaultSpecs = []string{
	"15 15 * * *",
	"30 15 * * *",
	"45 15 * * *",
	"15 16 * * *",
	"30 16 * * *",
}

// Job is one scrape run.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron and serializes runs: a tick or trigger that
// arrives while a run is in progress is skipped.
type Scheduler struct {
	cron   *cron.Cron
	specs  []string
	job    Job
	logger utils.Logger

	mu      sync.Mutex // held for the duration of a run
	ctx     context.Context
	wg      sync.WaitGroup
	stateMu sync.RWMutex
	state   State
}

// State describes scheduler activity.
type State struct {
	Running   bool      `json:"running"`
	LastStart time.Time `json:"last_start,omitempty"`
	LastEnd   time.Time `json:"last_end,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
	Skipped   int       `json:"skipped"`
	Next      time.Time `json:"next,omitempty"`
}

// New creates a scheduler evaluating specs in loc. Empty specs mean
// DefaultSpecs.
func New(specs []string, loc *time.Location, job Job, logger utils.Logger) (*Scheduler, error) {
	if len(specs) == 0 {
		specs = DefaultSpecs
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		specs:  specs,
		job:    job,
		logger: logger,
		ctx:    context.Background(),
	}
	for _, spec := range specs {
		if _, err := s.cron.AddFunc(spec, func() { s.TryRun(s.ctx) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}
	return s, nil
}

// Start starts the cron loop and runs the job once immediately so results
// are refreshed without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Infof("scheduler started with %d specs", len(s.specs))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.TryRun(ctx)
	}()
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// TryRun runs the job unless another run is in progress. It reports
// whether the job ran.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		s.stateMu.Lock()
		s.state.Skipped++
		s.stateMu.Unlock()
		s.logger.Warn("previous run still in progress; skipping")
		return false
	}
	defer s.mu.Unlock()

	s.stateMu.Lock()
	s.state.Running = true
	s.state.LastStart = time.Now()
	s.stateMu.Unlock()

	err := s.job(ctx)

	s.stateMu.Lock()
	s.state.Running = false
	s.state.LastEnd = time.Now()
	s.state.Runs++
	s.state.LastError = ""
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.stateMu.Unlock()

	if err != nil {
		s.logger.Errorf("scheduled run failed: %v", err)
	}
	return true
}

// TriggerRun starts a run in the background. It returns false when a run
// is already in progress.
func (s *Scheduler) TriggerRun() bool {
	if s.Busy() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.TryRun(s.ctx)
	}()
	return true
}

// Busy reports whether a run is in progress.
func (s *Scheduler) Busy() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Running
}

// State returns a snapshot of scheduler activity.
func (s *Scheduler) State() State {
	s.stateMu.RLock()
	st := s.state
	s.stateMu.RUnlock()

	for _, e := range s.cron.Entries() {
		if st.Next.IsZero() || (!e.Next.IsZero() && e.Next.Before(st.Next)) {
			st.Next = e.Next
		}
	}
	return st
}
