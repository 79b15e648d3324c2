// internal/schedule/scheduler_test.go
package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New([]string{"15 15 * * *", "not a spec"}, nil, func(context.Context) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestTryRunSkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	s, err := New(nil, nil, func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan bool)
	go func() { done <- s.TryRun(context.Background()) }()
	<-started

	if s.TryRun(context.Background()) {
		t.Error("overlapping run should be skipped")
	}
	if !s.Busy() {
		t.Error("scheduler should report busy")
	}
	if s.TriggerRun() {
		t.Error("trigger should be refused while busy")
	}

	close(release)
	if !<-done {
		t.Error("first run should have run")
	}

	st := s.State()
	if st.Runs != 1 || st.Skipped != 1 || st.Running {
		t.Errorf("unexpected state %+v", st)
	}
	if runs.Load() != 1 {
		t.Errorf("job ran %d times", runs.Load())
	}
}

func TestTryRunRecordsError(t *testing.T) {
	s, err := New(nil, nil, func(context.Context) error { return errors.New("site down") }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TryRun(context.Background()) {
		t.Fatal("run should have happened")
	}
	if s.State().LastError != "site down" {
		t.Errorf("LastError = %q", s.State().LastError)
	}
}

func TestStartRunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	ist := time.FixedZone("IST", 5*3600+1800)
	s, err := New(nil, ist, func(context.Context) error {
		ran <- struct{}{}
		return nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("startup run did not happen")
	}
	s.Stop()

	next := s.State().Next
	if next.IsZero() {
		t.Fatal("expected a next run time")
	}
	h, m := next.In(ist).Hour(), next.In(ist).Minute()
	if !(h == 15 && (m == 15 || m == 30 || m == 45)) && !(h == 16 && (m == 15 || m == 30)) {
		t.Errorf("next run at %02d:%02d IST", h, m)
	}
}
