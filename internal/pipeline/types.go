// internal/pipeline/types.go
package pipeline

import (
	"time"

	"github.com/valpere/klresults/pkg/types"
)

// Run statuses reported to observers and in Report.Status.
const (
	RunSuccess = "success" // every discovered page was written
	RunPartial = "partial" // some pages failed
	RunFailed  = "failed"  // every page failed
	RunEmpty   = "empty"   // nothing was discovered
)

// PageResult is the outcome of one result page
type PageResult struct {
	URL        string            `json:"url"`
	Status     types.PageStatus  `json:"status"`
	FileName   string            `json:"file_name,omitempty"`
	Path       string            `json:"path,omitempty"`
	HasResults bool              `json:"has_results"`
	Source     string            `json:"prize_source,omitempty"`
	SinkErrors map[string]string `json:"sink_errors,omitempty"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`

	// Err is the failure behind Error.
	Err error `json:"-"`
}

// Report summarizes one run
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Discovered []string     `json:"discovered"`
	Pages      []PageResult `json:"pages"`
	Error      string       `json:"error,omitempty"`
}

// Written returns the number of pages whose record file was written.
func (r *Report) Written() int {
	n := 0
	for _, p := range r.Pages {
		if p.Status == types.PageWritten {
			n++
		}
	}
	return n
}

// Failed returns the number of pages that could not be processed.
func (r *Report) Failed() int {
	return len(r.Pages) - r.Written()
}

// WithResults returns the number of written records carrying real winners.
func (r *Report) WithResults() int {
	n := 0
	for _, p := range r.Pages {
		if p.Status == types.PageWritten && p.HasResults {
			n++
		}
	}
	return n
}

// Status classifies the run.
func (r *Report) Status() string {
	switch {
	case len(r.Pages) == 0:
		return RunEmpty
	case r.Failed() == 0:
		return RunSuccess
	case r.Written() == 0:
		return RunFailed
	default:
		return RunPartial
	}
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
