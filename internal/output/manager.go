// internal/output/manager.go
package output

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/klresults/internal/utils"
	"github.com/valpere/klresults/pkg/types"
)

// Sink is a secondary destination for written records.
type Sink interface {
	Name() string
	Store(ctx context.Context, rec *types.DrawRecord, fileName string) error
	Close() error
}

// WriteObserver is told about every file write and sink store.
type WriteObserver interface {
	ObserveWrite(sink, outcome string, elapsed time.Duration)
}

// Result describes one persisted record.
type Result struct {
	Path       string
	FileName   string
	SinkErrors map[string]error
}

// Manager writes the record file and then forwards the record to every
// sink. The file is the contract: its failure is returned, while sink
// failures are logged and reported in Result.SinkErrors.
type Manager struct {
	file     *JSONWriter
	sinks    []Sink
	observer WriteObserver
	logger   utils.Logger
}

// NewManager creates a manager around the file writer.
func NewManager(file *JSONWriter, logger utils.Logger, sinks ...Sink) *Manager {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Manager{file: file, sinks: sinks, logger: logger}
}

// SetObserver reports writes to o.
func (m *Manager) SetObserver(o WriteObserver) {
	m.observer = o
}

// AddSink registers another sink.
func (m *Manager) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Sinks returns the names of the registered sinks.
func (m *Manager) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

// Write persists rec.
func (m *Manager) Write(ctx context.Context, rec *types.DrawRecord) (Result, error) {
	start := time.Now()
	path, name, err := m.file.Write(rec)
	m.observe("file", err, start)
	if err != nil {
		return Result{Path: path, FileName: name}, err
	}

	res := Result{Path: path, FileName: name}
	for _, s := range m.sinks {
		start := time.Now()
		err := s.Store(ctx, rec, name)
		m.observe(s.Name(), err, start)
		if err != nil {
			if res.SinkErrors == nil {
				res.SinkErrors = make(map[string]error)
			}
			res.SinkErrors[s.Name()] = err
			m.logger.WithFields(map[string]interface{}{"sink": s.Name(), "file": name}).Warnf("sink store failed: %v", err)
		}
	}
	return res, nil
}

// Close closes every sink.
func (m *Manager) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) observe(sink string, err error, start time.Time) {
	if m.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.observer.ObserveWrite(sink, outcome, time.Since(start))
}
