// internal/output/json.go
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/klresults/pkg/types"
)

// DefaultLatestName is the file that mirrors the most recently written record.
const DefaultLatestName = "latest.json"

// WriteError reports a failure to persist a record file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write output %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// JSONWriter writes each record to <dir>/<code>-<draw>-<date>.json and
// mirrors it to <dir>/latest.json.
type JSONWriter struct {
	dir        string
	latestName string
}

// NewJSONWriter creates a writer rooted at dir.
func NewJSONWriter(dir, latestName string) *JSONWriter {
	if dir == "" {
		dir = "note"
	}
	if latestName == "" {
		latestName = DefaultLatestName
	}
	return &JSONWriter{dir: dir, latestName: latestName}
}

// Dir returns the output directory.
func (w *JSONWriter) Dir() string { return w.dir }

// Write persists rec and returns the path and name of the per-draw file.
// An existing file for the same draw is overwritten.
func (w *JSONWriter) Write(rec *types.DrawRecord) (path, name string, err error) {
	data, err := EncodeRecord(rec)
	if err != nil {
		return "", "", &WriteError{Path: w.dir, Err: err}
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", "", &WriteError{Path: w.dir, Err: err}
	}

	name = rec.FileName()
	path = filepath.Join(w.dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", "", &WriteError{Path: path, Err: err}
	}

	latest := filepath.Join(w.dir, w.latestName)
	if err := writeFileAtomic(latest, data); err != nil {
		return path, name, &WriteError{Path: latest, Err: err}
	}

	return path, name, nil
}

// EncodeRecord renders rec as 2-space indented JSON without HTML escaping.
func EncodeRecord(rec *types.DrawRecord) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes through a temp file so readers never see a partial record.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
