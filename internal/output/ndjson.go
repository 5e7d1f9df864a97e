package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vburojevic/espdecode/internal/domain"
)

// NDJSONWriter writes one JSON object per line.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

func (w *NDJSONWriter) encode(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteEvent writes a decoded event
func (w *NDJSONWriter) WriteEvent(ev domain.Event) error {
	return w.encode(ev)
}

// WriteReady writes the session start record
func (w *NDJSONWriter) WriteReady(r *Ready) error {
	r.Type = "ready"
	r.SchemaVersion = SchemaVersion
	return w.encode(r)
}

// WriteSummary writes the end of run summary
func (w *NDJSONWriter) WriteSummary(s *Summary) error {
	s.Type = "summary"
	s.SchemaVersion = SchemaVersion
	return w.encode(s)
}

// WriteWarning writes a warning record
func (w *NDJSONWriter) WriteWarning(message string) error {
	return w.encode(&Warning{Type: "warning", SchemaVersion: SchemaVersion, Message: message})
}

// WriteError writes an error record
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	e := &Error{Type: "error", SchemaVersion: SchemaVersion, Code: code, Message: message}
	if len(hint) > 0 {
		e.Hint = hint[0]
	}
	return w.encode(e)
}
