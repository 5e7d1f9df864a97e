// Package output renders decoded events and session records as NDJSON for
// tools or as text for people.
package output

import "github.com/vburojevic/espdecode/internal/domain"

// SchemaVersion of the non-event records.
const SchemaVersion = domain.SchemaVersion

// Writer is implemented by NDJSONWriter and TextWriter.
type Writer interface {
	WriteEvent(ev domain.Event) error
	WriteReady(r *Ready) error
	WriteSummary(s *Summary) error
	WriteWarning(message string) error
	WriteError(code, message string, hint ...string) error
}

// Ready describes the session that is about to start.
type Ready struct {
	Type          string `json:"type"` // "ready"
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"` // "monitor" or "decode"
	ELF           string `json:"elf"`
	SHA256        string `json:"sha256"`
	Tools         string `json:"tools"`
	Resolver      string `json:"resolver"`
	Port          string `json:"port,omitempty"`
	Baud          int    `json:"baud,omitempty"`
	Input         string `json:"input,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// Summary is written when a decode run finishes.
type Summary struct {
	Type          string `json:"type"` // "summary"
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id"`
	Lines         int    `json:"lines"`
	Events        int    `json:"events"`
	Restarts      int    `json:"restarts"`
	BootLoop      bool   `json:"boot_loop"`
}

// Warning is a non-fatal problem.
type Warning struct {
	Type          string `json:"type"` // "warning"
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
}

// Error is a fatal problem with an optional remediation hint.
type Error struct {
	Type          string `json:"type"` // "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}
