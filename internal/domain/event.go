package domain

import "time"

// SchemaVersion is bumped whenever an event's JSON shape changes.
const SchemaVersion = 1

// Event type names as they appear in the "type" field.
const (
	TypeCrashHeader      = "crash_header"
	TypeProgramCounter   = "pc_fault"
	TypePanicReason      = "panic_reason"
	TypeBacktrace        = "backtrace"
	TypeBootLoopDetected = "boot_loop"
)

// Event is one decoded occurrence in the device stream.
type Event interface {
	EventType() string
}

// Envelope carries the fields shared by every event.
type Envelope struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// EventType returns the "type" field.
func (e Envelope) EventType() string { return e.Type }

func newEnvelope(typ, sessionID string, now time.Time) Envelope {
	return Envelope{
		Type:          typ,
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		Timestamp:     now.UTC().Format(time.RFC3339),
	}
}

// CrashHeader is emitted when the device reports an ELF fingerprint that does
// not match the local symbol file.
type CrashHeader struct {
	Envelope
	Mismatch bool   `json:"mismatch"`
	Reported string `json:"reported"`
	Local    string `json:"local"`
}

// ProgramCounterFault is the decoded location of the faulting PC.
type ProgramCounterFault struct {
	Envelope
	Address  string   `json:"address"`
	Location Location `json:"location"`
}

// PanicReason is the reason text of a Guru Meditation line.
type PanicReason struct {
	Envelope
	Reason string `json:"reason"`
}

// Backtrace holds the frames that could be resolved, in device order.
type Backtrace struct {
	Envelope
	Addresses []string   `json:"addresses"`
	Frames    []Location `json:"frames"`
}

// BootLoopDetected reports the number of restarts seen so far.
type BootLoopDetected struct {
	Envelope
	Count int `json:"count"`
}

// NewCrashHeader creates a CrashHeader event
func NewCrashHeader(sessionID string, now time.Time, reported, local string) *CrashHeader {
	return &CrashHeader{
		Envelope: newEnvelope(TypeCrashHeader, sessionID, now),
		Mismatch: true,
		Reported: reported,
		Local:    local,
	}
}

// NewProgramCounterFault creates a ProgramCounterFault event
func NewProgramCounterFault(sessionID string, now time.Time, addr string, loc Location) *ProgramCounterFault {
	return &ProgramCounterFault{
		Envelope: newEnvelope(TypeProgramCounter, sessionID, now),
		Address:  addr,
		Location: loc,
	}
}

// NewPanicReason creates a PanicReason event
func NewPanicReason(sessionID string, now time.Time, reason string) *PanicReason {
	return &PanicReason{
		Envelope: newEnvelope(TypePanicReason, sessionID, now),
		Reason:   reason,
	}
}

// NewBacktrace creates a Backtrace event. Frames is never nil so NDJSON
// consumers always see an array.
func NewBacktrace(sessionID string, now time.Time, addrs []string, frames []Location) *Backtrace {
	if frames == nil {
		frames = []Location{}
	}
	return &Backtrace{
		Envelope:  newEnvelope(TypeBacktrace, sessionID, now),
		Addresses: addrs,
		Frames:    frames,
	}
}

// NewBootLoopDetected creates a BootLoopDetected event
func NewBootLoopDetected(sessionID string, now time.Time, count int) *BootLoopDetected {
	return &BootLoopDetected{
		Envelope: newEnvelope(TypeBootLoopDetected, sessionID, now),
		Count:    count,
	}
}
