package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/espdecode/internal/domain"
)

// TextWriter renders events for a terminal. Colors are only used when
// enabled; callers decide based on whether stdout is a terminal.
type TextWriter struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	styles textStyles
}

type textStyles struct {
	err  lipgloss.Style
	dir  lipgloss.Style
	file lipgloss.Style
	line lipgloss.Style
}

// NewTextWriter creates a new text writer
func NewTextWriter(w io.Writer, color bool) *TextWriter {
	return &TextWriter{
		w:     w,
		color: color,
		styles: textStyles{
			err:  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("1")),
			dir:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			file: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")),
			line: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		},
	}
}

func (t *TextWriter) render(s lipgloss.Style, text string) string {
	if !t.color || text == "" {
		return text
	}
	return s.Render(text)
}

// Location renders dir/file:line, colored per part.
func (t *TextWriter) Location(loc domain.Location) string {
	var b strings.Builder
	if loc.Dir != "" {
		b.WriteString(t.render(t.styles.dir, loc.Dir))
		b.WriteString("/")
	}
	b.WriteString(t.render(t.styles.file, loc.File))
	if loc.Line != "" {
		b.WriteString(":")
		b.WriteString(t.render(t.styles.line, loc.Line))
	}
	return b.String()
}

// WriteEvent writes a decoded event
func (t *TextWriter) WriteEvent(ev domain.Event) error {
	var b strings.Builder
	switch e := ev.(type) {
	case *domain.CrashHeader:
		fmt.Fprintf(&b, "\n%s\n", t.render(t.styles.err,
			"SHA of the source ELF file does not match with the current one. Are you sure you are running the latest firmware?"))
		fmt.Fprintf(&b, "  device: %s\n  local:  %s\n", e.Reported, e.Local)
	case *domain.ProgramCounterFault:
		fmt.Fprintf(&b, "\n%s\n%s\n", t.render(t.styles.err, "Exception occurred at: "), t.Location(e.Location))
	case *domain.PanicReason:
		fmt.Fprintf(&b, "\n%s\n", t.render(t.styles.err, e.Reason))
	case *domain.Backtrace:
		fmt.Fprintf(&b, "\n%s\n", t.render(t.styles.err, "Decoded Backtrace: "))
		for _, f := range e.Frames {
			b.WriteString(t.Location(f))
			b.WriteString("\n")
		}
	case *domain.BootLoopDetected:
		// Later counts overwrite the same terminal line.
		if e.Count == 1 {
			b.WriteString("\n")
		}
		b.WriteString("\r")
		b.WriteString(t.render(t.styles.err, fmt.Sprintf("Boot loop detected: %d", e.Count)))
	default:
		fmt.Fprintf(&b, "%s\n", ev.EventType())
	}
	return t.write(b.String())
}

// WriteReady writes the session banner
func (t *TextWriter) WriteReady(r *Ready) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Using ELF: %s\n", r.ELF)
	fmt.Fprintf(&b, "SHA of ELF: %s\n", r.SHA256)
	fmt.Fprintf(&b, "xtensa tools: %s\n", r.Tools)
	fmt.Fprintf(&b, "addr2line util: %s\n", r.Resolver)
	switch r.Mode {
	case "monitor":
		fmt.Fprintf(&b, "Port: %s @%d\n", r.Port, r.Baud)
	case "decode":
		fmt.Fprintf(&b, "Decoding: %s\n", r.Input)
	}
	b.WriteString("ESP32 Exception Decoder\n")
	return t.write(b.String())
}

// WriteSummary writes the end of run line
func (t *TextWriter) WriteSummary(s *Summary) error {
	msg := fmt.Sprintf("\nDecoding ended: %d lines, %d events", s.Lines, s.Events)
	if s.BootLoop {
		msg += fmt.Sprintf(", boot loop after %d restart(s)", s.Restarts)
	}
	return t.write(msg + "\n")
}

// WriteWarning writes a warning line
func (t *TextWriter) WriteWarning(message string) error {
	return t.write("Warning: " + message + "\n")
}

// WriteError writes an error line with an optional hint
func (t *TextWriter) WriteError(code, message string, hint ...string) error {
	msg := fmt.Sprintf("Error [%s]: %s", code, message)
	if len(hint) > 0 && hint[0] != "" {
		msg += fmt.Sprintf(" (hint: %s)", hint[0])
	}
	return t.write(t.render(t.styles.err, msg) + "\n")
}

func (t *TextWriter) write(s string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, s)
	return err
}
