// Package framer turns a raw device byte stream into newline-terminated lines.
package framer

import (
	"io"
	"strings"
)

// Framer buffers a partial line across writes. It is not safe for concurrent
// use; the session serialises access.
type Framer struct {
	buf    []byte
	onLine func(string)
	echo   io.Writer
	quiet  func() bool
}

// New creates a Framer. onLine receives each completed line without its
// terminator. Every byte is echoed to echo (if non-nil) unless quiet reports
// true at the moment the byte is handled.
func New(onLine func(string), echo io.Writer, quiet func() bool) *Framer {
	return &Framer{onLine: onLine, echo: echo, quiet: quiet}
}

// Write consumes a chunk. It never fails on framing; only echo errors are
// returned, after the whole chunk has been framed.
func (f *Framer) Write(p []byte) (int, error) {
	var echoErr error
	for i, b := range p {
		if b == '\n' {
			line := string(f.buf)
			f.buf = f.buf[:0]
			if f.onLine != nil {
				f.onLine(line)
			}
		} else {
			f.buf = append(f.buf, b)
		}
		if echoErr == nil && f.echo != nil && !f.silenced() {
			_, echoErr = f.echo.Write(p[i : i+1])
		}
	}
	return len(p), echoErr
}

// Pending returns the buffered, not yet terminated text.
func (f *Framer) Pending() string {
	return string(f.buf)
}

func (f *Framer) silenced() bool {
	return f.quiet != nil && f.quiet()
}

// Split frames a complete block of text in one shot. A trailing fragment
// without a terminator is still a line because the block is complete.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
