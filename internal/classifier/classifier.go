// Package classifier recognises crash artifacts in device output lines,
// resolves their addresses and tracks restarts to detect boot loops.
//
// Lines are classified in this order:
//
//  1. "ELF file SHA256" crash header: the reported digest is checked against
//     the local ELF (unless output is already suppressed) and the restart
//     counter is incremented.
//  2. Any other line while suppressed is ignored.
//  3. "PC" lines: the program counter is resolved.
//  4. "Guru Meditation" lines: the panic reason in parentheses is extracted.
//  5. "Backtrace: " lines: every address is resolved on its own, in order.
//  6. Once at least one restart was seen, output is suppressed for good and
//     a boot loop is reported.
package classifier

import (
	"context"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/espdecode/internal/domain"
	"github.com/vburojevic/espdecode/internal/fingerprint"
	"github.com/vburojevic/espdecode/internal/resolver"
)

// Line markers printed by the ESP32 panic handler.
const (
	MarkerCrashHeader = "ELF file SHA256"
	MarkerPC          = "PC"
	MarkerPanic       = "Guru Meditation"
	MarkerBacktrace   = "Backtrace: "
)

// State is the per-session classification state.
type State struct {
	RestartCount int
	Suppressed   bool
}

// Classifier is safe for concurrent use, but lines must be fed in arrival
// order for the restart counter to be meaningful.
type Classifier struct {
	mu    sync.Mutex
	state State

	resolver  resolver.Resolver
	artifact  string
	local     fingerprint.Fingerprint
	clock     clock.Clock
	logger    *zap.Logger
	sessionID string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock sets the clock used to timestamp events.
func WithClock(c clock.Clock) Option {
	return func(cl *Classifier) { cl.clock = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Classifier) { cl.logger = l }
}

// WithSessionID tags emitted events.
func WithSessionID(id string) Option {
	return func(cl *Classifier) { cl.sessionID = id }
}

// New creates a Classifier resolving addresses against artifact, whose
// digest is local.
func New(res resolver.Resolver, artifact string, local fingerprint.Fingerprint, opts ...Option) *Classifier {
	c := &Classifier{
		resolver: res,
		artifact: artifact,
		local:    local,
		clock:    clock.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify processes one line and returns the events it produced. stop is
// true once the session has entered boot-loop quiet mode; no later line will
// produce anything but boot-loop updates.
func (c *Classifier) Classify(ctx context.Context, line string) (events []domain.Event, stop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line = strings.TrimSuffix(line, "\r")

	if strings.HasPrefix(line, MarkerCrashHeader) {
		if !c.state.Suppressed {
			if ev := c.crashHeader(line); ev != nil {
				events = append(events, ev)
			}
		}
		c.state.RestartCount++
	} else if c.state.Suppressed {
		return nil, true
	}

	switch {
	case strings.HasPrefix(line, MarkerPC):
		if ev := c.programCounter(ctx, line); ev != nil {
			events = append(events, ev)
		}
	case strings.HasPrefix(line, MarkerPanic):
		if ev := c.panicReason(line); ev != nil {
			events = append(events, ev)
		}
	case strings.HasPrefix(line, MarkerBacktrace):
		events = append(events, c.backtrace(ctx, line))
	}

	if c.state.RestartCount >= 1 {
		if !c.state.Suppressed {
			c.logger.Debug("boot loop detected, suppressing output",
				zap.String("session_id", c.sessionID),
				zap.Int("restarts", c.state.RestartCount))
		}
		c.state.Suppressed = true
		events = append(events, domain.NewBootLoopDetected(c.sessionID, c.clock.Now(), c.state.RestartCount))
		return events, true
	}
	return events, false
}

// State returns a copy of the current state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Suppressed reports whether boot-loop quiet mode is active.
func (c *Classifier) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Suppressed
}

// Fingerprint returns the digest of the local symbol file.
func (c *Classifier) Fingerprint() fingerprint.Fingerprint {
	return c.local
}

func (c *Classifier) crashHeader(line string) domain.Event {
	_, reported, _ := strings.Cut(line, ":")
	reported = strings.TrimSpace(reported)
	if c.local.Matches(reported) {
		return nil
	}
	c.logger.Debug("ELF fingerprint mismatch",
		zap.String("session_id", c.sessionID),
		zap.String("reported", reported),
		zap.String("local", c.local.String()))
	return domain.NewCrashHeader(c.sessionID, c.clock.Now(), reported, c.local.String())
}

func (c *Classifier) programCounter(ctx context.Context, line string) domain.Event {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == '\t' || r == ' ' || r == ':'
	})
	if len(fields) < 2 {
		return nil
	}
	addr := fields[1]
	loc, ok := c.resolve(ctx, addr)
	if !ok {
		return nil
	}
	return domain.NewProgramCounterFault(c.sessionID, c.clock.Now(), addr, loc)
}

func (c *Classifier) panicReason(line string) domain.Event {
	open := strings.Index(line, "(")
	if open < 0 {
		return nil
	}
	reason := line[open+1:]
	if end := strings.LastIndex(reason, ")"); end >= 0 {
		reason = reason[:end]
	}
	return domain.NewPanicReason(c.sessionID, c.clock.Now(), strings.TrimSpace(reason))
}

// backtrace resolves each address with its own call so a failure on one
// frame does not lose the others.
func (c *Classifier) backtrace(ctx context.Context, line string) domain.Event {
	addrs := lo.Compact(strings.Split(line, " ")[1:])
	frames := lo.FilterMap(addrs, func(addr string, _ int) (domain.Location, bool) {
		return c.resolve(ctx, addr)
	})
	return domain.NewBacktrace(c.sessionID, c.clock.Now(), addrs, frames)
}

func (c *Classifier) resolve(ctx context.Context, addr string) (domain.Location, bool) {
	out, err := c.resolver.Resolve(ctx, c.artifact, addr)
	if err != nil {
		c.logger.Debug("address not resolved",
			zap.String("session_id", c.sessionID),
			zap.String("address", addr),
			zap.Error(err))
		return domain.Location{}, false
	}
	loc, ok := resolver.ParseLocation(out)
	if !ok {
		c.logger.Debug("empty resolver output",
			zap.String("session_id", c.sessionID),
			zap.String("address", addr))
	}
	return loc, ok
}
