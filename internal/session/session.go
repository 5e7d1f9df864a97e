// Package session wires the framer and classifier to a device stream or to a
// captured block of text and hands decoded events to a sink.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/espdecode/internal/classifier"
	"github.com/vburojevic/espdecode/internal/domain"
	"github.com/vburojevic/espdecode/internal/framer"
)

const readBufferSize = 4096

// Sink receives decoded events in the order they were produced.
type Sink interface {
	WriteEvent(ev domain.Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev domain.Event) error

func (f SinkFunc) WriteEvent(ev domain.Event) error { return f(ev) }

// Transport is a device connection: reads deliver raw output, writes send
// operator input.
type Transport interface {
	io.Reader
	io.Writer
}

// Stats summarises a session.
type Stats struct {
	Lines      int
	Events     int
	Restarts   int
	Suppressed bool
}

// Session owns the per-run decode state. Feed calls are serialised so lines
// are classified strictly in arrival order.
type Session struct {
	mu         sync.Mutex
	id         string
	classifier *classifier.Classifier
	framer     *framer.Framer
	sink       Sink
	logger     *zap.Logger

	// feedCtx is the context of the Feed call in progress; only touched with mu held.
	feedCtx context.Context
	sinkErr error
	lines   int
	events  int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the debug logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithID sets the session id used in log fields.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a Session. Raw device output is echoed to echo (may be nil)
// until the classifier enters boot-loop quiet mode.
func New(cls *classifier.Classifier, sink Sink, echo io.Writer, opts ...Option) *Session {
	s := &Session{
		classifier: cls,
		sink:       sink,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.framer = framer.New(s.handleLine, echo, cls.Suppressed)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Feed frames a raw chunk and classifies every completed line.
func (s *Session) Feed(ctx context.Context, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedCtx = ctx
	defer func() { s.feedCtx = nil }()

	_, echoErr := s.framer.Write(chunk)
	if err := s.takeSinkErr(); err != nil {
		return err
	}
	if echoErr != nil {
		return fmt.Errorf("failed to echo device output: %w", echoErr)
	}
	return nil
}

// Batch classifies a complete block of text line by line and returns after
// the last line. Nothing is echoed in batch mode.
func (s *Session) Batch(ctx context.Context, text string) error {
	lines := framer.Split(text)
	s.logger.Debug("batch decode", zap.String("session_id", s.id), zap.Int("lines", len(lines)))

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		s.feedCtx = ctx
		s.handleLine(line)
		s.feedCtx = nil
		err := s.takeSinkErr()
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Stream reads from t until ctx is cancelled or t reports EOF, while
// forwarding operator lines to t. A boot loop does not end the stream. When
// ctx is cancelled, t is closed if it implements io.Closer so a blocked read
// returns.
func (s *Session) Stream(ctx context.Context, t Transport, operator io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return s.pump(ctx, t)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			if c, ok := t.(io.Closer); ok {
				c.Close()
			}
		case <-done:
		}
		return nil
	})

	// Reads from the operator cannot be interrupted, so the forwarder is not
	// waited for; it exits on its next failed read or write.
	if operator != nil {
		go s.forward(ctx, t, operator)
	}

	return g.Wait()
}

// Stats returns counters for the session so far.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	lines, events := s.lines, s.events
	s.mu.Unlock()

	st := s.classifier.State()
	return Stats{
		Lines:      lines,
		Events:     events,
		Restarts:   st.RestartCount,
		Suppressed: st.Suppressed,
	}
}

func (s *Session) pump(ctx context.Context, t Transport) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.Read(buf)
		if n > 0 {
			if ferr := s.Feed(ctx, buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read from device: %w", err)
		}
	}
}

func (s *Session) forward(ctx context.Context, t Transport, operator io.Reader) {
	sc := bufio.NewScanner(operator)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if _, err := io.WriteString(t, sc.Text()+"\n"); err != nil {
			s.logger.Debug("operator input not sent", zap.String("session_id", s.id), zap.Error(err))
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("operator input closed", zap.String("session_id", s.id), zap.Error(err))
	}
}

// handleLine runs with mu held.
func (s *Session) handleLine(line string) {
	s.lines++
	ctx := s.feedCtx
	if ctx == nil {
		ctx = context.Background()
	}
	events, _ := s.classifier.Classify(ctx, line)
	for _, ev := range events {
		s.events++
		if err := s.sink.WriteEvent(ev); err != nil && s.sinkErr == nil {
			s.sinkErr = err
		}
	}
}

func (s *Session) takeSinkErr() error {
	err := s.sinkErr
	s.sinkErr = nil
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
